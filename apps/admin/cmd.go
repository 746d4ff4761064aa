package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type (
	// adminRepository extends the user repository with the CLI-only admin upsert.
	adminRepository interface {
		user.Repository
		UpsertAdmin(ctx context.Context, usr user.User) (user.User, error)
	}

	commandLine struct {
		db      *sqlx.DB
		usrRepo adminRepository
		usrSvc  *user.Service
	}
)

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - apply DB migrations (goose passthrough: up, down, status, ...)")
	fmt.Println("  addadmin -username USERNAME -email EMAIL [-name FULLNAME] - create or update an admin account")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset a user's password")
	fmt.Println("  signuptoken -role ROLE -name FULLNAME [options] - issue a signup token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ExitOnError)
	addAdminUname := addAdminCmd.String("username", "", "The admin's username. The password will be prompted next.")
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email.")
	addAdminName := addAdminCmd.String("name", "", "The admin's full name. Defaults to the username.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	signupTokenCmd := flag.NewFlagSet("signuptoken", flag.ExitOnError)
	signupTokenRole := signupTokenCmd.String("role", "", "The invitee's role: student or tutor.")
	signupTokenName := signupTokenCmd.String("name", "", "The invitee's full name.")
	signupTokenPhone := signupTokenCmd.String("phone", "", "The invitee's phone number.")
	signupTokenAddress := signupTokenCmd.String("address", "", "The invitee's address.")
	signupTokenClass := signupTokenCmd.Int("class", 0, "The class a student will be enrolled in.")
	signupTokenGender := signupTokenCmd.String("gender", "", "The invitee's gender: male or female.")
	signupTokenBirthdate := signupTokenCmd.String("birthdate", "", "The invitee's birthdate (YYYY-MM-DD).")
	signupTokenParent := signupTokenCmd.String("parent", "", "A student's parent contact.")
	signupTokenExpertise := signupTokenCmd.String("expertise", "", "A tutor's comma-separated subjects of expertise.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminUname == "" || *addAdminEmail == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addAdminCmd.Usage()
			return errHelp
		}
		return cli.addAdmin(*addAdminUname, *addAdminEmail, *addAdminName, string(pwd))
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, string(pwd))
	case "signuptoken":
		if err := signupTokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *signupTokenRole == "" || *signupTokenName == "" {
			signupTokenCmd.Usage()
			return errHelp
		}
		var expertise []string
		for _, sub := range strings.Split(*signupTokenExpertise, ",") {
			if sub = strings.TrimSpace(sub); sub != "" {
				expertise = append(expertise, sub)
			}
		}
		return cli.genSignupToken(user.NewSignupToken{
			Role:          *signupTokenRole,
			FullName:      *signupTokenName,
			Phone:         *signupTokenPhone,
			Address:       *signupTokenAddress,
			ClassID:       *signupTokenClass,
			Gender:        *signupTokenGender,
			Birthdate:     *signupTokenBirthdate,
			ParentContact: *signupTokenParent,
			Expertise:     expertise,
		})
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() ([]byte, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	return pwd, err
}
