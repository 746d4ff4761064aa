package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
	emailsvc "github.com/rahmanfaisal0414/backend-bimbel/services/email"
)

// fakeUserRepo keeps users in memory so the CLI tests never need a live DB.
type fakeUserRepo struct {
	nextID int
	users  map[int]user.User
	tokens []user.SignupToken
}

func newFakeUserRepo(usrs ...user.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[int]user.User)}
	for _, usr := range usrs {
		repo.nextID++
		usr.ID = repo.nextID
		repo.users[usr.ID] = usr
	}
	return repo
}

var _ adminRepository = (*fakeUserRepo)(nil) // interface compliance check

func (repo *fakeUserRepo) CheckUsernameUniqueness(ctx context.Context, username, email string, excl ...user.User) error {
	return nil
}

func (repo *fakeUserRepo) RegisterUser(ctx context.Context, usr user.User, tok user.SignupToken) (user.User, error) {
	repo.nextID++
	usr.ID = repo.nextID
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeUserRepo) GetUserByID(ctx context.Context, id int) (user.User, error) {
	if usr, ok := repo.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	for _, usr := range repo.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *fakeUserRepo) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	for _, usr := range repo.users {
		if usr.Username == uname || usr.Email == uname {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *fakeUserRepo) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeUserRepo) SetUserActive(ctx context.Context, id int, active bool) error {
	usr, ok := repo.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.IsActive = active
	repo.users[id] = usr
	return nil
}

func (repo *fakeUserRepo) SetResetOTP(ctx context.Context, id int, otp null.String, createdAt null.Time) error {
	return nil
}

func (repo *fakeUserRepo) DeleteUser(ctx context.Context, id int) error {
	delete(repo.users, id)
	return nil
}

func (repo *fakeUserRepo) UpsertAdmin(ctx context.Context, usr user.User) (user.User, error) {
	for id, existing := range repo.users {
		if existing.Username == usr.Username {
			usr.ID = id
			repo.users[id] = usr
			return usr, nil
		}
	}
	repo.nextID++
	usr.ID = repo.nextID
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeUserRepo) CreateSignupToken(ctx context.Context, tok user.SignupToken) (user.SignupToken, error) {
	tok.ID = len(repo.tokens) + 1
	repo.tokens = append(repo.tokens, tok)
	return tok, nil
}

func (repo *fakeUserRepo) GetSignupToken(ctx context.Context, token string) (user.SignupToken, error) {
	for _, tok := range repo.tokens {
		if tok.Token == token {
			return tok, nil
		}
	}
	return user.SignupToken{}, user.ErrTokenNotFound
}

func (repo *fakeUserRepo) QuerySignupTokens(ctx context.Context) ([]user.SignupToken, error) {
	return repo.tokens, nil
}

func setup(usrs ...user.User) (*commandLine, *fakeUserRepo) {
	repo := newFakeUserRepo(usrs...)
	return &commandLine{
		db:      &sqlx.DB{},
		usrRepo: repo,
		usrSvc:  user.NewService(repo, emailsvc.NewConsoleServiceMock()),
	}, repo
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantValErr bool
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup()

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "schedule", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli, repo := setup()

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "username but no email", args: []string{"addadmin", "-username", "boss"}, wantErr: errHelp},
		{name: "no password", args: []string{"addadmin", "-username", "boss", "-email", "boss@bimbel.id"}, wantErr: errHelp},
		{name: "create", args: []string{"addadmin", "-username", "Boss", "-email", "Boss@bimbel.id"}, extra: extra{pwd: "s3cret"}},
		{name: "update", args: []string{"addadmin", "-username", "boss", "-email", "boss2@bimbel.id", "-name", "The Boss"}, extra: extra{pwd: "n3w"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				usr, err := repo.GetUserByUsernameOrEmail(context.Background(), "boss")
				if err != nil {
					t.Fatalf("GetUserByUsernameOrEmail() failed, %v", err)
				}
				if usr.Role != user.RoleAdmin {
					t.Errorf("role = %s, want %s", usr.Role, user.RoleAdmin)
				}
				if !usr.IsActive {
					t.Error("admin should be active")
				}
				if err := usr.CheckPassword(tt.extra.(extra).pwd); err != nil {
					t.Error("failed to set password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	seed := user.User{Username: "awe", Email: "awe@bimbel.id", Role: user.RoleStudent, IsActive: true}
	if err := seed.SetPassword("mdr"); err != nil {
		t.Fatal(err)
	}
	cli, repo := setup(seed)
	usr, _ := repo.GetUserByUsernameOrEmail(context.Background(), seed.Username)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := repo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_signupToken(t *testing.T) {
	cli, repo := setup()

	tests := []cliTest{
		{name: "no args", args: []string{"signuptoken"}, wantErr: errHelp},
		{name: "role but no name", args: []string{"signuptoken", "-role", "tutor"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"signuptoken", "-role", "boss", "-name", "Jaja"}, wantValErr: true},
		{name: "student missing class and parent", args: []string{"signuptoken", "-role", "student", "-name", "Rani"}, wantValErr: true},
		{name: "tutor missing expertise", args: []string{"signuptoken", "-role", "tutor", "-name", "Pak Budi"}, wantValErr: true},
		{name: "bad birthdate", args: []string{"signuptoken", "-role", "tutor", "-name", "Pak Budi", "-expertise", "math", "-birthdate", "lol"}, wantValErr: true},
		{name: "tutor token", args: []string{"signuptoken", "-role", "tutor", "-name", "Pak Budi", "-expertise", "math, physics"}},
		{name: "student token", args: []string{"signuptoken", "-role", "student", "-name", "Rani", "-class", "3", "-parent", "+62812000111"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantValErr {
				if err == nil {
					t.Error("cli.run() expected a validation error")
				}
				return
			}
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			toks, _ := repo.QuerySignupTokens(context.Background())
			if len(toks) == 0 {
				t.Fatal("no signup token was created")
			}
			tok := toks[len(toks)-1]
			if tok.Token == "" {
				t.Error("token is empty")
			}
			if tok.IsUsed {
				t.Error("token should not be used")
			}
			switch tok.Role {
			case user.RoleTutor:
				if len(tok.Expertise) != 2 {
					t.Errorf("expertise = %v, want 2 subjects", tok.Expertise)
				}
			case user.RoleStudent:
				if got := tok.ClassID.Int; got != 3 {
					t.Errorf("class ID = %d, want 3", got)
				}
				if !tok.ParentContact.Valid {
					t.Error("parent contact should be set")
				}
			}
		})
	}
}
