package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
)

// addAdmin creates an admin account, or resets the password of (and
// reactivates) an existing one.
func (cli *commandLine) addAdmin(uname, email, name, pwd string) error {
	if name == "" {
		name = uname
	}
	usr := user.User{
		Username:   core.CleanString(uname, true /* lower */),
		Email:      core.CleanString(email, true /* lower */),
		Role:       user.RoleAdmin,
		FullName:   core.CleanString(name),
		IsActive:   true,
		DateJoined: time.Now().UTC(),
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr, err := cli.usrRepo.UpsertAdmin(context.Background(), usr)
	if err != nil {
		return err
	}
	fmt.Printf("admin %s ready (id=%d)\n", usr.Username, usr.ID)
	return nil
}
