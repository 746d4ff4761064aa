package main

import (
	"context"
	"fmt"

	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
)

func (cli *commandLine) genSignupToken(nt user.NewSignupToken) error {
	if err := nt.Validate(); err != nil {
		return err
	}
	tok, err := cli.usrSvc.CreateSignupToken(context.Background(), nt)
	if err != nil {
		return err
	}
	fmt.Printf("signup token for %s (%s): %s\n", tok.FullName, tok.Role, tok.Token)
	return nil
}
