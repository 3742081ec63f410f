package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) approve(id string) error {
	usr, err := cli.usrSvc.Approve(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Printf("approved %s (%s)\n", usr.FullName(), usr.Email)
	return nil
}
