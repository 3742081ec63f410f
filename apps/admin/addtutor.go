package main

import (
	"context"

	"github.com/easystudy/backend/core"
	"github.com/easystudy/backend/core/user"
)

// addTutor creates an active tutor account. Tutors cannot self-register
// through the API with elevated access, so this is the bootstrap path.
func (cli *commandLine) addTutor(email, first, last, phone, pwd string) error {
	nu := user.NewUser{
		FirstName: core.CleanString(first),
		LastName:  core.CleanString(last),
		Email:     core.CleanString(email, true /* lower */),
		Phone:     core.CleanString(phone),
		Password:  pwd,
		UserType:  user.RoleTutor,
	}
	if _, err := cli.usrSvc.Register(context.Background(), nu); err != nil {
		return err
	}
	return nil
}
