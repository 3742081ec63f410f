package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/easystudy/backend/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sql.DB
	usrSvc *user.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  addtutor -email EMAIL -first FIRST -last LAST [-phone PHONE] - create an active tutor account")
	fmt.Println("  approve -id ID - approve a pending student account")
	fmt.Println("  resetpassword -email EMAIL - reset a user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTutorCmd := flag.NewFlagSet("addtutor", flag.ExitOnError)
	addTutorEmail := addTutorCmd.String("email", "", "The tutor's email. The password will be prompted next.")
	addTutorFirst := addTutorCmd.String("first", "", "The tutor's first name.")
	addTutorLast := addTutorCmd.String("last", "", "The tutor's last name.")
	addTutorPhone := addTutorCmd.String("phone", "", "The tutor's phone number.")

	approveCmd := flag.NewFlagSet("approve", flag.ExitOnError)
	approveID := approveCmd.String("id", "", "The pending student's ID.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addtutor":
		if err := addTutorCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTutorEmail == "" || *addTutorFirst == "" || *addTutorLast == "" {
			addTutorCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addTutorCmd)
		if err != nil {
			return err
		}
		return cli.addTutor(*addTutorEmail, *addTutorFirst, *addTutorLast, *addTutorPhone, pwd)
	case "approve":
		if err := approveCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *approveID == "" {
			approveCmd.Usage()
			return errHelp
		}
		return cli.approve(*approveID)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}
