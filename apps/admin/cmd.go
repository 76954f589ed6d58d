package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/alumnihub/backend/core/alumni"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	dialect string
	repo    alumni.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command against the database (up, up-to VERSION, down, status..)")
	fmt.Println("  createsuperadmin -email EMAIL -name NAME - create or promote a super admin account")
	fmt.Println("  resetpassword -email EMAIL - reset an account's password")
	fmt.Println("  setrole -email EMAIL -role ROLE - change an account's role")
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createSuperAdminCmd := flag.NewFlagSet("createsuperadmin", flag.ContinueOnError)
	createSuperAdminEmail := createSuperAdminCmd.String("email", "", "The account's email. The password will be prompted next.")
	createSuperAdminName := createSuperAdminCmd.String("name", "", "The account's full name. Required when the account does not exist yet.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleEmail := setRoleCmd.String("email", "", "The account's email.")
	setRoleRole := setRoleCmd.String("role", "", fmt.Sprintf("One of %v.", alumni.AllRoles))

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Println("Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])

	case "createsuperadmin":
		if err := createSuperAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createSuperAdminEmail == "" {
			createSuperAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createSuperAdminCmd.Usage()
			return errHelp
		}
		return cli.createSuperAdmin(*createSuperAdminEmail, *createSuperAdminName, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setRoleEmail == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(*setRoleEmail, *setRoleRole)

	default:
		cli.printUsage()
		return errHelp
	}
}
