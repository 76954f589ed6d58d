package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

var errNameRequired = errors.New("-name is required to create a new account")

// createSuperAdmin updates or creates a verified and active super admin account.
func (cli *commandLine) createSuperAdmin(email, name, pwd string) error {
	ctx := context.Background()
	email = core.NormalizeEmail(email)
	name = core.CollapseSpaces(name)

	a, err := cli.repo.GetAlumni(ctx, alumni.GetFilter{Email: email})
	if err != nil {
		if errors.Cause(err) != alumni.ErrNotFound {
			return err
		}
		if name == "" {
			return errNameRequired
		}
		now := time.Now().UTC()
		a = alumni.Alumni{Email: email, CreatedAt: now, UpdatedAt: now}
	}
	if name != "" {
		a.FullName = name
	}
	a.Role = alumni.RoleSuperAdmin
	a.IsVerified = true
	a.IsActive = true
	if err = a.SetPassword(pwd); err != nil {
		return err
	}
	if _, err = cli.repo.UpdateOrCreateAlumni(ctx, a); err != nil {
		return err
	}
	return nil
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	a, err := cli.repo.GetAlumni(ctx, alumni.GetFilter{Email: core.NormalizeEmail(email)})
	if err != nil {
		return err
	}
	if err = a.SetPassword(pwd); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	if _, err = cli.repo.UpdateAlumni(ctx, a); err != nil {
		return err
	}
	return nil
}

func (cli *commandLine) setRole(email, role string) error {
	role = strings.TrimSpace(role)
	if !alumni.IsValidRole(role) {
		return fmt.Errorf("invalid role %q: must be one of %v", role, alumni.AllRoles)
	}

	ctx := context.Background()
	a, err := cli.repo.GetAlumni(ctx, alumni.GetFilter{Email: core.NormalizeEmail(email)})
	if err != nil {
		return err
	}
	a.Role = role
	a.UpdatedAt = time.Now().UTC()
	if _, err = cli.repo.UpdateAlumni(ctx, a); err != nil {
		return err
	}
	return nil
}
