package main

import (
	"context"
	"time"

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/user"
)

// addUser creates an admin account, or promotes/updates an existing one.
func (cli *commandLine) addUser(name, email, pwd, level string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}

		isActive := true
		usr = user.User{
			Name:           name,
			Email:          email,
			Role:           user.RoleAdmin,
			AdminLevel:     level,
			IsActive:       &isActive,
			EmailConfirmed: true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	usr.Name = name
	usr.AdminLevel = level
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	isActive := true
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	return err
}
