package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Flash-Brew-Digital/memberstack-cli/internal/app"
)

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Revoke the stored token and clear local credentials",
		Action: logoutAction,
	}
}

func logoutAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	sess, err := app.NewSession(cfg)
	if err != nil {
		return err
	}

	if err := sess.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	fmt.Println("Logged out.")
	return nil
}
