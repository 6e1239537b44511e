package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Flash-Brew-Digital/memberstack-cli/internal/app"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the current authentication state",
		Action: statusAction,
	}
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	sess, err := app.NewSession(cfg)
	if err != nil {
		return err
	}

	status := sess.Status(ctx)

	if !status.Authenticated {
		fmt.Println("Not authenticated. Run `memberstack login`.")
		return nil
	}

	fmt.Println("Authenticated.")
	if status.AppID != "" {
		fmt.Println("App:", status.AppID)
	}

	remaining := time.Until(status.ExpiresAt).Round(time.Second)
	switch {
	case remaining > 0:
		fmt.Printf("Access token expires in %s (%s).\n", remaining, status.ExpiresAt.Format(time.RFC3339))
	case status.Refreshable:
		fmt.Println("Access token expired; it will be refreshed on the next call.")
	default:
		fmt.Println("Access token expired and no refresh token is stored. Run `memberstack login`.")
	}

	return nil
}
