package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/Flash-Brew-Digital/memberstack-cli/internal/app"
	"github.com/Flash-Brew-Digital/memberstack-cli/internal/session"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authenticate with Memberstack in your browser",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "print the authorization URL instead of opening a browser",
			},
		},
		Action: loginAction,
	}
}

func loginAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	sess, err := app.NewSession(cfg)
	if err != nil {
		return err
	}

	// Without a terminal there is nothing to spawn a browser from.
	noBrowser := cmd.Bool("no-browser") || !term.IsTerminal(int(os.Stdout.Fd()))

	err = sess.Login(ctx, session.LoginOptions{
		NoBrowser: noBrowser,
		OnAuthURL: func(url string) {
			if noBrowser {
				fmt.Println("Open this URL in your browser to sign in:")
			} else {
				fmt.Println("Opening your browser to sign in. If nothing happens, open:")
			}
			fmt.Println()
			fmt.Println("  " + url)
			fmt.Println()
			fmt.Println("Waiting for you to finish signing in...")
		},
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Println("Logged in.")
	if appID := sess.AppID(ctx); appID != "" {
		fmt.Println("App:", appID)
	}
	return nil
}
