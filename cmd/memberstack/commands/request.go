package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Flash-Brew-Digital/memberstack-cli/internal/app"
	"github.com/Flash-Brew-Digital/memberstack-cli/internal/transport"
)

func requestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "Issue an authenticated API request",
		ArgsUsage: "METHOD PATH",
		Description: `Issues a raw authenticated request against the Memberstack API and
prints the response body to stdout. The payload is passed through untouched.

Examples:
  memberstack request GET /members
  memberstack request POST /members --data '{"email":"jo@example.com"}'
  memberstack request DELETE /members/mem_123`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "request body (use @file to read from a file)",
			},
		},
		Action: requestAction,
	}
}

func requestAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("expected METHOD and PATH arguments")
	}
	method := strings.ToUpper(cmd.Args().Get(0))
	path := cmd.Args().Get(1)

	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	sess, err := app.NewSession(cfg)
	if err != nil {
		return err
	}

	client, err := transport.NewClient(cfg.API.BaseURL, sess.AppID(ctx), sess.TokenSource(ctx))
	if err != nil {
		return err
	}

	var body io.Reader
	if data := cmd.String("data"); data != "" {
		if strings.HasPrefix(data, "@") {
			f, err := os.Open(strings.TrimPrefix(data, "@"))
			if err != nil {
				return fmt.Errorf("reading request body: %w", err)
			}
			defer func() { _ = f.Close() }()
			body = f
		} else {
			body = strings.NewReader(data)
		}
	}

	resp, err := client.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request failed with status %s", resp.Status)
	}
	return nil
}
