// Command taskctl is a terminal client for the taskdeck API.
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/taskdeck/taskdeck/internal/client"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// app carries the state shared by every command.
type app struct {
	stdin  io.Reader
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	server      string
	sessionFile string
	insecure    bool
	timeout     time.Duration

	api *client.API
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	a := &app{
		stdin:  stdin,
		in:     bufio.NewReader(stdin),
		out:    stdout,
		errOut: stderr,
	}

	return &cli.App{
		Name:      "taskctl",
		Usage:     "manage taskdeck tasks from the terminal",
		Version:   version,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "server",
				Aliases:     []string{"s"},
				Usage:       "base URL of the taskdeck API",
				EnvVars:     []string{"TASKCTL_SERVER"},
				Value:       "https://localhost:8080",
				Destination: &a.server,
			},
			&cli.StringFlag{
				Name:        "session-file",
				Usage:       "where the session token is kept between runs",
				EnvVars:     []string{"TASKCTL_SESSION_FILE"},
				Value:       defaultSessionFile(),
				Destination: &a.sessionFile,
			},
			&cli.BoolFlag{
				Name:        "insecure",
				Usage:       "skip TLS certificate verification",
				EnvVars:     []string{"TASKCTL_INSECURE"},
				Destination: &a.insecure,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "per-request timeout",
				Value:       15 * time.Second,
				Destination: &a.timeout,
			},
		},
		Before: a.connect,
		Commands: []*cli.Command{
			a.registerCmd(),
			a.loginCmd(),
			a.logoutCmd(),
			a.whoamiCmd(),
			a.tasksCmd(),
		},
	}
}

// connect builds the API client and restores any saved session.
func (a *app) connect(*cli.Context) error {
	httpClient := &http.Client{Timeout: a.timeout}
	if a.insecure {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in via --insecure
		}
	}

	api, err := client.New(a.server, client.WithHTTPClient(httpClient))
	if err != nil {
		return err
	}
	a.api = api

	token, err := loadSession(a.sessionFile)
	if err != nil {
		return err
	}
	if token != "" {
		a.api.SetSessionToken(token)
	}
	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".taskctl-session"
	}
	return filepath.Join(dir, "taskctl", "session")
}

// formatError renders server messages one per line.
func formatError(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && len(apiErr.Messages) > 0 {
		return "error: " + strings.Join(apiErr.Messages, "\nerror: ")
	}
	return "error: " + err.Error()
}
