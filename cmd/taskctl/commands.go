package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/taskdeck/taskdeck/internal/client"
	"github.com/taskdeck/taskdeck/internal/model"
)

var errNotSignedIn = errors.New("not signed in, run taskctl login")

func passwordFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "password",
		Usage:   "account password (prompted when empty)",
		EnvVars: []string{"TASKCTL_PASSWORD"},
	}
}

func (a *app) registerCmd() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "display name"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "login email"},
			passwordFlag(),
		},
		Action: func(c *cli.Context) error {
			username, err := a.valueOrPrompt(c.String("username"), "Username: ")
			if err != nil {
				return err
			}
			email, err := a.valueOrPrompt(c.String("email"), "Email: ")
			if err != nil {
				return err
			}

			password, confirm := c.String("password"), c.String("password")
			if password == "" {
				if password, err = a.readPassword("Password: "); err != nil {
					return err
				}
				if confirm, err = a.readPassword("Confirm password: "); err != nil {
					return err
				}
			}

			user, err := a.api.Register(c.Context, client.RegisterInput{
				Username:        username,
				Email:           email,
				Password:        password,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return err
			}
			if err := saveSession(a.sessionFile, a.api.SessionToken()); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Registered and signed in as %s <%s>\n", user.Username, user.Email)
			return nil
		},
	}
}

func (a *app) loginCmd() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in to an existing account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "login email"},
			passwordFlag(),
		},
		Action: func(c *cli.Context) error {
			email, err := a.valueOrPrompt(c.String("email"), "Email: ")
			if err != nil {
				return err
			}
			password := c.String("password")
			if password == "" {
				if password, err = a.readPassword("Password: "); err != nil {
					return err
				}
			}

			user, err := a.api.Login(c.Context, email, password)
			if err != nil {
				return err
			}
			if err := saveSession(a.sessionFile, a.api.SessionToken()); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Signed in as %s <%s>\n", user.Username, user.Email)
			return nil
		},
	}
}

func (a *app) logoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "end the session on the server and forget it locally",
		Action: func(c *cli.Context) error {
			err := a.api.Logout(c.Context)
			if clearErr := clearSession(a.sessionFile); clearErr != nil {
				return clearErr
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in user",
		Action: func(c *cli.Context) error {
			user, err := a.api.Verify(c.Context)
			if errors.Is(err, client.ErrUnauthorized) {
				_ = clearSession(a.sessionFile)
				return errNotSignedIn
			}
			if err != nil {
				return err
			}
			if user == nil {
				return errNotSignedIn
			}
			fmt.Fprintf(a.out, "%s <%s> (%s)\n", user.Username, user.Email, user.ID)
			return nil
		},
	}
}

func (a *app) tasksCmd() *cli.Command {
	taskFlags := func(required bool) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: required},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Required: required},
		}
	}

	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"t"},
		Usage:   "list and edit your tasks",
		Before:  a.requireSession,
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "list tasks, newest first",
				Action: func(c *cli.Context) error {
					tasks, err := a.api.ListTasks(c.Context)
					if err != nil {
						return err
					}
					return a.printTasks(tasks)
				},
			},
			{
				Name:  "create",
				Usage: "add a task",
				Flags: taskFlags(true),
				Action: func(c *cli.Context) error {
					task, err := a.api.CreateTask(c.Context, client.TaskInput{
						Title:       c.String("title"),
						Description: c.String("description"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Created %s\n", task.ID)
					return nil
				},
			},
			{
				Name:      "get",
				Usage:     "show one task",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := taskID(c)
					if err != nil {
						return err
					}
					task, err := a.api.GetTask(c.Context, id)
					if err != nil {
						return err
					}
					return a.printTasks([]*model.Task{task})
				},
			},
			{
				Name:      "update",
				Usage:     "replace a task's title and description",
				ArgsUsage: "ID",
				Flags:     taskFlags(false),
				Action: func(c *cli.Context) error {
					id, err := taskID(c)
					if err != nil {
						return err
					}

					// Unset flags keep the current values.
					current, err := a.api.GetTask(c.Context, id)
					if err != nil {
						return err
					}
					in := client.TaskInput{Title: current.Title, Description: current.Description}
					if c.IsSet("title") {
						in.Title = c.String("title")
					}
					if c.IsSet("description") {
						in.Description = c.String("description")
					}

					task, err := a.api.UpdateTask(c.Context, id, in)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Updated %s\n", task.ID)
					return nil
				},
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "delete a task",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := taskID(c)
					if err != nil {
						return err
					}
					if err := a.api.DeleteTask(c.Context, id); err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Deleted %s\n", id)
					return nil
				},
			},
		},
	}
}

func (a *app) requireSession(*cli.Context) error {
	if a.api.SessionToken() == "" {
		return errNotSignedIn
	}
	return nil
}

func taskID(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s takes exactly one task ID", c.Command.Name)
	}
	return c.Args().First(), nil
}

func (a *app) printTasks(tasks []*model.Task) error {
	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "No tasks")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION\tUPDATED")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			task.ID, task.Title, task.Description, task.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
