package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pizzeria/dashboard-delivery-service/config"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
	"github.com/pizzeria/dashboard-delivery-service/internal/service"
	"github.com/urfave/cli/v2"
)

const (
	ServiceName      = "dashboard-delivery-service"
	ServiceNamespace = "pizzeria"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Live order dashboard WebSocket hub",
		Version: fmt.Sprintf("%s (%s@%s, %s, built %s)", version, branch, commit, commitDate, buildTimestamp),
		Commands: []*cli.Command{
			serverCmd(),
			tokenCmd(),
		},
	}

	return app.Run(os.Args)
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config_file",
		Usage:   "Path to the configuration file",
		EnvVars: []string{config.EnvPrefix + "_CONFIG_FILE"},
	}
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the dashboard WebSocket and REST server",
		Flags:   []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config_file"))
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return app.Stop(ctx)
		},
	}
}

func tokenCmd() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a signed dashboard token for local testing",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "user_id", Value: "dashboard-admin"},
			&cli.StringFlag{Name: "username"},
			&cli.StringFlag{Name: "role", Value: model.RoleAdmin},
			&cli.StringSliceFlag{Name: "permission", Usage: "May be repeated"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config_file"))
			if err != nil {
				return err
			}
			auth, err := service.NewTokenAuthenticator(cfg)
			if err != nil {
				return err
			}
			token, err := auth.IssueToken(model.UserInfo{
				UserID:      c.String("user_id"),
				Username:    c.String("username"),
				Role:        c.String("role"),
				Permissions: c.StringSlice("permission"),
			}, c.Duration("ttl"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, token)
			return err
		},
	}
}
