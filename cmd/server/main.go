package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"teamhub/internal/realtime"
)

// @title           teamhub API
// @version         1.0
// @description     Friends, teams, chat, notifications and calendar with realtime delivery.

// @host            localhost:8000
// @BasePath        /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("teamhub failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "teamhub",
		Usage: "team collaboration backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file applied before reading the environment",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP and WebSocket server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create the schema and seed roles, then exit",
				Action: migrate,
			},
			{
				Name:  "listen",
				Usage: "connect to a realtime domain and print every envelope",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "domain",
						Value: realtime.DomainNotifications,
						Usage: "notifications, chat or calendar",
					},
					&cli.StringFlag{
						Name:  "origin",
						Value: "http://localhost:8000",
						Usage: "server origin; https selects wss",
					},
					&cli.StringFlag{
						Name:     "token",
						Usage:    "access token",
						EnvVars:  []string{"TEAMHUB_TOKEN"},
						Required: true,
					},
				},
				Action: listen,
			},
		},
	}
}
