package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"teamhub/internal/realtime"
	"teamhub/internal/wsclient"
)

// listen keeps a reconnecting client on one domain and prints every
// envelope it receives until interrupted.
func listen(c *cli.Context) error {
	domain := c.String("domain")
	if !realtime.KnownDomain(domain) {
		return fmt.Errorf("unknown domain %q", domain)
	}
	u, err := wsclient.BuildURL(c.String("origin"), domain)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := wsclient.New(u,
		wsclient.WithBearerToken(c.String("token")),
		wsclient.WithLogger(logrus.WithField("cmd", "listen")),
	)
	client.OnEvent(func(e wsclient.Envelope) {
		fmt.Fprintf(c.App.Writer, "%s %s\n", e.Type, e.Payload)
	})

	// a failed first dial is retried in the background like any other drop
	if err := client.Connect(ctx); err != nil {
		logrus.WithError(err).Warn("initial connect failed, retrying")
	}
	<-ctx.Done()
	return client.Disconnect()
}
