package cmd

import (
	"time"

	"github.com/talonbgp/talon/pkg/testutils"
	"github.com/urfave/cli/v2"
)

var testpeerCommand *cli.Command = &cli.Command{
	Name:  "testpeer",
	Usage: "Connect to a running daemon and report what happens to the connections",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "target",
			Value: "127.0.0.1:179",
		},
		&cli.IntFlag{
			Name:  "connections",
			Value: 1,
		},
		&cli.DurationFlag{
			Name:  "wait",
			Value: time.Second * 3,
		},
	},
	Action: func(c *cli.Context) error {
		return testutils.RunTestPeer(c.String("target"), c.Int("connections"), c.Duration("wait"))
	},
}
