package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/talonbgp/talon/pkg/api"
	"github.com/urfave/cli/v2"
)

func configureAPISettings(cliCtx *cli.Context) api.Settings {
	username := cliCtx.String(basicAuthUsernameFlag.Name)
	password := cliCtx.String(basicAuthPasswordFlag.Name)
	if username == "" || password == "" {
		logrus.Info(
			"State-changing API endpoints will not be enabled - " +
				"either basic auth username or password is missing",
		)
		return api.Settings{}
	}
	return api.Settings{
		BasicAuthUsername: username,
		BasicAuthPassword: password,
	}
}
