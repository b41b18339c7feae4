package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/talonbgp/talon/pkg/acceptor"
	"github.com/talonbgp/talon/pkg/api"
	"github.com/talonbgp/talon/pkg/grtn"
	"github.com/talonbgp/talon/pkg/metrics"
	"github.com/talonbgp/talon/pkg/monitor"
	"github.com/talonbgp/talon/pkg/neighbors"
	"github.com/talonbgp/talon/pkg/peerindex"
	"github.com/talonbgp/talon/pkg/sessions"
	"github.com/talonbgp/talon/pkg/wake"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
)

var daemonCommand *cli.Command = &cli.Command{
	Name:  "daemon",
	Usage: "Run the listener, the peer index and the admin APIs",
	Flags: []cli.Flag{
		listenAddrFlag,
		adminAddrFlag,
		monitorAddrFlag,
		maxPeersFlag,
		pendingTimeoutFlag,
		neighborFlag,
		neighborSeedFlag,
		neighborStorageDBFlag,
		basicAuthUsernameFlag,
		basicAuthPasswordFlag,
		dialPortFlag,
		dialTimeoutFlag,
	},
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		storage := getNeighborStorage(c)
		if seedPath := c.String(neighborSeedFlag.Name); seedPath != "" {
			loaded, seedErr := neighbors.LoadSeed(afero.NewOsFs(), seedPath, storage)
			if seedErr != nil {
				return seedErr
			}
			logrus.Infof("Seeded %d neighbors from %s", loaded, seedPath)
		}
		for _, definition := range c.StringSlice(neighborFlag.Name) {
			neighbor, parseErr := parseNeighborDefinition(definition)
			if parseErr != nil {
				return parseErr
			}
			if storeErr := storage.Store(neighbor); storeErr != nil {
				return storeErr
			}
		}

		index := peerindex.NewIndex(peerindex.Config{
			MaxPeers: c.Int(maxPeersFlag.Name),
		})

		monitorHub := monitor.NewHub(wake.NewWaker(), 0)
		logrus.AddHook(monitor.NewHook(monitorHub))
		grtn.Go(func() {
			if hubErr := monitorHub.Run(ctx); hubErr != nil {
				logrus.Error(hubErr)
			}
		})
		monitorServer := monitor.NewServer(monitorHub, c.String(monitorAddrFlag.Name))
		grtn.Go(func() {
			if listenErr := monitorServer.Listen(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
				logrus.Fatal(listenErr)
			}
		})

		sessionWaker := wake.NewWaker()
		manager := sessions.NewManager(
			index,
			sessionWaker,
			nil,
			sessions.NewNetDialer(c.Int(dialPortFlag.Name), c.Duration(dialTimeoutFlag.Name)),
		)

		stored, listErr := storage.List()
		if listErr != nil {
			return listErr
		}
		for _, neighbor := range stored {
			peer, peerErr := neighbor.Peer()
			if peerErr != nil {
				logrus.Warnf("Skipping stored neighbor %s: %v", neighbor.Address, peerErr)
				continue
			}
			if _, addErr := manager.AddPeer(ctx, peer); addErr != nil {
				logrus.Warnf("Could not add neighbor %s: %v", peer, addErr)
			}
		}

		theAcceptor := acceptor.NewAcceptor(index, sessionWaker, acceptor.Config{
			ListenAddr:     c.String(listenAddrFlag.Name),
			PendingTimeout: c.Duration(pendingTimeoutFlag.Name),
		})
		if listenErr := theAcceptor.Listen(); listenErr != nil {
			return listenErr
		}

		startPrometheusServer(c, metrics.NewCollector(index))

		adminAPI := api.NewAdminAPI([]api.Controller{
			api.NewNeighborController(ctx, storage, manager, index, configureAPISettings(c)),
			api.NewStatusController(index, monitorHub),
		})
		grtn.Go(func() {
			if apiErr := adminAPI.Run(c.String(adminAddrFlag.Name)); apiErr != nil {
				logrus.Fatal(apiErr)
			}
		})

		grtn.Go(func() {
			if managerErr := manager.Run(ctx); managerErr != nil {
				logrus.Error(managerErr)
			}
		})
		grtn.Go(func() {
			if acceptErr := theAcceptor.Run(); acceptErr != nil {
				logrus.Error(acceptErr)
			}
		})

		<-ctx.Done()
		logrus.Info("Shutting down")
		return multierr.Combine(
			theAcceptor.Close(),
			manager.Close(),
		)
	},
}
