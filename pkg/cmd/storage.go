package cmd

import (
	"github.com/talonbgp/talon/pkg/neighbors"
	"github.com/urfave/cli/v2"
)

func getNeighborStorage(c *cli.Context) neighbors.Storage {
	if c.String(neighborStorageDBFlag.Name) == "" {
		return neighbors.NewInMemoryStorage()
	}
	return neighbors.NewBoltStorage(c.String(neighborStorageDBFlag.Name))
}
