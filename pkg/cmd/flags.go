package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/talonbgp/talon/pkg/neighbors"
	"github.com/urfave/cli/v2"
)

var listenAddrFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "0.0.0.0:179",
	Usage: "Address the BGP listener binds to",
}

var adminAddrFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "admin-addr",
	Value: "127.0.0.1:8081",
	Usage: "Address of the admin API",
}

var monitorAddrFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "monitor-addr",
	Value: "127.0.0.1:8082",
	Usage: "Address of the websocket log monitor",
}

var maxPeersFlag *cli.IntFlag = &cli.IntFlag{
	Name:  "max-peers",
	Value: 0,
	Usage: "Cap on the number of neighbors, 0 uses a small default",
}

var pendingTimeoutFlag *cli.DurationFlag = &cli.DurationFlag{
	Name:  "pending-timeout",
	Value: time.Second * 30,
	Usage: "How long an accepted connection may wait for a session before it is dropped",
}

var neighborFlag *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name: "neighbor",
	Usage: "Neighbor definition as comma-separated key=value pairs, " +
		"for example address=10.0.0.1,asn=64512,passive. May be repeated",
}

var neighborSeedFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "neighbor-seed",
	Value: "",
	Usage: "Path to a JSON file with neighbors loaded on startup",
}

var neighborStorageDBFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "neighbor-storage-db",
	Value: "",
	Usage: "Path to the neighbor database. If left empty, neighbors are stored in memory",
}

var basicAuthUsernameFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "basic-auth-username",
	Value: "",
}

var basicAuthPasswordFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "basic-auth-password",
	Value: "",
}

var dialPortFlag *cli.IntFlag = &cli.IntFlag{
	Name:  "dial-port",
	Value: 179,
	Usage: "Port used when dialing non-passive neighbors",
}

var dialTimeoutFlag *cli.DurationFlag = &cli.DurationFlag{
	Name:  "dial-timeout",
	Value: time.Second * 5,
}

// parseNeighborDefinition turns one --neighbor value into a storable
// neighbor record.
func parseNeighborDefinition(definition string) (neighbors.Neighbor, error) {
	var neighbor neighbors.Neighbor
	for _, field := range strings.Split(definition, ",") {
		kv := strings.SplitN(field, "=", 2)
		switch kv[0] {
		case "address":
			if len(kv) != 2 {
				return neighbor, fmt.Errorf("invalid neighbor value %s: address needs a value", definition)
			}
			neighbor.Address = kv[1]
		case "asn":
			if len(kv) != 2 {
				return neighbor, fmt.Errorf("invalid neighbor value %s: asn needs a value", definition)
			}
			asn, parseErr := strconv.ParseUint(kv[1], 10, 32)
			if parseErr != nil {
				return neighbor, fmt.Errorf("invalid neighbor value %s: %w", definition, parseErr)
			}
			neighbor.ASN = uint32(asn)
		case "description":
			if len(kv) == 2 {
				neighbor.Description = kv[1]
			}
		case "passive":
			neighbor.Passive = len(kv) == 1 || kv[1] == "true"
		case "ttl":
			if len(kv) != 2 {
				return neighbor, fmt.Errorf("invalid neighbor value %s: ttl needs a value", definition)
			}
			ttl, parseErr := strconv.Atoi(kv[1])
			if parseErr != nil {
				return neighbor, fmt.Errorf("invalid neighbor value %s: %w", definition, parseErr)
			}
			neighbor.AcceptTTL = ttl
		default:
			return neighbor, fmt.Errorf("invalid neighbor value %s: could not recognize `%s` field", definition, kv[0])
		}
	}
	if neighbor.Address == "" || neighbor.ASN == 0 {
		return neighbor, fmt.Errorf("you need to set both `address` and `asn` fields, got: %s", definition)
	}
	return neighbor, nil
}
