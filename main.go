package main

import (
	"github.com/talonbgp/talon/pkg/cmd"
)

func main() {
	cmd.Run()
}
