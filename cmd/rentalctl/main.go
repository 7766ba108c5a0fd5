package main

import (
	"os"

	"github.com/segyhp/movie-rental/cmd/rentalctl/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
