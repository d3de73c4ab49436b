package main

import (
	"os"

	"github.com/Rockthor1106/restaurant-management-api/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
