package main

import (
	"os"

	"snowboard-doctor/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
