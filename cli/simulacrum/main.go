package main

import (
	"os"

	simulacrumcmder "github.com/papercomputeco/simulacrum/cmd/simulacrum"
)

func main() {
	cmd := simulacrumcmder.NewSimulacrumCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
