package main

import (
	"os"

	"github.com/erkineren/repository-relay/internal/commands"
	"github.com/erkineren/repository-relay/internal/logger"
)

func main() {
	if err := commands.Execute(); err != nil {
		logger.Error().Err(err).Msg("relay failed")
		os.Exit(1)
	}
}
