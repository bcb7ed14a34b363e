// Command granted assembles grounded prompts for a writing assistant.
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/boovines/Granted/internal/adapters/driving/cli"
	"github.com/boovines/Granted/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("loading .env: %v", err)
	}

	cli.SetVersion(version)
	cli.SetInitializer(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
