package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/joeynyc/Citadel-Local/internal/cli"
)

func main() {
	// Local .env files may carry CITADEL_* and OLLAMA_HOST settings. Values
	// already in the environment win.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	os.Exit(cli.Run())
}
