package main

import (
	"github.com/joho/godotenv"

	"cross-arb/internal/cli"
)

func main() {
	// Missing .env is fine; credentials may come from the real environment.
	_ = godotenv.Load()

	cli.Execute()
}
