package main

import (
	"fmt"
	"os"

	"divvy/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; the environment may already carry the settings
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
