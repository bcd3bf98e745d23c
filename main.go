package main

import (
	"flag"
	"fmt"
	"os"

	"browser_agent/presentation/terminal"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file read before the environment")
	flag.Parse()

	os.Exit(run(*envFile))
}

func run(envFile string) int {
	termInterface, err := terminal.NewTerminalInterface(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer func() {
		if err := termInterface.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close: %v\n", err)
		}
	}()

	if err := termInterface.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
