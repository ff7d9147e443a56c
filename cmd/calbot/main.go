package main

import (
	"fmt"
	"os"

	"github.com/tillberg/autorestart"

	"github.com/owenmorgan/calbot/internal/cli"
)

func main() {
	go autorestart.RestartOnChange()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
