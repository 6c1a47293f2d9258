package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/rioship/cmd/rioship"
	"github.com/arthur-debert/rioship/pkg/style"
)

func main() {
	rootCmd := rioship.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, style.ErrorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}
