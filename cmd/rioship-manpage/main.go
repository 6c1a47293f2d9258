package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/rioship/cmd/rioship"
	"github.com/arthur-debert/rioship/internal/version"
)

func main() {
	rootCmd := rioship.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "RIOSHIP",
		Section: "1",
		Source:  "rioship " + version.Version,
		Manual:  "rioship manual",
	}

	if err := doc.GenMan(rootCmd, header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
