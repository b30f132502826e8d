// Package main is the entry point for the graphize CLI.
//
// Usage:
//
//	graphize [flags] OUTPUT_TYPE DESTINATION
//
// Output types:
//
//	pajek  - Pajek text network file
//	sylva  - Sylva JSON graph document
//	neo4j  - remote graph server at DESTINATION
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-graphize/cmd/graphize/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
