// Package main is the ikdata command itself.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.viam.com/ikdata/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cli.NewApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		stop()
		log.Fatal(err)
	}
}
