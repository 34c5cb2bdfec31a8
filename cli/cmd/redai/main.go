package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/xaviserrafigueras/RedAI/cli/internal/cli/cortex"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
