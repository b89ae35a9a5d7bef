package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/level-fi/llp-tracker/app/scheduler"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := scheduler.Initialize(ctx)
	if err != nil {
		panic(err)
	}

	app.Start(ctx)
}
