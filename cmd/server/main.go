package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/fx"

	"github.com/rl1809/flashsale-engine/cmd/bootstrap"
)

func main() {
	app := fx.New(
		bootstrap.Module,
		fx.StartTimeout(30*time.Second),
		fx.StopTimeout(30*time.Second),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		log.Printf("failed to start flash sale engine: %v", err)
		os.Exit(1)
	}

	sig := <-app.Wait()
	log.Printf("shutting down (%s)...", sig.Signal)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Printf("failed to stop cleanly: %v", err)
		os.Exit(1)
	}
}
