package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/locvowork/attendance_bot/internal/bootstrap"
	"github.com/locvowork/attendance_bot/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := bootstrap.NewApp()
	if err := app.Initialize(ctx); err != nil {
		logger.ErrorLog(ctx, "Failed to initialize application: %v", err)
		log.Fatal(err)
	}

	if err := app.Run(ctx); err != nil {
		logger.ErrorLog(ctx, "Application stopped with error: %v", err)
		log.Fatal(err)
	}
	logger.InfoLog(ctx, "Bye")
}
