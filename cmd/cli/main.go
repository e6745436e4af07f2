package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophchest/internal/client/cli"
	"github.com/dmitrijs2005/gophchest/internal/client/config"
	"github.com/dmitrijs2005/gophchest/internal/logging"
)

func main() {

	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	initSignalHandler(cancel)

	app, closeFn, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeFn()

	app.Run(ctx)

}

// initSignalHandler cancels in-flight requests on SIGINT or SIGTERM; the
// REPL stops before its next prompt.
func initSignalHandler(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigs
		cancel()
	}()
}
