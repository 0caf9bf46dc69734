package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eternalApril/moonbeam/internal/config"
	"github.com/eternalApril/moonbeam/internal/logger"
	"github.com/eternalApril/moonbeam/internal/persistence"
	"github.com/eternalApril/moonbeam/internal/server"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "moonbeam",
		Usage: "in-process Redis-compatible data store, served standalone",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: ".", Usage: "directory containing config.yaml"},
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "override the listen port"},
			&cli.IntFlag{Name: "databases", Usage: "override the number of databases"},
			&cli.StringFlag{Name: "loglevel", Usage: "override the log level"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.String("port")
	}
	if c.IsSet("databases") {
		cfg.Databases = c.Int("databases")
	}
	if c.IsSet("loglevel") {
		cfg.Log.Level = c.String("loglevel")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	log.Info("moonbeam starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("databases", cfg.Databases),
	)

	eng, err := server.NewEngine(cfg, log)
	if err != nil {
		log.Error("cant initialize engine", zap.Error(err))
		return err
	}

	if cfg.Persistence.Snapshot.Enabled {
		eng.SetSnapshotter(persistence.NewFileSnapshotter(cfg.Persistence.Snapshot.Filename, log))
	} else {
		eng.SetSnapshotter(persistence.NewMemorySnapshotter())
	}

	address := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Error("listener error", zap.Error(err))
		return err
	}
	log.Info("listening on", zap.String("address", address))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(eng, log)
	go func() {
		if err := srv.Serve(listener); err != nil {
			log.Error("serve error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("shutting down...")

	listener.Close() //nolint:errcheck
	eng.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		srv.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("all connections closed gracefully")
	case <-shutdownCtx.Done():
		log.Warn("shutdown timed out, forcing exit", zap.Duration("timeout", 5*time.Second))
	}

	log.Info("moonbeam stopped")
	return nil
}
