package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/SharzyL/polcount/polcount"
)

func main() {
	var opts struct {
		Dict     string `short:"d" required:"" help:"dictionary file, one entry per line"`
		Addr     string `short:"a" default:"127.0.0.1:7710"`
		Snapshot string `short:"s" help:"directory to persist activation state in"`
		Reset    bool   `help:"drop the persisted activation state"`
		Inactive bool   `help:"start with every entry disabled"`

		Loglevel string `default:"info"`
		Verbose  bool
	}
	_ = kong.Parse(&opts)

	loglevel := opts.Loglevel
	if opts.Verbose {
		loglevel = "DEBUG"
	}
	logger, err := polcount.NewLogger(loglevel)
	if err != nil {
		log.Panicf("cannot create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	server, err := polcount.NewServer(polcount.ServerConfig{
		Addr:        opts.Addr,
		DictPath:    opts.Dict,
		SnapshotDir: opts.Snapshot,
		Reset:       opts.Reset,
		Inactive:    opts.Inactive,
	}, logger)
	if err != nil {
		logger.Fatalw("failed to init server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Serve(ctx); err != nil {
		logger.Fatalw("failed to serve", zap.Error(err))
	}
}
