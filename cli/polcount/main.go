package main

import (
	"bufio"
	"os"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/SharzyL/polcount/polcount"
)

func main() {
	var opts struct {
		OpsFirst bool   `long:"ops-first" description:"header gives the operation count before the entry count"`
		Inactive bool   `long:"inactive" description:"start with every entry disabled"`
		Loglevel string `short:"l" long:"loglevel" default:"warn"`
	}
	_, err := flags.Parse(&opts)
	if err != nil {
		if flags.WroteHelp(err) {
			return
		} else {
			os.Exit(1)
		}
	}

	logger, err := polcount.NewLogger(opts.Loglevel)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	streamOpts := polcount.StreamOptions{OpsFirst: opts.OpsFirst, Inactive: opts.Inactive}
	err = polcount.RunStream(bufio.NewReaderSize(os.Stdin, 1<<16), os.Stdout, streamOpts, logger)
	if err != nil {
		logger.Fatalw("failed to process stream", zap.Error(err))
	}
}
