package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/atomic"
	"google.golang.org/grpc"

	"github.com/SharzyL/polcount/polcount"
)

func main() {
	var opts struct {
		Server      string `short:"a" long:"server" default:"127.0.0.1:7710"`
		NumWorks    int    `short:"n" default:"1000"`
		Concurrency int    `short:"c" default:"20"`
		ToggleRatio int    `short:"t" long:"toggle-ratio" default:"10" description:"percent of works that toggle an entry"`
		QueryLen    int    `short:"q" long:"query-len" default:"100"`
		Alphabet    string `long:"alphabet" default:"abcdefghij"`
	}
	_, err := flags.Parse(&opts)
	if err != nil {
		if flags.WroteHelp(err) {
			return
		} else {
			os.Exit(1)
		}
	}
	if opts.NumWorks < 0 || opts.Concurrency <= 0 || opts.QueryLen < 0 || opts.Alphabet == "" {
		_, _ = fmt.Fprintln(os.Stderr, "concurrency must be positive, works and query-len non-negative, alphabet non-empty")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), polcount.DefaultRpcTimeout)
	conn, err := grpc.DialContext(ctx, opts.Server, grpc.WithInsecure(), grpc.WithBlock())
	cancel()
	if err != nil {
		log.Panicf("failed to dial server: %v", err)
	}
	defer conn.Close()
	client := polcount.NewCounterClient(conn)

	ctx, cancel = context.WithTimeout(context.Background(), polcount.DefaultRpcTimeout)
	stats, err := client.Stats(ctx)
	cancel()
	if err != nil {
		log.Panicf("failed to get stats: %v", err)
	}
	numEntries := int(stats.Fields["entries"].GetNumberValue())

	pool := make(chan struct{}, opts.Concurrency)
	failed := atomic.NewInt64(0)
	matches := atomic.NewUint64(0)
	bar := progressbar.Default(int64(opts.NumWorks))

	startTime := time.Now()
	wg := sync.WaitGroup{}
	wg.Add(opts.NumWorks)
	for i := 0; i < opts.NumWorks; i++ {
		go func(i int) {
			defer wg.Done()
			pool <- struct{}{}
			defer func() {
				<-pool
				_ = bar.Add(1)
			}()

			rng := rand.New(rand.NewSource(int64(i)))
			ctx, cancel := context.WithTimeout(context.Background(), polcount.DefaultRpcTimeout)
			defer cancel()

			var err error
			if numEntries > 0 && rng.Intn(100) < opts.ToggleRatio {
				idx := uint32(1 + rng.Intn(numEntries))
				if rng.Intn(2) == 0 {
					err = client.Enable(ctx, idx)
				} else {
					err = client.Disable(ctx, idx)
				}
			} else {
				text := make([]byte, opts.QueryLen)
				for j := range text {
					text[j] = opts.Alphabet[rng.Intn(len(opts.Alphabet))]
				}
				var cnt uint64
				cnt, err = client.Query(ctx, string(text))
				matches.Add(cnt)
			}
			if err != nil {
				failed.Inc()
				log.Printf("work %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	_ = bar.Finish()

	totalTime := time.Now().Sub(startTime)
	fmt.Printf("%d tasks (%d failed, %d matches) finished after %d ms\n",
		opts.NumWorks, failed.Load(), matches.Load(), totalTime.Milliseconds())
}
