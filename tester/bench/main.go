package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/schollz/progressbar/v3"

	"github.com/SharzyL/polcount/polcount"
)

func randWord(alphabet string, n int) string {
	sb := strings.Builder{}
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[rand.Intn(len(alphabet))])
	}
	return sb.String()
}

type benchOpts struct {
	NumEntries int    `short:"k" long:"entries" default:"10000"`
	MaxLen     int    `short:"m" long:"max-len" default:"10"`
	NumOps     int    `short:"n" long:"ops" default:"100000"`
	QueryLen   int    `short:"q" long:"query-len" default:"1000"`
	Alphabet   string `short:"a" long:"alphabet" default:"abcdefghij"`
	Seed       int64  `long:"seed" default:"1"`
}

func (o *benchOpts) check() error {
	if o.NumEntries <= 0 {
		return fmt.Errorf("--entries must be positive, got %d", o.NumEntries)
	}
	if o.MaxLen <= 0 {
		return fmt.Errorf("--max-len must be positive, got %d", o.MaxLen)
	}
	if o.NumOps < 0 || o.QueryLen < 0 {
		return fmt.Errorf("--ops and --query-len must not be negative")
	}
	if o.Alphabet == "" {
		return fmt.Errorf("--alphabet must not be empty")
	}
	return nil
}

func main() {
	var opts benchOpts
	_, err := flags.Parse(&opts)
	if err != nil {
		if flags.WroteHelp(err) {
			return
		} else {
			os.Exit(1)
		}
	}
	if err := opts.check(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rand.Seed(opts.Seed)

	patterns := make([]string, opts.NumEntries)
	for i := range patterns {
		patterns[i] = randWord(opts.Alphabet, 1+rand.Intn(opts.MaxLen))
	}

	logger, _ := polcount.NewLogger("info")
	startTime := time.Now()
	counter := polcount.NewCounter(patterns, logger)
	counter.EnableAll()
	fmt.Printf("built %d states for %d entries after %d ms\n",
		counter.States(), counter.Len(), time.Now().Sub(startTime).Milliseconds())

	sep := 1000
	bar := progressbar.Default(int64(opts.NumOps))
	total := uint64(0)
	numQueries := 0
	startTime = time.Now()
	for i := 0; i < opts.NumOps; i++ {
		if rand.Intn(2) == 0 {
			idx := 1 + rand.Intn(counter.Len())
			if rand.Intn(2) == 0 {
				_ = counter.Enable(idx)
			} else {
				_ = counter.Disable(idx)
			}
		} else {
			total += counter.Query(randWord(opts.Alphabet, opts.QueryLen))
			numQueries++
		}
		if (i+1)%sep == 0 {
			_ = bar.Add(sep)
		}
	}
	_ = bar.Finish()
	opsTime := time.Now().Sub(startTime)

	fmt.Printf("%d ops (%d queries, %d matches) finished after %d ms\n",
		opts.NumOps, numQueries, total, opsTime.Milliseconds())
}
