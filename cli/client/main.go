package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/jessevdk/go-flags"
	"google.golang.org/grpc"

	"github.com/SharzyL/polcount/polcount"
)

type GlobalOpts struct {
	Server string `short:"a" long:"server" default:"127.0.0.1:7710"`
}

var globalOpts GlobalOpts

func newClient() (*polcount.CounterClient, *grpc.ClientConn) {
	ctx, cancel := context.WithTimeout(context.Background(), polcount.DefaultRpcTimeout)
	defer cancel()
	conn, err := grpc.DialContext(ctx, globalOpts.Server, grpc.WithInsecure(), grpc.WithBlock())
	if err != nil {
		log.Fatalf("cannot dial %s: %v", globalOpts.Server, err)
	}
	return polcount.NewCounterClient(conn), conn
}

func parseIndices(args []string) ([]uint32, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no entry index given")
	}
	idxs := make([]uint32, 0, len(args))
	for _, arg := range args {
		idx, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad entry index %q", arg)
		}
		idxs = append(idxs, uint32(idx))
	}
	return idxs, nil
}

//-------------------------
// Enable / Disable command
//-------------------------

type ToggleCmd struct {
	active bool
}

func (x *ToggleCmd) Execute(args []string) error {
	idxs, err := parseIndices(args)
	if err != nil {
		return err
	}
	client, conn := newClient()
	defer conn.Close()

	for _, idx := range idxs {
		ctx, cancel := context.WithTimeout(context.Background(), polcount.DefaultRpcTimeout)
		if x.active {
			err = client.Enable(ctx, idx)
		} else {
			err = client.Disable(ctx, idx)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("failed to toggle entry %d: %v", idx, err)
		}
	}
	return nil
}

//-------------------------
// Query command
//-------------------------

type QueryCmd struct{}

func (x *QueryCmd) Execute(args []string) error {
	client, conn := newClient()
	defer conn.Close()

	for _, text := range args {
		ctx, cancel := context.WithTimeout(context.Background(), polcount.DefaultRpcTimeout)
		cnt, err := client.Query(ctx, text)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to query: %v", err)
		}
		fmt.Println(cnt)
	}
	return nil
}

//-------------------------
// Stats command
//-------------------------

type StatsCmd struct{}

func (x *StatsCmd) Execute(args []string) error {
	client, conn := newClient()
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), polcount.DefaultRpcTimeout)
	defer cancel()
	stats, err := client.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %v", err)
	}

	keys := make([]string, 0, len(stats.Fields))
	for k := range stats.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-8s %d\n", k+":", int64(stats.Fields[k].GetNumberValue()))
	}
	return nil
}

func main() {
	enableCommand := ToggleCmd{active: true}
	disableCommand := ToggleCmd{active: false}
	var queryCommand QueryCmd
	var statsCommand StatsCmd

	parser := flags.NewParser(&globalOpts, flags.Default)
	parser.Name = "polcount-client"
	_, _ = parser.AddCommand("enable", "enable entries", "enable entries by 1-based index", &enableCommand)
	_, _ = parser.AddCommand("disable", "disable entries", "disable entries by 1-based index", &disableCommand)
	_, _ = parser.AddCommand("query", "count active entries", "count active entries in each text", &queryCommand)
	_, _ = parser.AddCommand("stats", "show server stats", "show server stats", &statsCommand)

	_, err := parser.Parse()
	if err != nil {
		if flags.WroteHelp(err) {
			return
		} else {
			os.Exit(1)
		}
	}
}
