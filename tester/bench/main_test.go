package main

import (
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseBenchOpts(t *testing.T, args ...string) *benchOpts {
	t.Helper()
	opts := &benchOpts{}
	_, err := flags.ParseArgs(opts, args)
	require.NoError(t, err)
	return opts
}

func TestBenchOpts_Check(t *testing.T) {
	assert.NoError(t, parseBenchOpts(t).check())
	assert.NoError(t, parseBenchOpts(t, "-k", "1", "-m", "1", "-n", "0", "-q", "0").check())

	for _, args := range [][]string{
		{"--max-len", "0"},
		{"--entries", "0"},
		{"--entries=-3"},
		{"--ops=-1"},
		{"--query-len=-1"},
		{"--alphabet", ""},
	} {
		assert.Error(t, parseBenchOpts(t, args...).check(), "%v", args)
	}
}
