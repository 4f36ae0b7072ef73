package polcount

import (
	"context"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// startServer serves s in-process and returns a connected client.
func startServer(t *testing.T, s *Server) *CounterClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.ServeListener(ctx, lis)
	}()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), DefaultRpcTimeout)
	defer dialCancel()
	conn, err := grpc.DialContext(dialCtx, "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithInsecure(), grpc.WithBlock())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return NewCounterClient(conn)
}

func TestRpc_Counter(t *testing.T) {
	logger := zap.NewNop().Sugar()
	s := newServer("bufnet", NewCounter([]string{"a", "ab", "b"}, logger), nil, logger)
	require.NoError(t, s.restore(true))
	client := startServer(t, s)
	ctx := context.Background()

	cnt, err := client.Query(ctx, "ab")
	require.NoError(t, err)
	assert.EqualValues(t, 3, cnt)

	require.NoError(t, client.Disable(ctx, 2))
	cnt, err = client.Query(ctx, "ab")
	require.NoError(t, err)
	assert.EqualValues(t, 2, cnt)

	require.NoError(t, client.Disable(ctx, 1))
	require.NoError(t, client.Disable(ctx, 3))
	require.NoError(t, client.Enable(ctx, 2))
	cnt, err = client.Query(ctx, "ab")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cnt)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Fields["entries"].GetNumberValue())
	assert.EqualValues(t, 1, stats.Fields["active"].GetNumberValue())
	assert.EqualValues(t, 3, stats.Fields["queries"].GetNumberValue())
	assert.EqualValues(t, 4, stats.Fields["toggles"].GetNumberValue())
}

func TestRpc_InvalidIndex(t *testing.T) {
	logger := zap.NewNop().Sugar()
	s := newServer("bufnet", NewCounter([]string{"a"}, logger), nil, logger)
	client := startServer(t, s)

	err := client.Enable(context.Background(), 2)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = client.Disable(context.Background(), 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRpc_ConcurrentQueries(t *testing.T) {
	logger := zap.NewNop().Sugar()
	s := newServer("bufnet", NewCounter([]string{"he", "she", "his", "hers"}, logger), nil, logger)
	require.NoError(t, s.restore(true))
	client := startServer(t, s)

	wg := sync.WaitGroup{}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				cnt, err := client.Query(context.Background(), "ushers")
				if assert.NoError(t, err) {
					assert.EqualValues(t, 3, cnt)
				}
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 16*20, s.queries.Load())
}

func TestRpc_ConcurrentTogglesAndQueries(t *testing.T) {
	logger := zap.NewNop().Sugar()
	patterns := []string{"a", "aa", "ab", "b", "bab", "ab"}
	s := newServer("bufnet", NewCounter(patterns, logger), nil, logger)
	client := startServer(t, s)

	const text = "aababbab"
	full := NewCounter(patterns, logger)
	full.EnableAll()
	maxCnt := full.Query(text)
	require.NotZero(t, maxCnt)

	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for j := 0; j < 50; j++ {
				idx := uint32(1 + rng.Intn(len(patterns)))
				var err error
				if rng.Intn(2) == 0 {
					err = client.Enable(context.Background(), idx)
				} else {
					err = client.Disable(context.Background(), idx)
				}
				assert.NoError(t, err)
			}
		}(int64(i))
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				cnt, err := client.Query(context.Background(), text)
				if assert.NoError(t, err) {
					assert.LessOrEqual(t, cnt, maxCnt)
				}
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 8*50, s.toggles.Load())
	assert.EqualValues(t, 8*50, s.queries.Load())

	// quiescent again, so the count matches the final active set exactly
	cnt, err := client.Query(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, bruteQuery(s.counter, text), cnt)

	for idx := uint32(1); idx <= uint32(len(patterns)); idx++ {
		require.NoError(t, client.Disable(context.Background(), idx))
	}
	cnt, err = client.Query(context.Background(), text)
	require.NoError(t, err)
	assert.Zero(t, cnt)
}

func TestServer_ToggleRevertedWhenDumpFails(t *testing.T) {
	logger := zap.NewNop().Sugar()
	dictPath := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(dictPath, []byte("a\nab\nb\n"), 0644))
	snapDir := filepath.Join(t.TempDir(), "snap")
	require.NoError(t, os.Mkdir(snapDir, 0755))

	s, err := NewServer(ServerConfig{Addr: "bufnet", DictPath: dictPath, SnapshotDir: snapDir}, logger)
	require.NoError(t, err)
	require.NoError(t, s.toggle(1, false))
	assert.EqualValues(t, 1, s.toggles.Load())

	// no place left to dump to
	require.NoError(t, os.RemoveAll(snapDir))
	assert.Error(t, s.toggle(2, false))
	assert.Error(t, s.toggle(1, true))

	active, err := s.counter.IsActive(2)
	require.NoError(t, err)
	assert.True(t, active)
	active, err = s.counter.IsActive(1)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, []int{2, 3}, s.counter.ActiveEntries())
	assert.EqualValues(t, 1, s.toggles.Load())
	assert.EqualValues(t, 2, s.counter.Query("ab"))

	// once the dir is back, toggles go through again
	require.NoError(t, os.Mkdir(snapDir, 0755))
	require.NoError(t, s.toggle(2, false))
	assert.Equal(t, []int{3}, s.counter.ActiveEntries())
	assert.EqualValues(t, 2, s.toggles.Load())
}

func TestServer_SnapshotRestore(t *testing.T) {
	logger := zap.NewNop().Sugar()
	dir := t.TempDir()
	dictPath := filepath.Join(dir, "dict.txt")
	require.NoError(t, os.WriteFile(dictPath, []byte("a\nab\nb\n"), 0644))
	cfg := ServerConfig{Addr: "bufnet", DictPath: dictPath, SnapshotDir: dir}

	s, err := NewServer(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, s.counter.ActiveEntries())
	require.NoError(t, s.toggle(2, false))

	// a restarted server picks up the toggle
	s, err = NewServer(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, s.counter.ActiveEntries())
	assert.EqualValues(t, 2, s.counter.Query("ab"))

	// reset drops the snapshot
	cfg.Reset = true
	cfg.Inactive = true
	s, err = NewServer(cfg, logger)
	require.NoError(t, err)
	assert.Empty(t, s.counter.ActiveEntries())

	// a snapshot for another dictionary is refused
	cfg.Reset = false
	require.NoError(t, s.toggle(1, true))
	require.NoError(t, os.WriteFile(dictPath, []byte("x\ny\n"), 0644))
	_, err = NewServer(cfg, logger)
	assert.Error(t, err)
}
