package polcount

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

type ServerConfig struct {
	Addr        string
	DictPath    string
	SnapshotDir string // empty disables persistence
	Reset       bool   // drop any existing snapshot
	Inactive    bool   // start with every entry disabled when there is no snapshot
}

// Server serves one Counter over gRPC. Toggles are persisted to the snapshot
// dir, if configured, before they are acknowledged.
type Server struct {
	Addr string

	counter *Counter
	storage *storageMgr // might be nil

	dictDigest string

	toggleMtx *sync.Mutex // orders toggles with their snapshot dumps
	queries   *atomic.Uint64
	toggles   *atomic.Uint64

	logger *zap.SugaredLogger
}

func NewServer(cfg ServerConfig, logger *zap.SugaredLogger) (*Server, error) {
	patterns, err := loadDictionary(cfg.DictPath)
	if err != nil {
		return nil, err
	}
	logger.Infow("dictionary loaded",
		zap.String("path", cfg.DictPath),
		zap.Int("entries", len(patterns)))

	var storage *storageMgr
	if cfg.SnapshotDir != "" {
		storage, err = newStorageMgr(cfg.SnapshotDir)
		if err != nil {
			return nil, err
		}
		if cfg.Reset {
			if err := storage.removeSnapshot(); err != nil {
				return nil, err
			}
		}
	}

	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	s := newServer(addr, NewCounter(patterns, logger), storage, logger)
	if err := s.restore(!cfg.Inactive); err != nil {
		return nil, err
	}
	return s, nil
}

func newServer(addr string, counter *Counter, storage *storageMgr, logger *zap.SugaredLogger) *Server {
	return &Server{
		Addr:       addr,
		counter:    counter,
		storage:    storage,
		dictDigest: dictionaryDigest(counter.Patterns()),
		toggleMtx:  &sync.Mutex{},
		queries:    atomic.NewUint64(0),
		toggles:    atomic.NewUint64(0),
		logger:     logger,
	}
}

// restore applies the snapshot if there is one, otherwise enables every
// entry when enableAll is set.
func (s *Server) restore(enableAll bool) error {
	var snap *snapshot
	if s.storage != nil {
		var err error
		if snap, err = s.storage.LoadSnapshot(); err != nil {
			return err
		}
	}
	if snap == nil {
		if enableAll {
			s.counter.EnableAll()
		}
		return nil
	}

	if snap.DictDigest != s.dictDigest {
		return fmt.Errorf("snapshot in %s was taken with a different dictionary", s.storage.Folder)
	}
	for _, idx := range snap.Active {
		if err := s.counter.Enable(idx); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
	}
	s.logger.Infow("snapshot restored", zap.Int("active", len(snap.Active)))
	return nil
}

// toggle is applied only if it could be persisted.
func (s *Server) toggle(idx int, active bool) error {
	s.toggleMtx.Lock()
	defer s.toggleMtx.Unlock()

	prev, err := s.counter.IsActive(idx)
	if err != nil {
		return err
	}
	if err := s.counter.set(idx, active); err != nil {
		return err
	}
	if s.storage != nil {
		err := s.storage.DumpSnapshot(&snapshot{
			DictDigest: s.dictDigest,
			Active:     s.counter.ActiveEntries(),
		})
		if err != nil {
			_ = s.counter.set(idx, prev)
			s.logger.Errorw("fail to dump snapshot, toggle reverted",
				zap.Int("idx", idx),
				zap.Error(err))
			return fmt.Errorf("dump snapshot: %w", err)
		}
	}
	s.toggles.Inc()
	return nil
}

// Serve listens on s.Addr until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener serves on lis until ctx is done, then stops gracefully.
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	g := grpc.NewServer()
	RegisterCounterServer(g, &counterRpcHandler{s: s})

	s.logger.Infow("start serving",
		zap.String("addr", lis.Addr().String()),
		zap.Int("entries", s.counter.Len()),
		zap.Int("states", s.counter.States()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- g.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.logger.Infow("stop serving",
			zap.Uint64("queries", s.queries.Load()),
			zap.Uint64("toggles", s.toggles.Load()))
		g.GracefulStop()
		return nil
	case err := <-errChan:
		return err
	}
}
