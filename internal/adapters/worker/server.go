package worker

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// tombstoneTTL bounds how long a cancel for a unit that never arrives is kept.
const tombstoneTTL = time.Minute

// Server serves compilations for the orchestrator.
type Server struct {
	lifecycle  *Lifecycle
	loader     ports.ToolchainLoader
	workDir    string
	grpcServer *grpc.Server

	loadMu     sync.Mutex
	toolchains map[string]ports.Toolchain

	mu         sync.Mutex
	inflight   map[string]*domain.Cancellation
	tombstones map[string]time.Time
}

var _ WorkerServer = (*Server)(nil)

// NewServer creates a worker server listening in workDir.
func NewServer(lifecycle *Lifecycle, loader ports.ToolchainLoader, workDir string) *Server {
	s := &Server{
		lifecycle:  lifecycle,
		loader:     loader,
		workDir:    workDir,
		grpcServer: grpc.NewServer(grpc.ForceServerCodec(codec{})),
		toolchains: make(map[string]ports.Toolchain),
		inflight:   make(map[string]*domain.Cancellation),
		tombstones: make(map[string]time.Time),
	}
	s.grpcServer.RegisterService(&serviceDesc, s)
	return s
}

// Serve listens on the worker socket until ctx is done or the lifecycle shuts down.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.MkdirAll(s.workDir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create worker directory")
	}

	socketPath := domain.WorkerSocketPath(s.workDir)
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return zerr.Wrap(err, "failed to remove stale socket")
	}

	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to listen on worker socket"), "socket", socketPath)
	}
	if err := os.Chmod(socketPath, domain.SocketPerm); err != nil {
		_ = lis.Close()
		return zerr.Wrap(err, "failed to set socket permissions")
	}

	if err := s.writePIDFile(); err != nil {
		_ = lis.Close()
		return err
	}
	defer s.cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.GracefulStop()
		return ctx.Err()
	case <-s.lifecycle.ShutdownChan():
		s.grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	_ = os.Remove(domain.WorkerSocketPath(s.workDir))
	_ = os.Remove(domain.WorkerPIDPath(s.workDir))
}

func (s *Server) writePIDFile() error {
	path := domain.WorkerPIDPath(s.workDir)
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), domain.PrivateFilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write worker PID file"), "path", path)
	}
	return nil
}

// Ping implements WorkerServer.
func (s *Server) Ping(_ context.Context, _ *PingRequest) (*PingResponse, error) {
	s.lifecycle.ResetTimer()
	return &PingResponse{IdleRemainingSeconds: int64(s.lifecycle.IdleRemaining().Seconds())}, nil
}

// Status implements WorkerServer.
func (s *Server) Status(_ context.Context, _ *StatusRequest) (*StatusResponse, error) {
	s.lifecycle.ResetTimer()
	s.mu.Lock()
	inflight := len(s.inflight)
	s.mu.Unlock()
	return &StatusResponse{
		Running:              true,
		Pid:                  os.Getpid(),
		UptimeSeconds:        int64(s.lifecycle.Uptime().Seconds()),
		LastActivityUnix:     s.lifecycle.LastActivity().Unix(),
		IdleRemainingSeconds: int64(s.lifecycle.IdleRemaining().Seconds()),
		InFlight:             inflight,
	}, nil
}

// Shutdown implements WorkerServer.
func (s *Server) Shutdown(_ context.Context, _ *ShutdownRequest) (*ShutdownResponse, error) {
	s.lifecycle.Shutdown()
	return &ShutdownResponse{Success: true}, nil
}

// Compile implements WorkerServer.
func (s *Server) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	if req.Unit == nil || req.Unit.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "unit of work with an id is required")
	}

	s.lifecycle.Begin()
	defer s.lifecycle.End()

	tc, err := s.toolchain(ctx, req.Artifacts)
	if err != nil {
		return &CompileResponse{Code: domain.ResultInternalError, Error: err.Error()}, nil
	}

	cancel := s.track(ctx, req.Unit.ID)
	defer s.untrack(req.Unit.ID)

	if req.Barrier != "" {
		if err := await(ctx, req.Barrier); err != nil {
			return &CompileResponse{Code: domain.ResultInternalError, Error: err.Error()}, nil
		}
	}

	sink := &collector{}
	code, err := tc.Compile(ctx, req.Unit, cancel, sink)
	cancel.Finish()

	resp := &CompileResponse{Code: code, Diagnostics: sink.entries}
	switch {
	case errors.Is(err, domain.ErrCompilationCancelled):
		resp.Cancelled = true
	case err != nil:
		resp.Code = domain.ResultInternalError
		resp.Error = err.Error()
	}
	return resp, nil
}

// Cancel implements WorkerServer. A cancel for a unit that has not arrived
// yet is remembered and applied when the unit arrives.
func (s *Server) Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error) {
	s.lifecycle.ResetTimer()

	s.mu.Lock()
	c, ok := s.inflight[req.UnitID]
	if !ok {
		now := time.Now()
		for id, at := range s.tombstones {
			if now.Sub(at) > tombstoneTTL {
				delete(s.tombstones, id)
			}
		}
		s.tombstones[req.UnitID] = now
		s.mu.Unlock()
		return &CancelResponse{Pending: true}, nil
	}
	s.mu.Unlock()

	if err := c.Request(ctx); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &CancelResponse{}, nil
}

func (s *Server) track(ctx context.Context, id string) *domain.Cancellation {
	cancel := domain.NewCancellation()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, cancelled := s.tombstones[id]; cancelled {
		delete(s.tombstones, id)
		_ = cancel.Request(ctx)
	}
	s.inflight[id] = cancel
	return cancel
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// toolchain loads the artifact set once and reuses it for later compilations.
func (s *Server) toolchain(ctx context.Context, artifacts []string) (ports.Toolchain, error) {
	key := strings.Join(artifacts, string(filepath.ListSeparator))
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if tc, ok := s.toolchains[key]; ok {
		return tc, nil
	}
	tc, err := s.loader.Load(ctx, artifacts)
	if err != nil {
		return nil, err
	}
	s.toolchains[key] = tc
	return tc, nil
}

// collector gathers diagnostics to return them with the compile response.
type collector struct {
	mu      sync.Mutex
	entries []Diagnostic
}

func (c *collector) Report(level domain.LogLevel, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Diagnostic{Level: level, Message: msg})
}
