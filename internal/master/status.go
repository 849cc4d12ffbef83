package master

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pkg.jsn.cam/toygrep/pkg/httpx"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// Snapshot is an immutable view of a run's progress
type Snapshot struct {
	RunID     string           `json:"run_id"`
	Op        protocol.Op      `json:"op"`
	Version   string           `json:"version"`
	Tasks     int              `json:"tasks"`
	Pending   int              `json:"pending"`
	Assigned  int              `json:"assigned"`
	Completed int              `json:"completed"`
	Failed    int              `json:"failed"`
	Done      bool             `json:"done"`
	Aborted   bool             `json:"aborted"`
	Workers   []WorkerSnapshot `json:"workers"`
	StartedAt time.Time        `json:"started_at"`
	Elapsed   string           `json:"elapsed"`
}

type WorkerSnapshot struct {
	ID         int    `json:"id"`
	Status     string `json:"status"`
	Task       string `json:"task,omitempty"`
	Tasks      int    `json:"tasks_completed"`
	Terminated bool   `json:"terminated"`
}

// statusBoard lets the HTTP server read progress without touching the
// queue, which belongs to the master loop
type statusBoard struct {
	current atomic.Pointer[Snapshot]
}

func (m *Master) publish() {
	s := m.summary
	snap := &Snapshot{
		RunID:     s.ID,
		Op:        s.Op,
		Version:   protocol.ToyGrepVersion,
		Tasks:     s.Tasks,
		Pending:   m.queue.Pending(),
		Assigned:  m.queue.Assigned(),
		Completed: s.Completed,
		Failed:    s.Failed,
		Done:      m.queue.Done(),
		Aborted:   s.Aborted,
		StartedAt: s.StartedAt,
		Elapsed:   time.Since(s.StartedAt).Round(time.Millisecond).String(),
	}
	for _, h := range m.handles {
		ws := WorkerSnapshot{
			ID:         h.ID,
			Status:     h.Status.String(),
			Tasks:      h.Tasks,
			Terminated: h.Terminated,
		}
		if task, ok := m.queue.Holding(h.ID); ok {
			ws.Task = task.ID
		}
		snap.Workers = append(snap.Workers, ws)
	}

	m.status.current.Store(snap)
}

// Snapshot returns the latest published progress, or nil before Run.
// Safe to call from any goroutine.
func (m *Master) Snapshot() *Snapshot {
	return m.status.current.Load()
}

// SnapshotSource provides the data served by StatusServer
type SnapshotSource interface {
	Snapshot() *Snapshot
}

// StatusServer serves read-only run progress over HTTP
type StatusServer struct {
	source SnapshotSource
	mux    *http.ServeMux
	srv    *http.Server
	log    *zap.Logger
}

func NewStatusServer(source SnapshotSource, log *zap.Logger) *StatusServer {
	if log == nil {
		log = zap.NewNop()
	}

	s := &StatusServer{
		source: source,
		mux:    http.NewServeMux(),
		log:    log.Named("status"),
	}
	s.setupRoutes()

	return s
}

func (s *StatusServer) setupRoutes() {
	s.mux.HandleFunc("GET /api/status", httpx.Wrap(s.handleStatus))
	s.mux.HandleFunc("GET /api/workers/{workerID}", httpx.Wrap(s.handleWorker))
	s.mux.HandleFunc("GET /health", httpx.Wrap(s.handleHealth))
}

func (s *StatusServer) Handler() http.Handler { return s.mux }

func (s *StatusServer) snapshot() (*Snapshot, error) {
	snap := s.source.Snapshot()
	if snap == nil {
		return nil, httpx.WithStatus(http.StatusServiceUnavailable, errors.New("run has not started"))
	}
	return snap, nil
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) error {
	snap, err := s.snapshot()
	if err != nil {
		return err
	}

	httpx.JSON(w, http.StatusOK, snap)
	return nil
}

func (s *StatusServer) handleWorker(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.Atoi(r.PathValue("workerID"))
	if err != nil {
		return httpx.WithStatus(http.StatusBadRequest, fmt.Errorf("invalid worker id %q", r.PathValue("workerID")))
	}

	snap, err := s.snapshot()
	if err != nil {
		return err
	}

	for _, ws := range snap.Workers {
		if ws.ID == id {
			httpx.JSON(w, http.StatusOK, ws)
			return nil
		}
	}

	return httpx.WithStatus(http.StatusNotFound, fmt.Errorf("worker %d not found", id))
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) error {
	httpx.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": protocol.ToyGrepVersion,
	})
	return nil
}

// Start listens on addr and serves in the background. It returns the bound
// address.
func (s *StatusServer) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("status server listen %s: %w", addr, err)
	}

	s.srv = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Status server stopped", zap.Error(err))
		}
	}()

	s.log.Info("Status server listening", zap.String("addr", ln.Addr().String()))

	return ln.Addr(), nil
}

func (s *StatusServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
