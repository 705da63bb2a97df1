package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corey/pmatch/internal/ports"
)

// Backend does the work behind the daemon's requests. Implementations must
// be safe for concurrent use.
type Backend interface {
	Signatures() int
	Strategy() string
	ScanTree(ctx context.Context, root string) (*ports.ScanReport, error)
	MatchFile(ctx context.Context, path string, pattern []byte, strategy string) ([]int, error)
}

// Server is the daemon that listens on a Unix socket and serves scan requests.
type Server struct {
	backend  Backend
	listener net.Listener
	sockPath string
	started  time.Time
	scans    atomic.Int64

	ctx    context.Context // cancelled by Stop; aborts in-flight scans
	cancel context.CancelFunc

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by backend.
func NewServer(backend Backend, sockPath string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		backend:    backend,
		sockPath:   sockPath,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first; if the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener, cancels running requests, waits for connections
// to drain and removes the socket file. Idempotent.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

// Accept retry delays after a failed Accept, e.g. when the process is out of
// file descriptors.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			select {
			case <-s.done:
				return
			case <-time.After(delay):
				continue
			}
		}
		delay = 0
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the read below when the server stops.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-s.done:
			conn.SetReadDeadline(time.Now())
		case <-connDone:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024) // patterns can be large

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodHealth:
		return s.handleHealth(req)
	case MethodScan:
		return s.handleScan(req)
	case MethodMatch:
		return s.handleMatch(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

func (s *Server) handleHealth(req Request) Response {
	return Response{
		ID: req.ID,
		Result: HealthResult{
			Status:     "ok",
			Signatures: s.backend.Signatures(),
			Strategy:   s.backend.Strategy(),
			Scans:      int(s.scans.Load()),
			Uptime:     time.Since(s.started).Round(time.Second).String(),
		},
	}
}

func (s *Server) handleScan(req Request) Response {
	var params ScanParams
	if err := decodeParams(req.Params, &params); err != nil || params.Root == "" {
		return Response{ID: req.ID, Error: "invalid scan params"}
	}

	start := time.Now()
	report, err := s.backend.ScanTree(s.ctx, params.Root)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	s.scans.Add(1)
	return Response{
		ID:     req.ID,
		Result: ScanResult{Report: report, Elapsed: time.Since(start).String()},
	}
}

func (s *Server) handleMatch(req Request) Response {
	var params MatchParams
	if err := decodeParams(req.Params, &params); err != nil || params.Path == "" {
		return Response{ID: req.ID, Error: "invalid match params"}
	}

	start := time.Now()
	offsets, err := s.backend.MatchFile(s.ctx, params.Path, params.Pattern, params.Strategy)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{
		ID: req.ID,
		Result: MatchResult{
			Offsets: offsets,
			Count:   len(offsets),
			Elapsed: time.Since(start).String(),
		},
	}
}

// decodeParams converts the generic params of a decoded request into a typed
// struct by a JSON round trip.
func decodeParams(params any, target any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
