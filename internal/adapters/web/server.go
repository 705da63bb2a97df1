// Package web serves stored scan reports as JSON over HTTP.
// Binds to localhost only, no auth needed.
package web

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/corey/pmatch/internal/ports"
)

// Reports is the read side of the report store.
type Reports interface {
	ReportNames() ([]string, error)
	LoadReport(name string) (*ports.ScanReport, error)
}

// HealthResult is returned by /api/health.
type HealthResult struct {
	Status  string `json:"status"`
	Reports int    `json:"reports"`
	Uptime  string `json:"uptime"`
}

// ReportSummary is one entry of /api/reports.
type ReportSummary struct {
	Name       string `json:"name"`
	Strategy   string `json:"strategy"`
	Signatures int    `json:"signatures"`
	Files      int    `json:"files"`
	Infected   int    `json:"infected"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	CreatedAt  int64  `json:"created_at"`
}

// Server serves the report API over HTTP.
type Server struct {
	reports  Reports
	listener net.Listener
	httpSrv  *http.Server
	port     int
	started  time.Time
	stopOnce sync.Once

	portFilePath string // .pmatch/run/http.port
}

// NewServer creates an HTTP server for reports.
// The portFilePath is where the bound port is written for discovery.
func NewServer(reports Reports, portFilePath string) *Server {
	return &Server{reports: reports, portFilePath: portFilePath, started: time.Now()}
}

// DefaultPort computes a project-specific port: 19000 + (hash(abs_path) % 1000).
func DefaultPort(projectRoot string) int {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	n := uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3])
	return 19000 + int(n%1000)
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/reports", s.handleReports)
	mux.HandleFunc("GET /api/report", s.handleReport)
	return mux
}

// Start listens on 127.0.0.1:port (0 picks a free port) and writes the bound
// port to the port file.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.started = time.Now()
	s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	if s.portFilePath != "" {
		if err := os.WriteFile(s.portFilePath, []byte(fmt.Sprintf("%d", s.port)), 0644); err != nil {
			ln.Close()
			return fmt.Errorf("write port file: %w", err)
		}
	}

	go s.httpSrv.Serve(ln)
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
		if s.portFilePath != "" {
			os.Remove(s.portFilePath)
		}
	})
}

// Port returns the bound port number.
func (s *Server) Port() int {
	return s.port
}

// URL returns the API base URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names, err := s.reports.ReportNames()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, HealthResult{
		Status:  "ok",
		Reports: len(names),
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	names, err := s.reports.ReportNames()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]ReportSummary, 0, len(names))
	for _, name := range names {
		rep, err := s.reports.LoadReport(name)
		if err != nil || rep == nil {
			continue
		}
		out = append(out, ReportSummary{
			Name:       rep.Name,
			Strategy:   rep.Strategy,
			Signatures: rep.Signatures,
			Files:      rep.Files,
			Infected:   len(rep.Hits),
			ElapsedMs:  rep.ElapsedMs,
			CreatedAt:  rep.CreatedAt,
		})
	}
	writeJSON(w, out)
}

// handleReport serves one full report: GET /api/report?name=<root>.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("name required"))
		return
	}
	rep, err := s.reports.LoadReport(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rep == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no report %q", name))
		return
	}
	writeJSON(w, rep)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
