// Package socket implements a JSON-over-Unix-socket protocol for the pmatch
// scan daemon. The protocol uses newline-delimited JSON: each message is one
// JSON object + \n.
package socket

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/corey/pmatch/internal/ports"
)

// SocketPath returns the Unix socket path for a given project root.
// Format: $TMPDIR/pmatch-{first12hex}.sock. Socket paths are length-limited,
// so the socket does not live under the project itself.
func SocketPath(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), fmt.Sprintf("pmatch-%x.sock", h[:6]))
}

// Method names for the protocol.
const (
	MethodHealth   = "health"
	MethodScan     = "scan"
	MethodMatch    = "match"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status     string `json:"status"`
	Signatures int    `json:"signatures"`
	Strategy   string `json:"strategy"`
	Scans      int    `json:"scans"`
	Uptime     string `json:"uptime"`
}

// ScanParams is the params for a scan request. Root should be absolute: the
// daemon's working directory is not the client's.
type ScanParams struct {
	Root string `json:"root"`
}

// ScanResult is the result of a scan request.
type ScanResult struct {
	Report  *ports.ScanReport `json:"report"`
	Elapsed string            `json:"elapsed"`
}

// MatchParams is the params for a match request. Pattern travels as base64.
type MatchParams struct {
	Path     string `json:"path"`
	Pattern  []byte `json:"pattern"`
	Strategy string `json:"strategy,omitempty"`
}

// MatchResult is the result of a match request.
type MatchResult struct {
	Offsets []int  `json:"offsets"`
	Count   int    `json:"count"`
	Elapsed string `json:"elapsed"`
}
