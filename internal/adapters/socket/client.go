package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client connects to the pmatch daemon over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.do(Request{ID: "1", Method: MethodHealth}, 5*time.Second, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Scan asks the daemon to scan root with its loaded signatures. Scans of
// large trees take a while, hence the generous timeout.
func (c *Client) Scan(root string, timeout time.Duration) (*ScanResult, error) {
	var result ScanResult
	req := Request{ID: "1", Method: MethodScan, Params: ScanParams{Root: root}}
	if err := c.do(req, timeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Match asks the daemon to find pattern in the file at path.
func (c *Client) Match(path string, pattern []byte, strategy string) (*MatchResult, error) {
	var result MatchResult
	req := Request{ID: "1", Method: MethodMatch, Params: MatchParams{Path: path, Pattern: pattern, Strategy: strategy}}
	if err := c.do(req, 60*time.Second, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.callWithTimeout(Request{ID: "1", Method: MethodShutdown}, 5*time.Second)
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *Client) do(req Request, timeout time.Duration, result any) error {
	resp, err := c.callWithTimeout(req, timeout)
	if err != nil {
		return err
	}
	if err := decodeParams(resp.Result, result); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024) // reports can be large
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	return &resp, nil
}
