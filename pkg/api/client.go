package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ja7ad/omenfan/pkg/control"
	"github.com/ja7ad/omenfan/pkg/mode"
)

// Client talks to a running daemon.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient dials the daemon's unix socket.
func NewClient(socket string) *Client {
	tr := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		},
	}
	return &Client{
		base: "http://omenfan",
		hc:   &http.Client{Transport: tr, Timeout: 5 * time.Second},
	}
}

// Modes lists the selectable modes.
func (c *Client) Modes(ctx context.Context) ([]mode.Mode, error) {
	var out ModesReply
	if err := c.do(ctx, http.MethodGet, "/v1/modes", nil, &out); err != nil {
		return nil, err
	}
	return out.Modes, nil
}

// Requested returns the mode currently requested.
func (c *Client) Requested(ctx context.Context) (mode.Mode, error) {
	var out ModeRequest
	if err := c.do(ctx, http.MethodGet, "/v1/mode", nil, &out); err != nil {
		return mode.Undefined, err
	}
	return out.Mode, nil
}

// Commit replaces the requested mode.
func (c *Client) Commit(ctx context.Context, m mode.Mode) error {
	return c.do(ctx, http.MethodPut, "/v1/mode", ModeRequest{Mode: m}, nil)
}

// Status returns the loop's last snapshot.
func (c *Client) Status(ctx context.Context) (control.Status, error) {
	var out control.Status
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e errorReply
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if json.Unmarshal(b, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(b))
		}
		return fmt.Errorf("%w: %s %s: %d %s", ErrServer, method, path, resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
