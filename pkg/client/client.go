// Package client is a thin convenience wrapper for tools to call the
// projset daemon's JSON API over a Unix-domain socket. It re-exports the DTOs
// from pkg/api so callers get strongly-typed results instead of generic maps,
// and adapts the file endpoints to filesys.ReadFS for remote discovery.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/lc/projset/internal/filesys"
	"github.com/lc/projset/internal/socket"
	"github.com/lc/projset/pkg/api"
)

// Client holds an http.Client wired to a Unix socket.
type Client struct {
	hc   *http.Client
	base string // dummy scheme+host for Request.URL (http://unix)
}

// New returns a Client that dials the given Unix-domain socket path, waiting
// for projsetd to come up.
func New(socketPath string) *Client {
	sock := socket.New(nil, &socket.DefaultProcessChecker{})
	tr := &http.Transport{DialContext: sock.DialFunc(socketPath)}
	return &Client{hc: &http.Client{Transport: tr}, base: "http://unix"}
}

// NewWithHTTP returns a Client that sends requests to base through hc.
func NewWithHTTP(hc *http.Client, base string) *Client {
	return &Client{hc: hc, base: base}
}

// --------------------------- commands ------------------------------

// Status retrieves the current status of the daemon.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.get(ctx, api.StatusPath, nil, &out)
	return out, err
}

// Stat describes the project file at name.
func (c *Client) Stat(ctx context.Context, name string) (api.StatResponse, error) {
	var out api.StatResponse
	err := c.get(ctx, api.StatPath, url.Values{"path": {name}}, &out)
	return out, err
}

// Open streams the project file at name. A missing file yields an error
// matching fs.ErrNotExist.
func (c *Client) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, api.FilePath, url.Values{"path": {name}})
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, name); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// FS returns the project served by the daemon as a read-only file system.
// Every request is bound to ctx.
func (c *Client) FS(ctx context.Context) filesys.ReadFS {
	return &remoteFS{ctx: ctx, c: c}
}

// --------------------------- HTTP helpers --------------------------

func (c *Client) do(ctx context.Context, p string, q url.Values) (*http.Response, error) {
	u := c.base + p
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.hc.Do(req)
}

func checkStatus(resp *http.Response, name string) error {
	if resp.StatusCode < 300 {
		return nil
	}
	var body api.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode == http.StatusNotFound {
		return &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if body.Error != "" {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, body.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

func (c *Client) get(ctx context.Context, p string, q url.Values, v any) error {
	resp, err := c.do(ctx, p, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, q.Get("path")); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// --------------------------- filesys adapter -----------------------

type remoteFS struct {
	ctx context.Context
	c   *Client
}

var _ filesys.ReadFS = (*remoteFS)(nil)

func (r *remoteFS) Open(name string) (io.ReadCloser, error) {
	return r.c.Open(r.ctx, name)
}

func (r *remoteFS) Stat(name string) (fs.FileInfo, error) {
	st, err := r.c.Stat(r.ctx, name)
	if err != nil {
		return nil, err
	}
	return fileInfo{st}, nil
}

type fileInfo struct{ st api.StatResponse }

func (f fileInfo) Name() string       { return path.Base(f.st.Name) }
func (f fileInfo) Size() int64        { return f.st.Size }
func (f fileInfo) ModTime() time.Time { return f.st.ModTime }
func (f fileInfo) IsDir() bool        { return f.st.IsDir }
func (f fileInfo) Sys() any           { return nil }

func (f fileInfo) Mode() fs.FileMode {
	if f.st.IsDir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}
