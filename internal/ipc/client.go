package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping checks that the daemon is alive.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call("Darkroom.Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Darkroom.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecentOutcomes returns the in-memory outcome ring, newest first.
func (c *Client) RecentOutcomes() (*RecentOutcomesResponse, error) {
	var resp RecentOutcomesResponse
	if err := c.client.Call("Darkroom.RecentOutcomes", RecentOutcomesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns persisted outcomes from the journal, newest first.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	req := HistoryRequest{Limit: limit}
	if err := c.client.Call("Darkroom.History", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pause suspends watching until resume.
func (c *Client) Pause() (*PauseResponse, error) {
	var resp PauseResponse
	if err := c.client.Call("Darkroom.Pause", PauseRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resume restarts watching after a pause.
func (c *Client) Resume() (*ResumeResponse, error) {
	var resp ResumeResponse
	if err := c.client.Call("Darkroom.Resume", ResumeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reload asks the daemon to re-read its configuration file.
func (c *Client) Reload() (*ReloadResponse, error) {
	var resp ReloadResponse
	if err := c.client.Call("Darkroom.Reload", ReloadRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RescanNow kicks an immediate sweep of all watch roots.
func (c *Client) RescanNow() (*RescanResponse, error) {
	var resp RescanResponse
	if err := c.client.Call("Darkroom.RescanNow", RescanRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop watching.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Darkroom.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JournalHealth retrieves detailed journal diagnostics.
func (c *Client) JournalHealth() (*JournalHealthResponse, error) {
	var resp JournalHealthResponse
	if err := c.client.Call("Darkroom.JournalHealth", JournalHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Darkroom.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
