package worker

import (
	"context"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client implements ports.WorkerClient.
type Client struct {
	conn *grpc.ClientConn
}

var _ ports.WorkerClient = (*Client)(nil)

// Dial connects to the worker serving in workDir.
// The connection is established lazily on the first call.
func Dial(workDir string) (*Client, error) {
	target := "unix://" + domain.WorkerSocketPath(workDir)
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(codec{})),
	)
	if err != nil {
		return nil, zerr.Wrap(err, "worker client creation failed")
	}
	return &Client{conn: conn}, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	return c.conn.Invoke(ctx, fullMethod(method), req, resp)
}

// Ping implements ports.WorkerClient.
func (c *Client) Ping(ctx context.Context) error {
	return c.invoke(ctx, "Ping", &PingRequest{}, &PingResponse{})
}

// Status implements ports.WorkerClient.
func (c *Client) Status(ctx context.Context) (*ports.WorkerStatus, error) {
	resp := &StatusResponse{}
	if err := c.invoke(ctx, "Status", &StatusRequest{}, resp); err != nil {
		return nil, err
	}
	return &ports.WorkerStatus{
		Running:       resp.Running,
		PID:           resp.Pid,
		Uptime:        time.Duration(resp.UptimeSeconds) * time.Second,
		LastActivity:  time.Unix(resp.LastActivityUnix, 0),
		IdleRemaining: time.Duration(resp.IdleRemainingSeconds) * time.Second,
		InFlight:      resp.InFlight,
	}, nil
}

// Compile implements ports.WorkerClient.
func (c *Client) Compile(ctx context.Context, req *ports.WorkerCompileRequest) (*ports.WorkerCompileResult, error) {
	resp := &CompileResponse{}
	err := c.invoke(ctx, "Compile", &CompileRequest{
		Artifacts: req.Artifacts,
		Unit:      req.Unit,
		Barrier:   req.Barrier,
	}, resp)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrWorkerUnavailable.Error())
	}

	result := &ports.WorkerCompileResult{
		Code:      resp.Code,
		Cancelled: resp.Cancelled,
		Error:     resp.Error,
	}
	for _, d := range resp.Diagnostics {
		result.Diagnostics = append(result.Diagnostics, domain.Diagnostic{Level: d.Level, Message: d.Message})
	}
	return result, nil
}

// Cancel implements ports.WorkerClient.
func (c *Client) Cancel(ctx context.Context, unitID string) error {
	return c.invoke(ctx, "Cancel", &CancelRequest{UnitID: unitID}, &CancelResponse{})
}

// Shutdown implements ports.WorkerClient.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.invoke(ctx, "Shutdown", &ShutdownRequest{}, &ShutdownResponse{})
}

// Close implements ports.WorkerClient.
func (c *Client) Close() error {
	return c.conn.Close()
}
