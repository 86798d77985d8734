// Package worker implements the out-of-process execution mode. A worker is a
// long-lived kiln process serving compilations over gRPC on a Unix domain
// socket in its working directory.
package worker

import (
	"bytes"
	"context"

	"github.com/vmihailenco/msgpack/v5"
	"go.trai.ch/kiln/internal/core/domain"
	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "kiln.worker.v1.Worker"

// codec encodes worker messages as msgpack, honouring their json tags.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (codec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (codec) Name() string {
	return "msgpack"
}

// PingRequest is the request of Worker.Ping.
type PingRequest struct{}

// PingResponse is the response of Worker.Ping.
type PingResponse struct {
	IdleRemainingSeconds int64 `json:"idle_remaining_seconds"`
}

// StatusRequest is the request of Worker.Status.
type StatusRequest struct{}

// StatusResponse is the response of Worker.Status.
type StatusResponse struct {
	Running              bool  `json:"running"`
	Pid                  int   `json:"pid"`
	UptimeSeconds        int64 `json:"uptime_seconds"`
	LastActivityUnix     int64 `json:"last_activity_unix"`
	IdleRemainingSeconds int64 `json:"idle_remaining_seconds"`
	InFlight             int   `json:"in_flight"`
}

// CompileRequest is the request of Worker.Compile.
type CompileRequest struct {
	Artifacts []string           `json:"artifacts"`
	Unit      *domain.UnitOfWork `json:"unit"`
	Barrier   string             `json:"barrier,omitempty"`
}

// Diagnostic is a compiler message carried over the wire.
type Diagnostic struct {
	Level   domain.LogLevel `json:"level"`
	Message string          `json:"message"`
}

// CompileResponse is the response of Worker.Compile.
type CompileResponse struct {
	Code        domain.ResultCode `json:"code"`
	Cancelled   bool              `json:"cancelled"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// CancelRequest is the request of Worker.Cancel.
type CancelRequest struct {
	UnitID string `json:"unit_id"`
}

// CancelResponse is the response of Worker.Cancel.
type CancelResponse struct {
	// Pending is set when the unit had not arrived yet and the request was recorded for it.
	Pending bool `json:"pending"`
}

// ShutdownRequest is the request of Worker.Shutdown.
type ShutdownRequest struct{}

// ShutdownResponse is the response of Worker.Shutdown.
type ShutdownResponse struct {
	Success bool `json:"success"`
}

// WorkerServer is the server API of the worker service.
//
//nolint:revive // the name mirrors the gRPC service
type WorkerServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Compile(context.Context, *CompileRequest) (*CompileResponse, error)
	Cancel(context.Context, *CancelRequest) (*CancelResponse, error)
	Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorkerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary("Ping", WorkerServer.Ping)},
		{MethodName: "Status", Handler: unary("Status", WorkerServer.Status)},
		{MethodName: "Compile", Handler: unary("Compile", WorkerServer.Compile)},
		{MethodName: "Cancel", Handler: unary("Cancel", WorkerServer.Cancel)},
		{MethodName: "Shutdown", Handler: unary("Shutdown", WorkerServer.Shutdown)},
	},
	Streams: []grpc.StreamDesc{},
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](
	method string,
	call func(WorkerServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WorkerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(WorkerServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
