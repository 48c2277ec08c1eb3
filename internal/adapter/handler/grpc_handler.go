package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/shopping-list/internal/core/domain"
	"github.com/rl1809/shopping-list/internal/core/service"
)

const (
	ServiceName = "shoppinglist.v1.ShoppingList"

	// CodecName is the content-subtype clients must request: messages are JSON.
	CodecName = "json"

	applyMethod    = "/" + ServiceName + "/Apply"
	snapshotMethod = "/" + ServiceName + "/Snapshot"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return CodecName }

type ApplyRequest struct {
	TransactionID string `json:"transactionid"`
	ItemID        *int64 `json:"itemid"`
	Delta         *int   `json:"delta"`
}

type ApplyResponse struct {
	TransactionID string `json:"transactionid"`
	Outcome       string `json:"outcome"`
	Reason        string `json:"reason,omitempty"`
	Count         int    `json:"count"`
}

type SnapshotRequest struct{}

type ShoppingListServer interface {
	Apply(context.Context, *ApplyRequest) (*ApplyResponse, error)
	Snapshot(context.Context, *SnapshotRequest) (*domain.Snapshot, error)
}

var ShoppingListServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ShoppingListServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Apply", Handler: applyHandler},
		{MethodName: "Snapshot", Handler: snapshotHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func applyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ApplyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShoppingListServer).Apply(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: applyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ShoppingListServer).Apply(ctx, req.(*ApplyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func snapshotHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SnapshotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShoppingListServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: snapshotMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ShoppingListServer).Snapshot(ctx, req.(*SnapshotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type GRPCHandler struct {
	ledger *service.LedgerService
	query  *service.QueryService
	auth   *Authenticator
	debug  bool
}

func NewGRPCHandler(ledger *service.LedgerService, query *service.QueryService, auth *Authenticator, debug bool) *GRPCHandler {
	return &GRPCHandler{ledger: ledger, query: query, auth: auth, debug: debug}
}

// Register adds the shopping list and health services to s.
func (h *GRPCHandler) Register(s *grpc.Server) *health.Server {
	s.RegisterService(&ShoppingListServiceDesc, h)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

func (h *GRPCHandler) Apply(ctx context.Context, req *ApplyRequest) (*ApplyResponse, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	user, err := h.auth.IdentifyMetadata(md)
	if err != nil {
		return nil, h.statusError(err)
	}

	txReq, err := transactionRequest(req.TransactionID, req.ItemID, req.Delta, user)
	if err != nil {
		return nil, h.statusError(err)
	}

	outcome, err := h.ledger.Apply(ctx, txReq)
	if err != nil {
		return nil, h.statusError(err)
	}

	return &ApplyResponse{
		TransactionID: outcome.TransactionID,
		Outcome:       string(outcome.Status),
		Reason:        string(outcome.Reason),
		Count:         outcome.Count,
	}, nil
}

func (h *GRPCHandler) Snapshot(ctx context.Context, _ *SnapshotRequest) (*domain.Snapshot, error) {
	snapshot, err := h.query.Snapshot(ctx)
	if err != nil {
		return nil, h.statusError(err)
	}
	return &snapshot, nil
}

func (h *GRPCHandler) statusError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return status.Error(codes.Unauthenticated, domain.ErrAuthenticationRequired.Error())
	case errors.Is(err, domain.ErrInvariantViolation):
		return status.Error(codes.FailedPrecondition, domain.ErrInvariantViolation.Error())
	}

	slog.Error("grpc request failed", "error", err)
	if h.debug {
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(codes.Internal, detailsUnavailable)
}

// ShoppingListClient calls the service over a connection using the JSON codec.
type ShoppingListClient struct {
	cc grpc.ClientConnInterface
}

func NewShoppingListClient(cc grpc.ClientConnInterface) *ShoppingListClient {
	return &ShoppingListClient{cc: cc}
}

func (c *ShoppingListClient) Apply(ctx context.Context, in *ApplyRequest, opts ...grpc.CallOption) (*ApplyResponse, error) {
	out := new(ApplyResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, applyMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ShoppingListClient) Snapshot(ctx context.Context, opts ...grpc.CallOption) (*domain.Snapshot, error) {
	out := new(domain.Snapshot)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, snapshotMethod, &SnapshotRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
