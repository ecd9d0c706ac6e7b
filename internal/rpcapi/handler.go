// handler.go implements a JSON-RPC-style handler over gRPC unary calls.
// Clients send an RPCRequest naming a method and receive an RPCResponse
// with the result, or an error message with a machine-readable code.
package rpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/credshift/credshift/internal/core"
)

// RPCRequest is a generic JSON-RPC-style request.
type RPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// RPCResponse is a generic JSON-RPC-style response.
type RPCResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// Handler dispatches JSON-RPC requests to the Service.
type Handler struct {
	service  *Service
	dispatch map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// NewHandler creates a handler backed by the given service.
func NewHandler(svc *Service) *Handler {
	h := &Handler{service: svc}
	h.dispatch = map[string]handlerFunc{
		// Profile
		"profile.list":       h.handleListProfiles,
		"profile.get":        h.handleGetProfile,
		"profile.add":        h.handleAddProfile,
		"profile.update":     h.handleUpdateProfile,
		"profile.delete":     h.handleDeleteProfile,
		"profile.activate":   h.handleActivateProfile,
		"profile.deactivate": h.handleDeactivateFamily,
		"profile.active":     h.handleActiveProfiles,

		// Family
		"family.list": h.handleListFamilies,

		// Merge
		"merge.apply": h.handleApplyMerge,

		// Drift
		"drift.check": h.handleCheckDrift,

		// Audit
		"audit.verify": h.handleVerifyAudit,
	}
	return h
}

// errorCode maps service errors to stable response codes.
func errorCode(err error) string {
	var berr *core.BackendError
	switch {
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrValidation):
		return "validation"
	case errors.As(err, &berr):
		return "backend_" + string(berr.Kind)
	}
	var serr *core.StorageError
	if errors.As(err, &serr) {
		return "storage"
	}
	return "internal"
}

// Handle processes a JSON-RPC request and returns a response.
func (h *Handler) Handle(ctx context.Context, req *RPCRequest) *RPCResponse {
	fn, ok := h.dispatch[req.Method]
	if !ok {
		return &RPCResponse{
			Error: fmt.Sprintf("unknown method: %s", req.Method),
			Code:  "unknown_method",
		}
	}

	result, err := fn(ctx, req.Params)
	if err != nil {
		return &RPCResponse{Error: err.Error(), Code: errorCode(err)}
	}

	resultJSON, _ := json.Marshal(result)
	return &RPCResponse{Result: resultJSON}
}

// RegisterWithGRPC registers the handler as a gRPC service using a
// generic unary descriptor. Clients send RPCRequest JSON and receive
// RPCResponse JSON on the single Call method.
func (h *Handler) RegisterWithGRPC(s *grpc.Server) {
	sd := grpc.ServiceDesc{
		ServiceName: "credshift.v1.CredshiftService",
		HandlerType: (*credshiftServiceHandler)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Call",
				Handler:    h.grpcCallHandler,
			},
		},
		Streams: []grpc.StreamDesc{},
	}
	s.RegisterService(&sd, h)
}

// credshiftServiceHandler is the interface type for gRPC service registration.
type credshiftServiceHandler interface{}

func (h *Handler) grpcCallHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	var req RPCRequest
	if err := dec(&req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	resp := h.Handle(ctx, &req)
	return resp, nil
}

// --- Handler implementations ---

func (h *Handler) handleListProfiles(_ context.Context, _ json.RawMessage) (any, error) {
	return h.service.ListProfiles(), nil
}

type idParam struct {
	ID string `json:"id"`
}

func (h *Handler) handleGetProfile(_ context.Context, params json.RawMessage) (any, error) {
	var p idParam
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return h.service.GetProfile(p.ID)
}

func (h *Handler) handleAddProfile(_ context.Context, params json.RawMessage) (any, error) {
	var p AddParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return h.service.AddProfile(p)
}

func (h *Handler) handleUpdateProfile(_ context.Context, params json.RawMessage) (any, error) {
	var p UpdateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return h.service.UpdateProfile(p)
}

func (h *Handler) handleDeleteProfile(_ context.Context, params json.RawMessage) (any, error) {
	var p idParam
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return map[string]bool{"success": true}, h.service.DeleteProfile(p.ID)
}

func (h *Handler) handleActivateProfile(_ context.Context, params json.RawMessage) (any, error) {
	var p idParam
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return h.service.ActivateProfile(p.ID)
}

type familyParam struct {
	Family string `json:"family"`
}

func (h *Handler) handleDeactivateFamily(_ context.Context, params json.RawMessage) (any, error) {
	var p familyParam
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return map[string]bool{"success": true}, h.service.DeactivateFamily(p.Family)
}

func (h *Handler) handleActiveProfiles(_ context.Context, params json.RawMessage) (any, error) {
	var p familyParam
	if params != nil {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	return h.service.ActiveProfiles(p.Family)
}

func (h *Handler) handleListFamilies(_ context.Context, _ json.RawMessage) (any, error) {
	return h.service.ListFamilies(), nil
}

func (h *Handler) handleApplyMerge(_ context.Context, params json.RawMessage) (any, error) {
	var p MergeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return h.service.ApplyMerge(p)
}

func (h *Handler) handleCheckDrift(_ context.Context, _ json.RawMessage) (any, error) {
	return h.service.CheckDrift(), nil
}

func (h *Handler) handleVerifyAudit(_ context.Context, _ json.RawMessage) (any, error) {
	valid, count, err := h.service.VerifyAuditChain()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"valid": valid,
		"count": count,
	}, nil
}
