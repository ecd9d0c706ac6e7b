// Package client is the Go client for the credshift RPC API. It speaks
// the JSON-over-gRPC Call protocol the credshift server exposes on its
// unix socket or loopback TCP listener. Responses never include profile
// secrets, only redacted references and display hints.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const callMethod = "/credshift.v1.CredshiftService/Call"

// jsonCodec is the client-side twin of the server's JSON codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "json" }

// Client is a connection to a credshift server.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a credshift server. target follows gRPC naming, for
// example "unix:///run/credshift.sock" or "127.0.0.1:50551".
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

type rpcRequest struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// RPCError is a server-reported failure. Code is one of the stable
// error codes: not_found, validation, storage, backend_io,
// backend_permission, backend_encoding, backend_unsupported,
// unknown_method or internal.
type RPCError struct {
	Method  string
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s: %s (%s)", e.Method, e.Message, e.Code)
}

// Call invokes a method with the given params, decoding the result into
// result when it is non-nil.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	req := rpcRequest{Method: method, Params: params}
	var resp rpcResponse
	if err := c.conn.Invoke(ctx, callMethod, &req, &resp); err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	if resp.Error != "" {
		return &RPCError{Method: method, Code: resp.Code, Message: resp.Error}
	}
	if result != nil && resp.Result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// Profile is a credential profile as reported by the server.
type Profile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Family     string `json:"family"`
	SecretRef  string `json:"secret_ref"`
	SecretHint string `json:"secret_hint"`
	Endpoint   string `json:"endpoint,omitempty"`
	Active     bool   `json:"active"`
}

// Family describes one tool family and its activation state.
type Family struct {
	Family            string `json:"family"`
	Title             string `json:"title"`
	Surface           string `json:"surface"`
	SecretKey         string `json:"secret_key"`
	EndpointKey       string `json:"endpoint_key"`
	FilePath          string `json:"file_path,omitempty"`
	Profiles          int    `json:"profiles"`
	ActiveProfileID   string `json:"active_profile_id,omitempty"`
	ActiveProfileName string `json:"active_profile_name,omitempty"`
}

// DriftFinding is one family's drift verdict.
type DriftFinding struct {
	Family  string `json:"family"`
	State   string `json:"state"`
	Profile string `json:"profile_id,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// AuditStatus reports the audit chain verification outcome.
type AuditStatus struct {
	Valid bool `json:"valid"`
	Count int  `json:"count"`
}

// AddProfileParams holds the fields for a new profile.
type AddProfileParams struct {
	Name     string `json:"name"`
	Family   string `json:"family"`
	Secret   string `json:"secret"`
	Endpoint string `json:"endpoint,omitempty"`
}

// UpdateProfileParams holds a profile update. A nil Secret keeps the
// stored secret.
type UpdateProfileParams struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Secret   *string `json:"secret,omitempty"`
	Endpoint string  `json:"endpoint,omitempty"`
}

func (c *Client) ListProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	err := c.Call(ctx, "profile.list", nil, &profiles)
	return profiles, err
}

func (c *Client) GetProfile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	if err := c.Call(ctx, "profile.get", map[string]string{"id": id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) AddProfile(ctx context.Context, params AddProfileParams) (*Profile, error) {
	var p Profile
	if err := c.Call(ctx, "profile.add", params, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, params UpdateProfileParams) (*Profile, error) {
	var p Profile
	if err := c.Call(ctx, "profile.update", params, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProfile(ctx context.Context, id string) error {
	return c.Call(ctx, "profile.delete", map[string]string{"id": id}, nil)
}

func (c *Client) ActivateProfile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	if err := c.Call(ctx, "profile.activate", map[string]string{"id": id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeactivateFamily(ctx context.Context, family string) error {
	return c.Call(ctx, "profile.deactivate", map[string]string{"family": family}, nil)
}

// ActiveProfiles returns the active profile of one family, or of every
// family when family is empty.
func (c *Client) ActiveProfiles(ctx context.Context, family string) ([]Profile, error) {
	var profiles []Profile
	err := c.Call(ctx, "profile.active", map[string]string{"family": family}, &profiles)
	return profiles, err
}

func (c *Client) ListFamilies(ctx context.Context) ([]Family, error) {
	var families []Family
	err := c.Call(ctx, "family.list", nil, &families)
	return families, err
}

// ApplyMerge writes the combined config for a family to profile id
// selection and returns its path.
func (c *Client) ApplyMerge(ctx context.Context, selection map[string]string) (string, error) {
	var result struct {
		Path string `json:"path"`
	}
	if err := c.Call(ctx, "merge.apply", map[string]any{"selection": selection}, &result); err != nil {
		return "", err
	}
	return result.Path, nil
}

func (c *Client) CheckDrift(ctx context.Context) ([]DriftFinding, error) {
	var findings []DriftFinding
	err := c.Call(ctx, "drift.check", nil, &findings)
	return findings, err
}

func (c *Client) VerifyAudit(ctx context.Context) (*AuditStatus, error) {
	var status AuditStatus
	if err := c.Call(ctx, "audit.verify", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
