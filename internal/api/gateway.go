package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	mediaTypeJSON = "application/json"

	headerRequestID = "X-Request-ID"
)

// PayloadKind is the classification of a successful response
type PayloadKind int

const (
	PayloadData PayloadKind = iota
	PayloadBinary
)

// Payload is a classified successful response body
type Payload struct {
	Kind      PayloadKind
	MediaType string
	Data      []byte
}

// Gateway is the single point through which the client talks to the backend.
// It attaches the armed bearer credential to every request and classifies responses.
type Gateway struct {
	baseURL   string
	client    *http.Client
	requestID func() string

	mu    sync.RWMutex
	token string
}

// NewGateway creates a Gateway for the API rooted at baseURL
func NewGateway(baseURL string, timeout time.Duration) *Gateway {
	return NewGatewayWithClient(baseURL, &http.Client{Timeout: timeout})
}

// NewGatewayWithClient creates a Gateway with a custom HTTP client for testing
func NewGatewayWithClient(baseURL string, client *http.Client) *Gateway {
	return &Gateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		requestID: uuid.NewString,
	}
}

// Arm attaches token to every subsequent request
func (g *Gateway) Arm(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
}

// Disarm stops attaching any credential
func (g *Gateway) Disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = ""
}

// Token returns the currently armed credential
func (g *Gateway) Token() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token, g.token != ""
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token, ok := g.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(headerRequestID, g.requestID())
	return req, nil
}

// send performs req and classifies the outcome. Error statuses and network failures
// come back as *TransportError; a JSON body answering a binary request comes back
// as *DisguisedBinaryError.
func (g *Gateway) send(req *http.Request, binary bool) (Payload, error) {
	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		slog.Debug("api request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"request_id", req.Header.Get(headerRequestID),
			"error", err,
		)
		return Payload{}, &TransportError{Binary: binary, Err: err}
	}
	defer resp.Body.Close()

	slog.Debug("api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"request_id", req.Header.Get(headerRequestID),
		"duration", time.Since(start),
	)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Payload{}, &TransportError{StatusCode: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode), Binary: binary, Err: err}
	}

	return classify(resp.StatusCode, resp.Header.Get("Content-Type"), body, binary)
}

func classify(status int, contentType string, body []byte, binary bool) (Payload, error) {
	if status >= http.StatusBadRequest {
		detail, _ := parseDetail(body)
		return Payload{}, &TransportError{
			StatusCode: status,
			StatusText: http.StatusText(status),
			Detail:     detail,
			Binary:     binary,
		}
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	if !binary {
		return Payload{Kind: PayloadData, MediaType: mediaType, Data: body}, nil
	}

	if mediaType == mediaTypeJSON {
		detail, _ := parseDetail(body)
		return Payload{}, &DisguisedBinaryError{Detail: detail}
	}
	return Payload{Kind: PayloadBinary, MediaType: mediaType, Data: body}, nil
}

// getJSON issues a GET and decodes the JSON response into out
func (g *Gateway) getJSON(ctx context.Context, path string, out any) error {
	req, err := g.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return g.decode(req, out)
}

// sendJSON issues method with a JSON body and decodes the response into out (if non-nil)
func (g *Gateway) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = mediaTypeJSON
	}
	req, err := g.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	return g.decode(req, out)
}

func (g *Gateway) decode(req *http.Request, out any) error {
	payload, err := g.send(req, false)
	if err != nil {
		return err
	}
	if out == nil || len(payload.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload.Data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
