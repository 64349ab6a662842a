package oms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/convskills/internal/tlsutil"
	"github.com/BaSui01/convskills/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Client is the transport to the OMS REST API.
type Client interface {
	// InvokeAPI calls restapi/{api}. A nil body issues a GET.
	InvokeAPI(ctx context.Context, creds Credentials, api string, body any) (map[string]any, error)
	// GetPage invokes an API through invoke/getPage with an output template.
	// A nil pagination uses DefaultPagination.
	GetPage(ctx context.Context, creds Credentials, page PageAPI, pagination *Pagination) (map[string]any, error)
}

// Pagination controls getPage paging.
type Pagination struct {
	PageNumber         int    `json:"PageNumber"`
	PageSize           int    `json:"PageSize"`
	PaginationStrategy string `json:"PaginationStrategy"`
	Refresh            string `json:"Refresh"`
	PageSetToken       string `json:"PageSetToken,omitempty"`
}

// DefaultPagination returns a single large generic page.
func DefaultPagination() Pagination {
	return Pagination{PageNumber: 1, PageSize: 999, PaginationStrategy: "GENERIC", Refresh: "N"}
}

// PageAPI is the API invoked through getPage.
type PageAPI struct {
	IsFlow   string `json:"IsFlow"`
	Name     string `json:"Name"`
	Input    any    `json:"Input"`
	Template any    `json:"Template"`
}

type pageRequest struct {
	Pagination
	API PageAPI `json:"API"`
}

// Config configures HTTPClient.
type Config struct {
	// Endpoint is the OMS base URL; requests go to {Endpoint}/restapi/{api}.
	Endpoint     string
	Timeout      time.Duration
	MaxIdleConns int
}

// RequestObserver receives the outcome of every OMS call.
type RequestObserver interface {
	ObserveOMSRequest(api, outcome string, duration time.Duration)
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithRequestObserver reports every call to o.
func WithRequestObserver(o RequestObserver) ClientOption {
	return func(c *HTTPClient) { c.observer = o }
}

// HTTPClient calls OMS over HTTP(S).
type HTTPClient struct {
	cfg      Config
	client   *http.Client
	tracer   trace.Tracer
	observer RequestObserver
	logger   *zap.Logger
}

// NewHTTPClient creates an OMS client. Timeout defaults to 30s.
func NewHTTPClient(cfg Config, logger *zap.Logger, opts ...ClientOption) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &HTTPClient{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout, cfg.MaxIdleConns),
		tracer: otel.Tracer("github.com/BaSui01/convskills/oms"),
		logger: logger.With(zap.String("component", "oms_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) endpoint(api string) string {
	return fmt.Sprintf("%s/restapi/%s", strings.TrimRight(c.cfg.Endpoint, "/"), strings.TrimLeft(api, "/"))
}

// GetPage implements Client.
func (c *HTTPClient) GetPage(ctx context.Context, creds Credentials, page PageAPI, pagination *Pagination) (map[string]any, error) {
	if page.IsFlow == "" {
		page.IsFlow = "N"
	}
	req := pageRequest{Pagination: DefaultPagination(), API: page}
	if pagination != nil {
		req.Pagination = *pagination
	}
	c.logger.Debug("invoking api via getPage", zap.String("api", page.Name))
	return c.InvokeAPI(ctx, creds, "invoke/getPage", req)
}

// InvokeAPI implements Client.
func (c *HTTPClient) InvokeAPI(ctx context.Context, creds Credentials, api string, body any) (map[string]any, error) {
	ctx, span := c.tracer.Start(ctx, "oms.invoke", trace.WithAttributes(attribute.String("oms.api", api)))
	defer span.End()

	start := time.Now()
	out, err := c.invoke(ctx, creds, api, body)
	outcome := "ok"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome = "error"
		if code := types.GetErrorCode(err); code != "" {
			outcome = string(code)
		}
	}
	if c.observer != nil {
		c.observer.ObserveOMSRequest(api, outcome, time.Since(start))
	}
	return out, err
}

// logFields correlates an OMS call with the inbound turn.
func logFields(ctx context.Context, creds Credentials, fields ...zap.Field) []zap.Field {
	if id, ok := types.RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	if id, ok := types.TraceID(ctx); ok {
		fields = append(fields, zap.String("trace_id", id))
	}
	if id, ok := types.ProviderID(ctx); ok {
		fields = append(fields, zap.String("provider_id", id))
	}
	if id, ok := types.SkillID(ctx); ok {
		fields = append(fields, zap.String("skill_id", id))
	}
	if creds.UserID != "" {
		fields = append(fields, zap.String("user_id", creds.UserID))
	}
	return fields
}

func (c *HTTPClient) invoke(ctx context.Context, creds Credentials, api string, body any) (map[string]any, error) {
	method := http.MethodGet
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, types.NewError(types.ErrInternalError, "failed to encode oms request").WithCause(err)
		}
		method = http.MethodPost
		reader = bytes.NewReader(payload)
	}

	url := c.endpoint(api)
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create oms request").WithCause(err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if creds.JWT != "" {
		httpReq.Header.Set("Authorization", "Bearer "+creds.JWT)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("oms api invocation failed", logFields(ctx, creds, zap.String("url", url), zap.Error(err))...)
		return nil, transportError(api, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to read oms response").WithCause(err).WithRetryable(true)
	}
	c.logger.Debug("oms api invoked",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("oms api returned an error", logFields(ctx, creds,
			zap.String("api", api),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(data, 512)))...)
		return nil, statusError(api, resp.StatusCode, data)
	}

	out := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, fmt.Sprintf("oms api %s returned malformed json", api)).WithCause(err)
	}
	return out, nil
}

func transportError(api string, err error) *types.Error {
	code := types.ErrUpstreamError
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		code = types.ErrUpstreamTimeout
	}
	return types.NewError(code, fmt.Sprintf("oms api %s is unreachable", api)).
		WithCause(err).WithRetryable(true)
}

func statusError(api string, status int, body []byte) *types.Error {
	msg := fmt.Sprintf("oms api %s failed with status %d", api, status)
	if detail := errorMessage(body); detail != "" {
		msg += ": " + detail
	}
	return types.NewError(types.ErrUpstreamError, msg).
		WithUpstreamStatus(status).
		WithRetryable(status >= 500 || status == http.StatusTooManyRequests)
}

// errorMessage pulls the first error description out of an OMS error
// document, falling back to the raw body.
func errorMessage(body []byte) string {
	var doc struct {
		Errors []struct {
			ErrorCode        string `json:"ErrorCode"`
			ErrorDescription string `json:"ErrorDescription"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &doc); err == nil && len(doc.Errors) > 0 {
		e := doc.Errors[0]
		if e.ErrorCode != "" {
			return e.ErrorCode + " " + e.ErrorDescription
		}
		return e.ErrorDescription
	}
	return string(truncate(bytes.TrimSpace(body), 256))
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
