// Package client talks to the repository analysis backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainerrors "diagrammer/internal/core/errors"
	"diagrammer/internal/core/ports"
	"diagrammer/internal/data/contract"
	"diagrammer/internal/engine/model"
	"diagrammer/internal/shared/observability"
	"diagrammer/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	endpointAnalyze = "analyze"
	endpointCache   = "cache"
	endpointHealth  = "health"

	msgEmptyURL       = "Please enter a GitHub URL."
	msgAnalysisFailed = "Analysis failed"

	defaultMaxResponseBytes = 32 << 20
)

type Options struct {
	BaseURL          string
	Timeout          time.Duration
	RateLimit        float64
	Burst            int
	MaxResponseBytes int64
	// Validator checks payloads before decoding. Nil skips contract checks.
	Validator  *contract.Validator
	HTTPClient *http.Client
}

type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *util.Limiter
	validator *contract.Validator
	maxBytes  int64
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeValidationError, "backend url must be an absolute http(s) url"),
			domainerrors.CtxURL, opts.BaseURL,
		)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	maxBytes := opts.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}

	c := &Client{
		baseURL:   base,
		http:      httpClient,
		validator: opts.Validator,
		maxBytes:  maxBytes,
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = util.NewLimiter(opts.RateLimit, burst)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Analyze asks the backend to analyze repoURL. It returns the decoded result
// together with the raw payload for caching.
func (c *Client) Analyze(ctx context.Context, repoURL string) (*model.AnalysisResult, []byte, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return nil, nil, domainerrors.New(domainerrors.CodeValidationError, msgEmptyURL)
	}

	ctx, span := observability.Tracer.Start(ctx, "client.Analyze",
		trace.WithAttributes(attribute.String("repo.url", repoURL)))
	defer span.End()

	body, err := json.Marshal(map[string]string{"repo_url": repoURL})
	if err != nil {
		return nil, nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "encode analyze request")
	}

	raw, err := c.do(ctx, endpointAnalyze, http.MethodPost, "/api/analyze", body)
	if err != nil {
		recordSpanError(span, err)
		return nil, nil, domainerrors.AddContext(err, domainerrors.CtxURL, repoURL)
	}
	result, err := c.decode(raw)
	if err != nil {
		recordSpanError(span, err)
		return nil, nil, domainerrors.AddContext(err, domainerrors.CtxURL, repoURL)
	}
	span.SetAttributes(attribute.String("repo.sha", result.Repo.SHA), attribute.Int("modules", result.ModuleCount()))
	slog.Info("analysis received", "repo", result.Repo.Name, "sha", result.Repo.SHA, "modules", result.ModuleCount())
	return result, raw, nil
}

// Cached fetches a result the backend already holds for sha.
func (c *Client) Cached(ctx context.Context, sha string) (*model.AnalysisResult, []byte, error) {
	sha = strings.TrimSpace(sha)
	if sha == "" {
		return nil, nil, domainerrors.New(domainerrors.CodeValidationError, "commit sha must not be empty")
	}

	ctx, span := observability.Tracer.Start(ctx, "client.Cached",
		trace.WithAttributes(attribute.String("repo.sha", sha)))
	defer span.End()

	raw, err := c.do(ctx, endpointCache, http.MethodGet, "/api/cache/"+url.PathEscape(sha), nil)
	if err != nil {
		recordSpanError(span, err)
		return nil, nil, domainerrors.AddContext(err, domainerrors.CtxSHA, sha)
	}
	result, err := c.decode(raw)
	if err != nil {
		recordSpanError(span, err)
		return nil, nil, domainerrors.AddContext(err, domainerrors.CtxSHA, sha)
	}
	return result, raw, nil
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "client.Health")
	defer span.End()

	raw, err := c.do(ctx, endpointHealth, http.MethodGet, "/api/health", nil)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUpstream, "malformed health response")
	}
	if payload.Status != "ok" {
		return domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeUnavailable, "backend reports unhealthy"),
			domainerrors.CtxStatus, payload.Status,
		)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx, 1); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "request cancelled while rate limited")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "build backend request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.BackendRequestDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		observability.BackendRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeUnavailable, "backend unreachable"),
			domainerrors.CtxOperation, endpoint,
		)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	outcome := "ok"
	if readErr != nil || resp.StatusCode >= 300 {
		outcome = "error"
	}
	observability.BackendRequestDuration.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())
	observability.BackendRequestsTotal.WithLabelValues(endpoint, statusClass(resp.StatusCode)).Inc()

	if readErr != nil {
		return nil, domainerrors.Wrap(readErr, domainerrors.CodeUpstream, "read backend response")
	}
	if int64(len(data)) > c.maxBytes {
		return nil, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeUpstream, fmt.Sprintf("backend response exceeds %d bytes", c.maxBytes)),
			domainerrors.CtxOperation, endpoint,
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := domainerrors.CodeUpstream
		if resp.StatusCode == http.StatusNotFound && endpoint == endpointCache {
			code = domainerrors.CodeNotFound
		}
		derr := &domainerrors.DomainError{Code: code, Message: errorDetail(data)}
		derr.WithContext(domainerrors.CtxStatus, resp.StatusCode)
		derr.WithContext(domainerrors.CtxOperation, endpoint)
		slog.Warn("backend request failed", "endpoint", endpoint, "status", resp.StatusCode, "detail", derr.Message)
		return nil, derr
	}
	return data, nil
}

func (c *Client) decode(raw []byte) (*model.AnalysisResult, error) {
	if c.validator != nil {
		if err := c.validator.Validate(raw); err != nil {
			observability.ContractViolationsTotal.Inc()
			return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "backend returned a malformed analysis")
		}
	}
	result, err := model.Decode(raw)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "backend returned a malformed analysis")
	}
	return result, nil
}

// errorDetail extracts the backend's {"detail": "..."} message.
func errorDetail(data []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return msgAnalysisFailed
	}
	switch detail := payload.Detail.(type) {
	case string:
		if strings.TrimSpace(detail) != "" {
			return detail
		}
	case nil:
	default:
		// Request validation failures carry a structured detail.
		if encoded, err := json.Marshal(detail); err == nil {
			return string(encoded)
		}
	}
	return msgAnalysisFailed
}

func statusClass(status int) string {
	if status < 100 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, domainerrors.UserMessage(err))
}

var _ ports.AnalysisSource = (*Client)(nil)
