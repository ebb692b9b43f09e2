// Package executor fires a single outbound HTTP request on behalf of a
// Target and returns a fully classified Attempt. It never returns an
// error to the caller — every outcome, including transport failures, is
// captured on the Attempt itself.
package executor

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/requestid"
)

type Executor struct {
	client *http.Client
	logger *slog.Logger
}

func New(logger *slog.Logger) *Executor {
	return &Executor{
		client: &http.Client{
			// Per-request timeouts are applied via context; this is a safety net.
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		logger: logger.With("component", "executor"),
	}
}

// ExecuteRequest is everything the executor needs to fire one attempt,
// copied off the owning Target/Schedule so the executor has no store
// dependency.
type ExecuteRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    json.RawMessage
	Timeout time.Duration
}

// Execute fires one HTTP request and returns a fully populated Attempt.
// AttemptNumber and RunID are left zero-valued; the caller (the engine,
// via the run recorder) fills them in before persisting.
func (e *Executor) Execute(ctx context.Context, req ExecuteRequest) domain.Attempt {
	startedAt := time.Now().UTC()
	start := time.Now()

	attempt := domain.Attempt{StartedAt: startedAt}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = strings.NewReader(string(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return e.recordError(attempt, domain.ErrorTypeUnknown, err, start)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	reqID := requestid.New()
	httpReq.Header.Set("X-Request-ID", reqID)
	ctx = requestid.WithRequestID(ctx, reqID)

	e.logger.InfoContext(ctx, "sending request", "method", req.Method, "url", req.URL)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return e.recordError(attempt, classifyTransportError(ctx, err), err, start)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	attempt.StatusCode = &resp.StatusCode
	size := int64(len(body))
	attempt.ResponseSizeBytes = &size
	attempt.LatencyMS = elapsedMS(start)
	attempt.CompletedAt = time.Now().UTC()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		attempt.ErrorType = domain.ErrorTypeHTTP4xx
		attempt.ErrorMessage = fmt.Sprintf("HTTP %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		attempt.ErrorType = domain.ErrorTypeHTTP5xx
		attempt.ErrorMessage = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	e.logger.InfoContext(ctx, "received response", "status", resp.StatusCode, "latency_ms", attempt.LatencyMS)
	return attempt
}

func (e *Executor) recordError(attempt domain.Attempt, errType domain.ErrorType, err error, start time.Time) domain.Attempt {
	attempt.LatencyMS = elapsedMS(start)
	attempt.ErrorType = errType
	attempt.ErrorMessage = domain.TruncateErrorMessage(err.Error())
	attempt.CompletedAt = time.Now().UTC()
	e.logger.Error("request failed", "error_type", errType, "error", err)
	return attempt
}

// classifyTransportError maps a net/http client error into one of
// TIMEOUT, DNS, CONNECTION or UNKNOWN.
func classifyTransportError(ctx context.Context, err error) domain.ErrorType {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrorTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrorTypeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.ErrorTypeDNS
	}

	text := strings.ToLower(err.Error())
	if strings.Contains(text, "name resolution") || strings.Contains(text, "dns") {
		return domain.ErrorTypeDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.ErrorTypeConnection
	}

	return domain.ErrorTypeUnknown
}

// elapsedMS returns the wall-clock duration since start in milliseconds,
// rounded to 2 decimals.
func elapsedMS(start time.Time) float64 {
	ms := float64(time.Since(start).Microseconds()) / 1000.0
	return roundTo2(ms)
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
