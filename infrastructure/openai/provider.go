package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Pacifique5/AI-BOT/domain/chat"
	"github.com/Pacifique5/AI-BOT/internal/metrics"
)

// Provider calls an OpenAI-compatible chat completions API. Each Complete
// call is a single attempt: failures surface immediately as typed errors and
// retry policy stays with the caller.
type Provider struct {
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	metrics        *metrics.Metrics
}

// NewProvider builds a provider with a pooled transport. connectTimeout
// bounds dialing and requestTimeout bounds each Complete call end to end.
// The metrics recorder may be nil.
func NewProvider(apiKey, baseURL string, requestTimeout, connectTimeout time.Duration, m *metrics.Metrics) *Provider {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       200,
		IdleConnTimeout:       90 * time.Second,
		DisableCompression:    false,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: requestTimeout,
	}

	return &Provider{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// Backstop above the per-request deadline
			Timeout:   requestTimeout + 10*time.Second,
			Transport: transport,
		},
		requestTimeout: requestTimeout,
		metrics:        m,
	}
}

type apiChatRequest struct {
	Model       string                 `json:"model"`
	Messages    []chat.UpstreamMessage `json:"messages"`
	Temperature float64                `json:"temperature"`
}

func (p *Provider) Complete(ctx context.Context, model string, temperature float64, messages []chat.UpstreamMessage) (completion *chat.Completion, err error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordUpstream(model, outcomeOf(err), time.Since(start))
		}
	}()

	jsonData, err := json.Marshal(apiChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	hreq, err := http.NewRequestWithContext(callCtx, "POST", p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(hreq)
	if err != nil {
		return nil, p.classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.classifyTransportError(fmt.Errorf("read: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"model":  model,
			"body":   string(body),
		}).Error("OpenAI API error")
		return nil, &chat.UpstreamError{StatusCode: resp.StatusCode, Body: parseErrorBody(body)}
	}

	var out chat.Completion
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"model":      model,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("Completion API call succeeded")

	return &out, nil
}

// classifyTransportError maps transport failures onto the typed error
// taxonomy: deadline overruns become TimeoutError, everything else a
// NetworkError.
func (p *Provider) classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &chat.TimeoutError{Timeout: p.requestTimeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &chat.TimeoutError{Timeout: p.requestTimeout}
	}
	return &chat.NetworkError{Cause: err}
}

// parseErrorBody keeps the upstream's error payload intact when it is JSON
// and falls back to wrapping the raw text otherwise.
func parseErrorBody(body []byte) any {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed
	}
	return map[string]any{"message": string(body)}
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}

	var timeoutErr *chat.TimeoutError
	var upstreamErr *chat.UpstreamError
	var networkErr *chat.NetworkError
	switch {
	case errors.As(err, &timeoutErr):
		return metrics.OutcomeTimeout
	case errors.As(err, &upstreamErr):
		return metrics.OutcomeUpstreamError
	case errors.As(err, &networkErr):
		return metrics.OutcomeNetworkError
	default:
		return metrics.OutcomeDecodeError
	}
}
