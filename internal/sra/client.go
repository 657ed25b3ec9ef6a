package sra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/briefbase/sra-finder/internal/config"
	"github.com/briefbase/sra-finder/internal/telemetry"
)

const (
	// organisationsPath is the resource holding the full directory, offices included.
	organisationsPath = "Organisations"

	// httpErrorSnippetLen bounds the response-body excerpt carried in an HTTP
	// failure message; probeSampleLen bounds the body sample in a probe report.
	httpErrorSnippetLen = 500
	probeSampleLen      = 300
)

// Client talks to the SRA datashare API. It holds the ordered candidate host
// list, the subscription key, and the per-attempt timeouts, all injected from
// configuration at construction; the client itself is immutable and safe for
// concurrent use.
//
// Hosts are tried in sequence on every call with no memory of which one worked
// last. That trades a small latency cost on primary-host outages for
// resilience without any health-check infrastructure.
type Client struct {
	hosts        []string
	apiKey       string
	timeout      time.Duration
	probeTimeout time.Duration
	httpClient   *http.Client
}

// NewClient builds a Client from the upstream configuration section.
func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		hosts:        cfg.Hosts,
		apiKey:       cfg.APIKey,
		timeout:      cfg.Timeout,
		probeTimeout: cfg.ProbeTimeout,
		// Timeouts are applied per attempt via context, not on the client.
		httpClient: &http.Client{},
	}
}

// FetchOrganisations retrieves the complete organisation directory.
func (c *Client) FetchOrganisations(ctx context.Context) ([]Organisation, error) {
	var resp OrganisationsResponse
	if err := c.FetchJSON(ctx, organisationsPath, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// FetchJSON issues a GET for path against each candidate host in priority
// order and decodes the first successful 2xx JSON body into out. Each host is
// tried exactly once per call, with the configured timeout applied per attempt.
// When every host fails the returned error is a *UpstreamError describing the
// most recent failure; no partial result is ever returned.
func (c *Client) FetchJSON(ctx context.Context, path string, out any) error {
	var last *UpstreamError
	for _, base := range c.hosts {
		body, attemptErr := c.attempt(ctx, base, path, c.timeout)
		if attemptErr != nil {
			telemetry.UpstreamRequestsTotal.WithLabelValues(base, string(attemptErr.Category)).Inc()
			slog.Warn("upstream attempt failed",
				"host", base, "path", path,
				"category", string(attemptErr.Category), "error", attemptErr.Message)
			last = attemptErr
			continue
		}
		if err := json.Unmarshal(body, out); err != nil {
			// A 2xx with an undecodable body counts as a host failure; the next
			// host may still serve a good copy.
			last = &UpstreamError{Host: base, Category: FailureNetwork, Message: "decode response: " + err.Error()}
			telemetry.UpstreamRequestsTotal.WithLabelValues(base, string(FailureNetwork)).Inc()
			slog.Warn("upstream attempt failed", "host", base, "path", path, "category", string(FailureNetwork), "error", last.Message)
			continue
		}
		telemetry.UpstreamRequestsTotal.WithLabelValues(base, "success").Inc()
		return nil
	}
	if last == nil {
		last = &UpstreamError{Category: FailureNetwork, Message: "no upstream hosts configured"}
	}
	return last
}

// attempt performs a single GET against one host and classifies any failure.
func (c *Client) attempt(ctx context.Context, base, path string, timeout time.Duration) ([]byte, *UpstreamError) {
	url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{Host: base, Category: FailureNetwork, Message: err.Error()}
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	telemetry.UpstreamRequestDuration.WithLabelValues(base).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &UpstreamError{Host: base, Category: classifyTransportError(err), Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Host: base, Category: FailureNetwork, Message: "read response: " + err.Error()}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &UpstreamError{
			Host:     base,
			Category: FailureHTTP,
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, snippet(body, httpErrorSnippetLen)),
		}
	}
	return body, nil
}

// HostProbe is one entry in the /probe diagnostic report.
type HostProbe struct {
	Host   string `json:"host"`
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Sample string `json:"sample,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ProbeHosts attempts a lightweight call ($top=1) against every candidate host
// and reports per-host reachability. Unlike FetchJSON it does not stop at the
// first success: the point is to see how each host behaves from this network.
func (c *Client) ProbeHosts(ctx context.Context) []HostProbe {
	results := make([]HostProbe, 0, len(c.hosts))
	for _, base := range c.hosts {
		results = append(results, c.probeHost(ctx, base))
	}
	return results
}

func (c *Client) probeHost(ctx context.Context, base string) HostProbe {
	url := strings.TrimRight(base, "/") + "/" + organisationsPath + "?$top=1"

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return HostProbe{Host: base, OK: false, Error: err.Error()}
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HostProbe{Host: base, OK: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, probeSampleLen))
	return HostProbe{
		Host:   base,
		OK:     resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices,
		Status: resp.StatusCode,
		Sample: string(body),
	}
}
