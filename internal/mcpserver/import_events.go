package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/darvall/gistcal/internal/apperr"
)

const maxCSVSize = 10 << 20 // 10 MB

func (s *Server) importEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	csvText, csvErr := req.RequireString("csv")
	rawURL, urlErr := req.RequireString("url")

	if csvErr != nil && urlErr != nil {
		return mcp.NewToolResultError("provide either csv content or a url to fetch it from"), nil
	}
	if csvErr == nil && urlErr == nil {
		return mcp.NewToolResultError("provide csv or url, not both"), nil
	}

	doPublish := false
	if v, err := req.RequireString("publish"); err == nil {
		doPublish = v == "true"
	}

	var src io.Reader
	if csvErr == nil {
		src = strings.NewReader(csvText)
	} else {
		data, err := fetchCSV(ctx, rawURL)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		src = strings.NewReader(string(data))
	}

	report, err := s.svc.Sync(ctx, src, time.Now(), doPublish)
	if err != nil && !errors.Is(err, apperr.ErrPublish) {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	if err != nil {
		// Events are stored; only the gist push failed.
		return mcp.NewToolResultError(fmt.Sprintf("events stored but publish failed: %v\n%s", err, out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// fetchCSV downloads a CSV export over HTTP(S). Targets are pinned away
// from loopback and metadata addresses, redirects are capped at five with
// every hop re-checked, and the body is capped at maxCSVSize.
func fetchCSV(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q, only http and https", parsed.Scheme)
	}
	if err := guardHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(r *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return guardHost(r.URL.Hostname())
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch csv: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch csv: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCSVSize+1))
	if err != nil {
		return nil, fmt.Errorf("read csv body: %w", err)
	}
	if len(data) > maxCSVSize {
		return nil, fmt.Errorf("csv larger than %d bytes", maxCSVSize)
	}
	return data, nil
}

// guardHost rejects fetch targets that could reach the local machine or a
// cloud metadata service.
func guardHost(host string) error {
	if strings.EqualFold(host, "metadata.google.internal") {
		return fmt.Errorf("blocked host %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		addrs, err := net.LookupIP(host)
		if err != nil || len(addrs) == 0 {
			// Unresolvable names fail later in the client with a clearer error.
			return nil
		}
		ip = addrs[0]
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("blocked host %s resolves to a loopback address", host)
	case ip.IsLinkLocalUnicast():
		// Covers 169.254.0.0/16, including every cloud metadata endpoint.
		return fmt.Errorf("blocked host %s resolves to a link-local address", host)
	}
	return nil
}
