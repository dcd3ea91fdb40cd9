package publish

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/darvall/gistcal/internal/apperr"
	"github.com/darvall/gistcal/internal/checksum"
)

const githubAPIBase = "https://api.github.com"

// GistConfig holds the credentials and target for gist publishing.
type GistConfig struct {
	Token    string
	GistID   string
	Filename string
}

// Gist publishes calendar documents by patching a file inside an existing
// GitHub gist. The raw_url the API returns points at a specific revision;
// Publish derives the revision-free URL that always serves the latest
// content, so subscribers never need a new link.
type Gist struct {
	cfg    GistConfig
	client *resty.Client

	mu      sync.Mutex
	lastSum string
	lastRes Result
}

var _ Publisher = (*Gist)(nil)

// NewGist builds a publisher for the configured gist.
func NewGist(cfg GistConfig) *Gist {
	client := resty.New().
		SetBaseURL(githubAPIBase).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Accept", "application/vnd.github.v3+json").
		SetAuthScheme("token").
		SetAuthToken(cfg.Token)
	return &Gist{cfg: cfg, client: client}
}

type gistFile struct {
	Content string `json:"content,omitempty"`
	RawURL  string `json:"raw_url,omitempty"`
}

type gistResponse struct {
	ID    string              `json:"id"`
	Files map[string]gistFile `json:"files"`
}

// Publish uploads the document, unless it is byte-identical to the last
// successfully published one, in which case the previous result is
// returned with Skipped set. A failed upload never records the checksum,
// so the next attempt uploads again.
func (g *Gist) Publish(ctx context.Context, document string) (*Result, error) {
	sum := checksum.Document(document)

	g.mu.Lock()
	if g.lastSum == sum {
		res := g.lastRes
		res.Skipped = true
		g.mu.Unlock()
		return &res, nil
	}
	g.mu.Unlock()

	body := map[string]map[string]gistFile{
		"files": {g.cfg.Filename: {Content: document}},
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&gistResponse{}).
		Patch("/gists/" + g.cfg.GistID)
	if err != nil {
		return nil, fmt.Errorf("publish: update gist: %w: %v", apperr.ErrPublish, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("publish: update gist: %w: unexpected status %d", apperr.ErrPublish, resp.StatusCode())
	}

	gr, ok := resp.Result().(*gistResponse)
	if !ok || gr == nil {
		return nil, fmt.Errorf("publish: %w: malformed gist response", apperr.ErrPublish)
	}
	file, ok := gr.Files[g.cfg.Filename]
	if !ok || file.RawURL == "" {
		return nil, fmt.Errorf("publish: %w: response missing file %q", apperr.ErrPublish, g.cfg.Filename)
	}

	raw, err := stableRawURL(file.RawURL, g.cfg.Filename)
	if err != nil {
		return nil, fmt.Errorf("publish: %w: %v", apperr.ErrPublish, err)
	}

	res := Result{
		RawURL:    raw,
		WebcalURL: "webcal://" + strings.TrimPrefix(raw, "https://"),
	}

	g.mu.Lock()
	g.lastSum = sum
	g.lastRes = res
	g.mu.Unlock()

	return &res, nil
}

// stableRawURL rewrites a versioned raw_url, which embeds a revision hash,
// into the form https://host/{user}/{gist}/raw/{filename}.
func stableRawURL(versioned, filename string) (string, error) {
	u, err := url.Parse(versioned)
	if err != nil {
		return "", fmt.Errorf("parse raw_url: %v", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("unexpected raw_url path %q", u.Path)
	}
	return fmt.Sprintf("https://%s/%s/%s/raw/%s", u.Host, parts[0], parts[1], filename), nil
}
