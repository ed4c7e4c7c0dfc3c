// Package bee is a minimal client for the SOC and feed endpoints of a Bee
// node. It moves bytes only: envelopes are built by the soc package and
// verification is left to callers.
package bee

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.sia.tech/socbench/internal/feed"
	"go.sia.tech/socbench/internal/redundancy"
	"go.sia.tech/socbench/internal/soc"
	"go.uber.org/zap"
)

// PostageBatchHeader carries the postage batch an upload is paid with.
const PostageBatchHeader = "swarm-postage-batch-id"

type (
	// Config configures a Client.
	Config struct {
		// UploadURL is the base URL of the node that accepts uploads.
		UploadURL string
		// DownloadURL is the base URL of the node downloads are made from.
		// Defaults to UploadURL.
		DownloadURL string
		// PostageBatchID is the capacity reservation every upload is
		// stamped with.
		PostageBatchID string
		// UploadMethod is the HTTP method of SOC uploads. Defaults to POST.
		UploadMethod string
		// SendDownloadRedundancy adds the redundancy level header to
		// downloads.
		SendDownloadRedundancy bool
	}

	// A Client uploads and downloads SOCs and feeds.
	Client struct {
		cfg  Config
		http *http.Client
		log  *zap.Logger
	}

	// An Option configures optional Client dependencies.
	Option func(*Client)
)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the client's logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func (c *Client) socURL(base string, owner soc.Owner, id soc.ID) string {
	return fmt.Sprintf("%s/soc/%s/%s", strings.TrimRight(base, "/"), owner, id)
}

// UploadSOC uploads a constructed envelope at the given redundancy level.
// Header-based envelopes carry their signature in the sig query parameter.
func (c *Client) UploadSOC(ctx context.Context, e *soc.Envelope, level redundancy.Level) error {
	u := c.socURL(c.cfg.UploadURL, e.Owner, e.ID)
	if e.Format == soc.FormatHeaderBased {
		u += "?" + url.Values{"sig": {e.Signature.String()}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, c.cfg.UploadMethod, u, bytes.NewReader(e.Body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(PostageBatchHeader, c.cfg.PostageBatchID)
	req.Header.Set(redundancy.HeaderName, level.HeaderValue())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload SOC %v: %w", e.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UploadFailedError{Status: resp.StatusCode, Message: responseMessage(resp)}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) download(ctx context.Context, u string, level redundancy.Level) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.cfg.SendDownloadRedundancy {
		req.Header.Set(redundancy.HeaderName, level.HeaderValue())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DownloadFailedError{Status: resp.StatusCode, Message: responseMessage(resp)}
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return buf, nil
}

// DownloadSOC downloads the payload stored under (owner, id). The backend
// unwraps the envelope and returns only the chunk payload.
func (c *Client) DownloadSOC(ctx context.Context, owner soc.Owner, id soc.ID, level redundancy.Level) ([]byte, error) {
	return c.download(ctx, c.socURL(c.cfg.DownloadURL, owner, id), level)
}

// GetSOC implements feed.Getter.
func (c *Client) GetSOC(ctx context.Context, owner soc.Owner, id soc.ID) ([]byte, error) {
	return c.DownloadSOC(ctx, owner, id, redundancy.None)
}

// DownloadFeed downloads the latest update of the feed (owner, topic) as
// resolved by the node.
func (c *Client) DownloadFeed(ctx context.Context, owner soc.Owner, topic feed.Topic, level redundancy.Level) ([]byte, error) {
	u := fmt.Sprintf("%s/feeds/%s/%s", strings.TrimRight(c.cfg.DownloadURL, "/"), owner, topic)
	return c.download(ctx, u, level)
}

// New returns a client for the nodes in cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	switch {
	case cfg.UploadURL == "":
		return nil, errors.New("upload URL is required")
	case cfg.PostageBatchID == "":
		return nil, errors.New("postage batch id is required")
	}
	if cfg.DownloadURL == "" {
		cfg.DownloadURL = cfg.UploadURL
	}
	if cfg.UploadMethod == "" {
		cfg.UploadMethod = http.MethodPost
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	transport := c.http.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	hc := *c.http
	hc.Transport = &loggingTransport{next: transport, log: c.log.Named("http")}
	c.http = &hc
	return c, nil
}
