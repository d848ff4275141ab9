// Package legifrance implements the catalog port against the
// Légifrance API: OAuth2 client-credentials auth, JSON POST requests,
// and the request quota enforced before every call.
package legifrance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/AnabVangun/publicLegiCrawler/internal/domain"
	"github.com/AnabVangun/publicLegiCrawler/internal/quota"
)

const (
	// DefaultHost is the sandbox PISTE endpoint for the lf-engine-app.
	DefaultHost = "https://sandbox-api.aife.economie.gouv.fr/dila/legifrance-beta/lf-engine-app"
	// DefaultTokenURL is the matching sandbox OAuth token endpoint.
	DefaultTokenURL = "https://sandbox-oauth.aife.economie.gouv.fr/api/oauth/token"

	// pageSize is fixed by the remote API contract.
	pageSize = 100
)

// Options configures a Client. Zero values fall back to the sandbox
// endpoints and the documented quota (100 requests per minute).
type Options struct {
	Host         string
	TokenURL     string
	ClientID     string
	ClientSecret string
	QuotaLimit   int
	QuotaPeriod  time.Duration
}

// Client talks to the Légifrance API. It owns its quota guard: one
// client per credential pair, or quotas might be violated.
type Client struct {
	http  *http.Client
	host  string
	guard *quota.Guard
	log   *slog.Logger
}

// New wires an OAuth2-authenticated client.
func New(ctx context.Context, opts Options, logger *slog.Logger) *Client {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.QuotaLimit <= 0 {
		opts.QuotaLimit = 100
	}
	if opts.QuotaPeriod <= 0 {
		opts.QuotaPeriod = time.Minute
	}

	creds := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
		Scopes:       []string{"openid"},
	}

	return &Client{
		http:  creds.Client(ctx),
		host:  opts.Host,
		guard: quota.New(opts.QuotaLimit, opts.QuotaPeriod),
		log:   logger,
	}
}

type searchRequest struct {
	Fond      string    `json:"fond"`
	Recherche recherche `json:"recherche"`
}

type recherche struct {
	PageNumber int      `json:"pageNumber"`
	PageSize   int      `json:"pageSize"`
	Natures    []string `json:"natures,omitempty"`
	Keywords   string   `json:"keywords,omitempty"`
}

type searchResponse struct {
	TotalResultNumber int `json:"totalResultNumber"`
	Results           []struct {
		Titles []struct {
			Cid string `json:"cid"`
		} `json:"titles"`
	} `json:"results"`
}

// Search returns one page of text cids matching the query and the
// server-reported total.
func (c *Client) Search(ctx context.Context, query domain.SearchQuery, page int) ([]string, int, error) {
	payload := searchRequest{
		Fond: query.Fond,
		Recherche: recherche{
			PageNumber: page,
			PageSize:   pageSize,
			Natures:    query.Natures,
			Keywords:   query.Keywords,
		},
	}

	var resp searchResponse
	if err := c.post(ctx, "/search", payload, &resp); err != nil {
		return nil, 0, fmt.Errorf("search page %d: %w", page, err)
	}

	ids := make([]string, 0, len(resp.Results))
	for _, result := range resp.Results {
		if len(result.Titles) == 0 {
			continue
		}
		ids = append(ids, result.Titles[0].Cid)
	}
	return ids, resp.TotalResultNumber, nil
}

type consultRequest struct {
	TextCid string `json:"textCid"`
}

type consultResponse struct {
	Cid          string `json:"cid"`
	DateParution int64  `json:"dateParution"`
	Articles     []struct {
		Content string `json:"content"`
	} `json:"articles"`
}

// Consult fetches one text. The articles array is expected to hold
// exactly one element; any other shape yields HasContent == false
// and is logged with the observed count, since the upstream schema
// guarantee is unverified.
func (c *Client) Consult(ctx context.Context, id string) (domain.Text, error) {
	var resp consultResponse
	if err := c.post(ctx, "/consult/jorf", consultRequest{TextCid: id}, &resp); err != nil {
		return domain.Text{}, fmt.Errorf("consult %s: %w", id, err)
	}

	text := domain.Text{
		ID:          id,
		PublishedAt: time.UnixMilli(resp.DateParution).UTC(),
	}
	if len(resp.Articles) == 1 {
		text.Content = resp.Articles[0].Content
		text.HasContent = true
	} else {
		c.log.Warn("unexpected article count in consult response",
			"cid", id, "articles", len(resp.Articles))
	}
	return text, nil
}

// post sends one JSON request, acquiring a quota slot first.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	c.guard.Acquire()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post %s: unexpected status %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
