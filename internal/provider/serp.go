// Package provider queries the external answer-engine API and normalizes raw
// results into snapshots.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/citewatch/citewatch/internal/model"
)

// Fetcher captures one (query, domain, engine) observation.
type Fetcher interface {
	Fetch(ctx context.Context, query, domain, engine string) (*model.Snapshot, error)
}

// Config holds SERP client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Locale  string
}

// Client talks to a SerpAPI-style search endpoint.
type Client struct {
	http   *resty.Client
	apiKey string
	locale string
	now    func() time.Time
}

// NewClient builds a SERP client from cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	locale := cfg.Locale
	if locale == "" {
		locale = "en"
	}
	return &Client{
		http:   resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(timeout),
		apiKey: cfg.APIKey,
		locale: locale,
		now:    time.Now,
	}
}

// Raw response shapes, trimmed to the fields normalization reads.

type serpResponse struct {
	AIOverview     *aiOverview     `json:"ai_overview"`
	OrganicResults []organicResult `json:"organic_results"`
	AnswerBox      *answerBox      `json:"answer_box"`
	Error          string          `json:"error"`
}

type aiOverview struct {
	TextBlocks []textBlock `json:"text_blocks"`
	References []reference `json:"references"`
}

type textBlock struct {
	Snippet string `json:"snippet"`
}

type reference struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type organicResult struct {
	Position int    `json:"position"`
	Link     string `json:"link"`
}

type answerBox struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Fetch issues one search call and normalizes the response. A response with
// no AI-overview section yields an empty snapshot, not an error; transport
// and non-2xx failures wrap model.ErrProvider so the retry executor and
// scheduler can classify them.
func (c *Client) Fetch(ctx context.Context, query, domain, engine string) (*model.Snapshot, error) {
	var out serpResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":       query,
			"engine":  engine,
			"hl":      c.locale,
			"api_key": c.apiKey,
		}).
		SetResult(&out).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("serp request for %q on %s: %v: %w", query, engine, err, model.ErrProvider)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("serp request for %q on %s: status %d: %w", query, engine, resp.StatusCode(), model.ErrProvider)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("serp request for %q on %s: %s: %w", query, engine, out.Error, model.ErrProvider)
	}

	return c.normalize(query, domain, engine, &out), nil
}

// normalize maps a raw response onto a snapshot. Explicit citation in the
// source list wins the position race; a bare textual mention of the domain
// inside the answer ranks last, at len(citedSources)+1.
func (c *Client) normalize(query, domain, engine string, raw *serpResponse) *model.Snapshot {
	snap := &model.Snapshot{
		Query:            query,
		Domain:           domain,
		Engine:           engine,
		OrganicPositions: organicPositions(raw.OrganicResults, domain),
		CapturedAt:       c.now(),
	}

	if raw.AnswerBox != nil {
		snap.FeaturedSnippet = &model.FeaturedSnippet{
			Title:        raw.AnswerBox.Title,
			Link:         raw.AnswerBox.Link,
			Snippet:      raw.AnswerBox.Snippet,
			DomainListed: linkMatchesDomain(raw.AnswerBox.Link, domain) || containsDomain(raw.AnswerBox.Snippet, domain),
		}
	}

	if raw.AIOverview != nil {
		var parts []string
		for _, tb := range raw.AIOverview.TextBlocks {
			if tb.Snippet != "" {
				parts = append(parts, tb.Snippet)
			}
		}
		snap.AIAnswer = strings.Join(parts, "\n")

		for _, ref := range raw.AIOverview.References {
			snap.CitedSources = append(snap.CitedSources, model.CitedSource{
				Title:   ref.Title,
				Link:    ref.Link,
				Snippet: ref.Snippet,
			})
		}
		snap.TotalSources = len(snap.CitedSources)

		for i, src := range snap.CitedSources {
			if linkMatchesDomain(src.Link, domain) {
				pos := i + 1
				snap.CitationPosition = &pos
				break
			}
		}
		if snap.CitationPosition == nil && containsDomain(snap.AIAnswer, domain) {
			pos := len(snap.CitedSources) + 1
			snap.CitationPosition = &pos
		}
	}

	snap.Checksum = snap.ComputeChecksum()
	return snap
}

func organicPositions(results []organicResult, domain string) []int {
	var positions []int
	for _, r := range results {
		if linkMatchesDomain(r.Link, domain) {
			positions = append(positions, r.Position)
		}
	}
	return positions
}

// linkMatchesDomain does a case-insensitive substring scan; result links are
// full URLs so the bare domain appears verbatim when it is the source.
func linkMatchesDomain(link, domain string) bool {
	return containsDomain(link, domain)
}

func containsDomain(text, domain string) bool {
	if text == "" || domain == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(domain))
}
