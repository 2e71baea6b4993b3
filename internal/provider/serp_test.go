package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/citewatch/citewatch/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	return c, srv.Close
}

const fullResponse = `{
  "ai_overview": {
    "text_blocks": [
      {"snippet": "Example.com is a leading CRM."},
      {"snippet": "Other tools also exist."}
    ],
    "references": [
      {"title": "Competitor", "link": "https://competitor.io/crm", "snippet": "crm roundup"},
      {"title": "Example", "link": "https://example.com/crm", "snippet": "crm overview"}
    ]
  },
  "organic_results": [
    {"position": 1, "link": "https://competitor.io/"},
    {"position": 4, "link": "https://example.com/pricing"},
    {"position": 9, "link": "https://blog.example.com/post"}
  ],
  "answer_box": {"title": "Best CRM", "link": "https://example.com/crm", "snippet": "Example tops the list"}
}`

func TestFetchNormalizesFullResponse(t *testing.T) {
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "best crm" {
			t.Errorf("query param q=%q", got)
		}
		if got := r.URL.Query().Get("engine"); got != "google" {
			t.Errorf("query param engine=%q", got)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("query param api_key=%q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fullResponse))
	})
	defer done()

	snap, err := c.Fetch(context.Background(), "best crm", "example.com", "google")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if snap.AIAnswer != "Example.com is a leading CRM.\nOther tools also exist." {
		t.Fatalf("answer: %q", snap.AIAnswer)
	}
	if snap.TotalSources != 2 || len(snap.CitedSources) != 2 {
		t.Fatalf("sources: total=%d len=%d", snap.TotalSources, len(snap.CitedSources))
	}
	if snap.CitationPosition == nil || *snap.CitationPosition != 2 {
		t.Fatalf("citation position: %v, want 2 (explicit citation wins)", snap.CitationPosition)
	}
	if len(snap.OrganicPositions) != 2 || snap.OrganicPositions[0] != 4 || snap.OrganicPositions[1] != 9 {
		t.Fatalf("organic positions: %v, want [4 9]", snap.OrganicPositions)
	}
	if snap.FeaturedSnippet == nil || !snap.FeaturedSnippet.DomainListed {
		t.Fatalf("featured snippet: %+v", snap.FeaturedSnippet)
	}
	if snap.Checksum == "" || snap.Checksum != snap.ComputeChecksum() {
		t.Fatal("checksum not computed deterministically at capture")
	}
}

func TestFetchTextualMentionRanksLast(t *testing.T) {
	body := `{
      "ai_overview": {
        "text_blocks": [{"snippet": "Many teams pick example.com for CRM."}],
        "references": [
          {"title": "A", "link": "https://a.test/1"},
          {"title": "B", "link": "https://b.test/2"},
          {"title": "C", "link": "https://c.test/3"}
        ]
      }
    }`
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
	defer done()

	snap, err := c.Fetch(context.Background(), "best crm", "example.com", "google")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.CitationPosition == nil || *snap.CitationPosition != 4 {
		t.Fatalf("citation position: %v, want len(sources)+1 = 4", snap.CitationPosition)
	}
}

func TestFetchNoAIOverviewIsEmptyNotError(t *testing.T) {
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"organic_results": [{"position": 2, "link": "https://example.com/x"}]}`))
	})
	defer done()

	snap, err := c.Fetch(context.Background(), "best crm", "example.com", "google")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.AIAnswer != "" || snap.CitationPosition != nil || snap.TotalSources != 0 {
		t.Fatalf("expected neutral snapshot, got %+v", snap)
	}
	if len(snap.OrganicPositions) != 1 || snap.OrganicPositions[0] != 2 {
		t.Fatalf("organic positions still scanned: %v", snap.OrganicPositions)
	}
}

func TestFetchServerErrorWrapsProviderError(t *testing.T) {
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	defer done()

	_, err := c.Fetch(context.Background(), "best crm", "example.com", "google")
	if !errors.Is(err, model.ErrProvider) {
		t.Fatalf("got %v, want ErrProvider", err)
	}
}

func TestFetchProviderLevelErrorField(t *testing.T) {
	c, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "invalid api key"}`))
	})
	defer done()

	_, err := c.Fetch(context.Background(), "best crm", "example.com", "google")
	if !errors.Is(err, model.ErrProvider) {
		t.Fatalf("got %v, want ErrProvider", err)
	}
}
