package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// AlertThreshold controls how eagerly a monitor's owner is notified.
type AlertThreshold string

const (
	ThresholdImmediate AlertThreshold = "immediate"
	ThresholdHourly    AlertThreshold = "hourly"
	ThresholdDaily     AlertThreshold = "daily"
)

// ChangeType enumerates the citation transitions the diff engine can report.
type ChangeType string

const (
	ChangeCitationGained ChangeType = "citation_gained"
	ChangeCitationLost   ChangeType = "citation_lost"
	ChangePositionMoved  ChangeType = "position_changed"
	ChangeAnswerChanged  ChangeType = "ai_answer_changed"
	ChangeSourcesAdded   ChangeType = "new_sources_added"
)

// AllChangeTypes is the default tracked set for monitors that do not narrow it.
var AllChangeTypes = []ChangeType{
	ChangeCitationGained,
	ChangeCitationLost,
	ChangePositionMoved,
	ChangeAnswerChanged,
	ChangeSourcesAdded,
}

// Severity ranks the business impact of a change.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Monitor is a standing subscription: one (query, domain) pair watched across
// one or more answer engines. LastSnapshots holds one baseline per engine so
// each engine diffs against its own history; the scheduler rewrites the
// checked engine's entry and LastChecked after every successful check.
// Deactivation is a soft delete.
type Monitor struct {
	ID             string               `json:"monitorId"`
	UserID         string               `json:"userId"`
	Query          string               `json:"query"`
	Domain         string               `json:"domain"`
	Engines        []string             `json:"engines"`
	ChangeTypes    []ChangeType         `json:"changeTypes"`
	AlertThreshold AlertThreshold       `json:"alertThreshold"`
	IsActive       bool                 `json:"isActive"`
	LastChecked    *time.Time           `json:"lastChecked,omitempty"`
	LastSnapshots  map[string]*Snapshot `json:"lastSnapshots,omitempty"`
	CreationTime   time.Time            `json:"creationTime"`
}

// Tracks reports whether the monitor subscribes to the given change type.
func (m *Monitor) Tracks(ct ChangeType) bool {
	for _, t := range m.ChangeTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// CitedSource is one source backing an AI answer.
type CitedSource struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}

// FeaturedSnippet is the classic SERP snippet box, captured when present.
type FeaturedSnippet struct {
	Title        string `json:"title"`
	Link         string `json:"link"`
	Snippet      string `json:"snippet,omitempty"`
	DomainListed bool   `json:"domainListed"`
}

// Snapshot is an immutable observation of citation-relevant state for one
// (query, domain, engine) at one point in time. CitationPosition is the
// 1-based rank of the domain within CitedSources, or nil when absent.
type Snapshot struct {
	Query            string           `json:"query"`
	Domain           string           `json:"domain"`
	Engine           string           `json:"engine"`
	AIAnswer         string           `json:"aiAnswer"`
	CitedSources     []CitedSource    `json:"citedSources"`
	CitationPosition *int             `json:"citationPosition"`
	TotalSources     int              `json:"totalSources"`
	OrganicPositions []int            `json:"organicPositions"`
	FeaturedSnippet  *FeaturedSnippet `json:"featuredSnippet,omitempty"`
	CapturedAt       time.Time        `json:"capturedAt"`
	Checksum         string           `json:"checksum"`
}

// ComputeChecksum derives the snapshot's content checksum from answer text,
// cited sources and organic positions. Timestamps are excluded so two
// captures of identical content compare equal.
func (s *Snapshot) ComputeChecksum() string {
	h := sha256.New()
	h.Write([]byte(s.AIAnswer))
	if b, err := json.Marshal(s.CitedSources); err == nil {
		h.Write(b)
	}
	if b, err := json.Marshal(s.OrganicPositions); err == nil {
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cited reports whether the domain was observed among the answer's sources
// or mentioned in the answer text.
func (s *Snapshot) Cited() bool { return s.CitationPosition != nil }

// Change is one detected difference between two consecutive snapshots of the
// same monitor. Immutable once created; persisted to the append-only change log.
type Change struct {
	ID          string     `json:"changeId"`
	MonitorID   string     `json:"monitorId"`
	Engine      string     `json:"engine"`
	Type        ChangeType `json:"type"`
	Severity    Severity   `json:"severity"`
	OldValue    string     `json:"oldValue"`
	NewValue    string     `json:"newValue"`
	Description string     `json:"description"`
	Impact      string     `json:"impact"`
	DetectedAt  time.Time  `json:"detectedAt"`
}

// PositionString renders a nullable citation position for change old/new values.
func PositionString(p *int) string {
	if p == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *p)
}
