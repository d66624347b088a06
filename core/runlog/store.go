// Package runlog persists one summary record per CLI run so past
// simulations, revenue evaluations and sizing sweeps can be listed later.
package runlog

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/bessim/core/model"
)

// Kinds of runs.
const (
	KindSimulate = "simulate"
	KindRevenue  = "revenue"
	KindOptimal  = "optimal"
	KindSizing   = "sizing"
)

// RunRecord captures one run and its scalar results.
type RunRecord struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Kind      string              `json:"kind"`
	Policy    string              `json:"policy,omitempty"`
	Input     string              `json:"input,omitempty"`
	Battery   model.BatteryConfig `json:"battery"`
	Summary   map[string]float64  `json:"summary"`
}

// NewRecord returns a record with a fresh identifier and the current time.
func NewRecord(kind, policy, input string, battery model.BatteryConfig, summary map[string]float64) RunRecord {
	return RunRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Policy:    policy,
		Input:     input,
		Battery:   battery,
		Summary:   summary,
	}
}

// prepared drops non-finite summary values, which JSON cannot encode.
func (r RunRecord) prepared() RunRecord {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if len(r.Summary) == 0 {
		return r
	}
	clean := make(map[string]float64, len(r.Summary))
	for k, v := range r.Summary {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean[k] = v
		}
	}
	r.Summary = clean
	return r
}

// RunQuery defines filters for retrieving records. Zero fields match all.
type RunQuery struct {
	Start  time.Time
	End    time.Time
	Kind   string
	Policy string
	// Limit keeps only the most recent records when > 0.
	Limit int
}

func (q RunQuery) match(r RunRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.Policy != "" && r.Policy != q.Policy {
		return false
	}
	return true
}

func (q RunQuery) trim(recs []RunRecord) []RunRecord {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// Config selects and configures the store backend.
type Config struct {
	// Backend is "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// MaxSizeMB enables rotation of the JSONL file when > 0.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies the JSONL backend next to the working directory.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "bessim.db"
		default:
			c.Path = "bessim-runs.jsonl"
		}
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "jsonl", "sqlite", "none":
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
	if c.Backend != "none" && c.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("store rotation settings must be >= 0")
	}
	return nil
}

// Open creates the store selected by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "none":
		return NopStore{}, nil
	default:
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return NewJSONLStore(cfg.Path)
	}
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error              { return nil }
func (NopStore) Query(context.Context, RunQuery) ([]RunRecord, error) { return nil, nil }
func (NopStore) Close() error                                         { return nil }
