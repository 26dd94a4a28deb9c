// Package history keeps an in-memory log of validation runs.
package history

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/termsheet-validator/internal/pipeline"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

type IssueRecord struct {
	Field       string `json:"field"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

type Record struct {
	ID        string        `json:"id"`
	Filename  string        `json:"filename"`
	Timestamp string        `json:"timestamp"`
	Status    string        `json:"status"`
	RiskScore float64       `json:"risk_score"`
	Issues    []IssueRecord `json:"issues"`
}

// Store is safe for concurrent use. Records are kept newest first and capped.
type Store struct {
	mu      sync.RWMutex
	records []Record
	max     int
	newID   func() string
}

type Option func(*Store)

// WithMax caps the number of records kept; the oldest are dropped first.
func WithMax(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.max = n
		}
	}
}

// WithoutSeed starts with an empty history instead of the demo records.
func WithoutSeed() Option {
	return func(s *Store) { s.records = nil }
}

func WithIDFunc(f func() string) Option {
	return func(s *Store) {
		if f != nil {
			s.newID = f
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		records: Seed(),
		max:     1000,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Seed returns the two demo records the history starts with.
func Seed() []Record {
	return []Record{
		{
			ID:        "1",
			Filename:  "term_sheet_1.pdf",
			Timestamp: "2023-05-15T10:30:00Z",
			Status:    "VALID",
			RiskScore: 0.2,
			Issues:    []IssueRecord{},
		},
		{
			ID:        "2",
			Filename:  "term_sheet_2.pdf",
			Timestamp: "2023-05-14T14:45:00Z",
			Status:    "INVALID",
			RiskScore: 0.8,
			Issues: []IssueRecord{
				{Field: "counterparty", Severity: "HIGH", Description: "Counterparty not found in approved list"},
				{Field: "trade_date", Severity: "MEDIUM", Description: "Trade date is in the past"},
			},
		},
	}
}

// Record appends a pipeline result. It satisfies pipeline.Recorder.
func (s *Store) Record(filename string, res pipeline.ValidationResult) {
	issues := make([]IssueRecord, 0, len(res.Issues))
	for _, is := range res.Issues {
		issues = append(issues, IssueRecord{
			Field:       strings.TrimSuffix(is.RuleID, "_check"),
			Severity:    string(is.Severity),
			Description: is.Description,
		})
	}
	ts := res.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	s.Add(Record{
		ID:        s.newID(),
		Filename:  filename,
		Timestamp: ts.UTC().Format(timeLayout),
		Status:    res.Status.Upper(),
		RiskScore: res.RiskScore,
		Issues:    issues,
	})
}

// Add prepends r.
func (s *Store) Add(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]Record{r}, s.records...)
	if len(s.records) > s.max {
		s.records = s.records[:s.max]
	}
}

// List returns a copy of all records, newest first.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
