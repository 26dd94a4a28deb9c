package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/termsheet-validator/constants"
	"github.com/joseph-ayodele/termsheet-validator/internal/pipeline"
	"github.com/joseph-ayodele/termsheet-validator/internal/rules"
)

func TestNewStore_Seeded(t *testing.T) {
	s := NewStore()
	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "INVALID", list[1].Status)
	assert.Len(t, list[1].Issues, 2)

	assert.Equal(t, 0, NewStore(WithoutSeed()).Len())
}

func TestRecord_FromPipelineResult(t *testing.T) {
	s := NewStore(WithoutSeed(), WithIDFunc(func() string { return "abc" }))
	s.Record("deal.pdf", pipeline.ValidationResult{
		IsValid:   false,
		RiskScore: 0.5,
		Status:    constants.StatusInvalid,
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)),
		Issues: []rules.Issue{
			{RuleID: rules.SettlementVsTradeCheck, Description: "Settlement date ...", Severity: rules.Medium},
		},
	})

	r, ok := s.Get("abc")
	require.True(t, ok)
	assert.Equal(t, "deal.pdf", r.Filename)
	assert.Equal(t, "2025-01-02T02:04:05Z", r.Timestamp)
	assert.Equal(t, "INVALID", r.Status)
	assert.Equal(t, []IssueRecord{{Field: "settlement_vs_trade", Severity: "MEDIUM", Description: "Settlement date ..."}}, r.Issues)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestAdd_NewestFirstAndCapped(t *testing.T) {
	s := NewStore(WithMax(3))
	s.Add(Record{ID: "a"})
	s.Add(Record{ID: "b"})

	ids := []string{}
	for _, r := range s.List() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"b", "a", "1"}, ids)
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(WithoutSeed())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(Record{ID: fmt.Sprint(i)})
			_ = s.List()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestList_ReturnsCopy(t *testing.T) {
	s := NewStore()
	list := s.List()
	list[0].Filename = "changed"
	assert.Equal(t, "term_sheet_1.pdf", s.List()[0].Filename)
}
