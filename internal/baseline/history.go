package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/codeconform/conform/internal/atomicfile"
)

// HistorySnapshot is one day's conformance state.
type HistorySnapshot struct {
	Date           string  `json:"date"` // YYYY-MM-DD
	Total          int     `json:"total"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	Exempted       int     `json:"exempted"`
	Stale          int     `json:"stale"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// Delta is the per-field difference between two snapshots.
type Delta struct {
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Exempted int `json:"exempted"`
}

// DeltaFrom computes s minus older, field by field.
func (s *HistorySnapshot) DeltaFrom(older *HistorySnapshot) Delta {
	return Delta{
		Passed:   s.Passed - older.Passed,
		Failed:   s.Failed - older.Failed,
		Exempted: s.Exempted - older.Exempted,
	}
}

// History stores one snapshot file per day under a directory.
type History struct {
	dir string
}

// NewHistory returns a history over dir.
func NewHistory(dir string) *History { return &History{dir: dir} }

// Record writes the snapshot for its date, replacing any existing one.
func (h *History) Record(s *HistorySnapshot) error {
	if s.Date == "" {
		s.Date = time.Now().UTC().Format("2006-01-02")
	}
	return atomicfile.WriteJSON(filepath.Join(h.dir, s.Date+".json"), s)
}

// Get returns the snapshot for a date, or nil when none exists.
func (h *History) Get(date string) (*HistorySnapshot, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, date+".json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history snapshot: %w", err)
	}
	var s HistorySnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing history snapshot %s: %w", date, err)
	}
	return &s, nil
}

// Latest returns the most recent snapshot strictly before the given
// date, or nil when history is empty. Dates sort lexically.
func (h *History) Latest(before string) (*HistorySnapshot, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history directory: %w", err)
	}
	var dates []string
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		date := name[:len(name)-len(".json")]
		if before == "" || date < before {
			dates = append(dates, date)
		}
	}
	if len(dates) == 0 {
		return nil, nil
	}
	sort.Strings(dates)
	return h.Get(dates[len(dates)-1])
}
