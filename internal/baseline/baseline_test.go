package baseline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/violation"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("no-print", "src/cli.py", 10, "print call")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Fingerprint("no-print", "./src/cli.py", 10, "print call"))

	// Unlike the tracking identity, the fingerprint is message-sensitive.
	assert.NotEqual(t, a, Fingerprint("no-print", "src/cli.py", 10, "different wording"))

	// Only the first 120 characters of the message participate.
	long := strings.Repeat("x", 150)
	assert.Equal(t,
		Fingerprint("c", "f.py", 1, long),
		Fingerprint("c", "f.py", 1, long[:120]+"tail-ignored"))
}

func v(checkID, file string, line int, message string) *violation.Violation {
	return &violation.Violation{
		CheckID:  checkID,
		File:     file,
		Line:     line,
		Message:  message,
		Severity: contract.SeverityError,
	}
}

func TestComparePartition(t *testing.T) {
	h1 := v("c1", "a.py", 1, "m1")
	h2 := v("c2", "b.py", 2, "m2")
	h3 := v("c3", "c.py", 3, "m3")

	b := FromViolations([]*violation.Violation{h1, h2}, "")
	cmp := Compare([]*violation.Violation{h1, h3}, b)

	require.Len(t, cmp.New, 1)
	assert.Equal(t, "c3", cmp.New[0].CheckID)
	require.Len(t, cmp.Existing, 1)
	assert.Equal(t, "c1", cmp.Existing[0].CheckID)
	require.Len(t, cmp.Fixed, 1)
	assert.Equal(t, "c2", cmp.Fixed[0].CheckID)
	assert.Equal(t, 0, cmp.NetChange, "one new, one fixed")
	assert.False(t, cmp.ShouldFailRatchet())
}

func TestCompareRatchet(t *testing.T) {
	b := New("")
	cmp := Compare([]*violation.Violation{v("c1", "a.py", 1, "m")}, b)
	assert.Equal(t, 1, cmp.NetChange)
	assert.True(t, cmp.ShouldFailRatchet())
}

func TestShouldFail(t *testing.T) {
	warn := v("c1", "a.py", 1, "m")
	warn.Severity = contract.SeverityWarning
	cmp := &Comparison{New: []*violation.Violation{warn}}

	assert.False(t, cmp.ShouldFail(true, false), "warnings pass under errors-only policy")
	assert.True(t, cmp.ShouldFail(true, true))

	cmp.New = append(cmp.New, v("c2", "b.py", 2, "m"))
	assert.True(t, cmp.ShouldFail(true, false))
	assert.False(t, cmp.ShouldFail(false, false))
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")

	b := FromViolations([]*violation.Violation{v("c1", "a.py", 1, "m1")}, "abc123")
	require.NoError(t, b.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, got.SchemaVersion)
	assert.Equal(t, "abc123", got.CommitSHA)
	assert.Len(t, got.Entries, 1)
}

func TestLoadMissingIsErrNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadCorruptIsErrNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHistory(t *testing.T) {
	h := NewHistory(t.TempDir())

	require.NoError(t, h.Record(&HistorySnapshot{Date: "2026-03-01", Failed: 10, Passed: 90}))
	require.NoError(t, h.Record(&HistorySnapshot{Date: "2026-03-02", Failed: 8, Passed: 92}))
	require.NoError(t, h.Record(&HistorySnapshot{Date: "2026-03-03", Failed: 9, Passed: 91}))

	latest, err := h.Latest("2026-03-03")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2026-03-02", latest.Date, "Latest is strictly before the given date")

	today, err := h.Get("2026-03-03")
	require.NoError(t, err)
	d := today.DeltaFrom(latest)
	assert.Equal(t, 1, d.Failed)
	assert.Equal(t, -1, d.Passed)

	none, err := h.Latest("2026-03-01")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestHistoryEmptyDir(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "missing"))
	s, err := h.Latest("")
	require.NoError(t, err)
	assert.Nil(t, s)
}
