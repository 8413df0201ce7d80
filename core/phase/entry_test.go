package phase

import (
	"testing"

	"meet-importer/core/matcher"

	"github.com/stretchr/testify/assert"
)

func TestEntry_Resolved(t *testing.T) {
	var e Entry
	assert.False(t, e.Resolved())

	zero := uint(0)
	e.ID = &zero
	assert.False(t, e.Resolved())

	e.Assign(42, 0.97)
	assert.True(t, e.Resolved())
	assert.Equal(t, uint(42), *e.ID)
	assert.Equal(t, 0.97, e.Score)
}

func TestEntry_Record(t *testing.T) {
	e := Entry{Key: "ROSSI|MARIO|1978"}

	e.Record(nil)
	assert.Empty(t, e.Errors)

	e.Record(&UnresolvedReferenceError{Entity: "team", Key: "ACME", Reason: "no candidates"})
	assert.Len(t, e.Errors, 1)
	assert.Contains(t, e.Errors[0], "ACME")
}

func TestEntry_Apply(t *testing.T) {
	best := matcher.Candidate{ID: 7, Value: "ROSSI MARIO", Score: 0.95, Tier: matcher.TierExcellent}

	t.Run("auto-accept assigns id", func(t *testing.T) {
		var e Entry
		e.Apply(matcher.Result{Candidates: []matcher.Candidate{best}, Best: &best, AutoAccept: true})
		assert.True(t, e.Resolved())
		assert.Equal(t, uint(7), *e.ID)
		assert.Len(t, e.Candidates, 1)
	})

	t.Run("below cutoff keeps candidates only", func(t *testing.T) {
		var e Entry
		e.Apply(matcher.Result{Candidates: []matcher.Candidate{best}, Best: &best, AutoAccept: false})
		assert.False(t, e.Resolved())
		assert.Len(t, e.Candidates, 1)
	})
}

func TestChecksum_Deterministic(t *testing.T) {
	a := Checksum([]byte(`{"k":"v"}`))
	b := Checksum([]byte(`{"k":"v"}`))
	c := Checksum([]byte(`{"k":"w"}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
