package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercase with extra whitespace",
			input:    "  rossi   mario ",
			expected: "ROSSI MARIO",
		},
		{
			name:     "accented characters",
			input:    "Niccolò D'Angiò",
			expected: "NICCOLO D'ANGIO",
		},
		{
			name:     "already normalized",
			input:    "ROSSI MARIO",
			expected: "ROSSI MARIO",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestSimilarity_CaseAndAccentInsensitive(t *testing.T) {
	// Case differences must not lower the score at all
	assert.Equal(t, 1.0, Similarity("Rossi Mario", "ROSSI MARIO"))
	assert.Equal(t, 1.0, Similarity("Pietropòli", "PIETROPOLI"))

	// Near match stays high
	score := Similarity("ROSI MARIO", "ROSSI MARIO")
	assert.Greater(t, score, 0.90)

	// Unrelated names stay low
	assert.Less(t, Similarity("ROSSI MARIO", "BRANDENBURG KLAUS"), 0.60)

	// Empty input never matches
	assert.Equal(t, 0.0, Similarity("", "ROSSI"))
}

func TestTierFor_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		tier  Tier
	}{
		{0.95, TierExcellent},
		{0.90, TierExcellent},
		{0.89, TierGood},
		{0.70, TierGood},
		{0.69, TierQuestionable},
		{0.50, TierQuestionable},
		{0.49, TierUntrusted},
		{0.0, TierUntrusted},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.tier, TierFor(tt.score), "score %v", tt.score)
	}
}

// TestTierFor_Monotonic verifies that increasing the score never decreases
// the tier.
func TestTierFor_Monotonic(t *testing.T) {
	order := map[Tier]int{
		TierUntrusted:    0,
		TierQuestionable: 1,
		TierGood:         2,
		TierExcellent:    3,
	}

	prev := TierUntrusted
	for score := 0.0; score <= 1.0; score += 0.01 {
		tier := TierFor(score)
		assert.GreaterOrEqual(t, order[tier], order[prev], "score %v", score)
		prev = tier
	}
}

func TestRank_HidesUntrustedAndSorts(t *testing.T) {
	m := New(Config{})
	items := []Item{
		{ID: 1, Value: "ROSSI MARIO"},
		{ID: 2, Value: "ROSSI MARCO"},
		{ID: 3, Value: "VERDI GIUSEPPE"},
	}

	candidates := m.Rank("Rossi Mario", items)

	// VERDI is untrusted and must be hidden
	assert.Len(t, candidates, 2)
	assert.Equal(t, uint(1), candidates[0].ID)
	assert.Equal(t, TierExcellent, candidates[0].Tier)
	assert.GreaterOrEqual(t, candidates[0].Score, candidates[1].Score)
}

func TestSearch_PrimaryAutoAccept(t *testing.T) {
	m := New(Config{FallbackLimit: 5})
	items := []Item{
		{ID: 7, Value: "ROSSI MARIO", Discriminant: "M"},
		{ID: 8, Value: "BIANCHI ANNA", Discriminant: "F"},
	}

	res := m.Search(Query{Primary: "Rossi Mario", Reduced: "Rossi"}, items, 0.60, 0.74)

	assert.False(t, res.Fallback)
	assert.NotNil(t, res.Best)
	assert.Equal(t, uint(7), res.Best.ID)
	assert.GreaterOrEqual(t, res.Best.Score, 0.95)
	assert.Equal(t, TierExcellent, res.Best.Tier)
	assert.True(t, res.AutoAccept)
}

func TestSearch_FallbackFiltersByDiscriminant(t *testing.T) {
	m := New(Config{FallbackLimit: 5})
	items := []Item{
		{ID: 1, Value: "ESPOSITO LUCIA", Discriminant: "F"},
		{ID: 2, Value: "ESPOSITO LUCA", Discriminant: "M"},
	}

	// Primary query is hopeless, so the reduced surname query runs,
	// filtered to female candidates only.
	res := m.Search(Query{
		Primary:      "XYZQWERT NOPE",
		Reduced:      "Esposito",
		Discriminant: "F",
	}, items, 0.60, 0.74)

	assert.True(t, res.Fallback)
	assert.NotNil(t, res.Best)
	assert.Equal(t, uint(1), res.Best.ID)
	for _, c := range res.Candidates {
		assert.NotEqual(t, uint(2), c.ID)
	}
}

func TestSearch_FallbackCapped(t *testing.T) {
	m := New(Config{FallbackLimit: 2})
	items := []Item{
		{ID: 1, Value: "FERRARI ALDO"},
		{ID: 2, Value: "FERRARI ALDA"},
		{ID: 3, Value: "FERRARI ALDO MARIA"},
		{ID: 4, Value: "FERRARINI ALDO"},
	}

	res := m.Search(Query{Primary: "ZZZZZZZ", Reduced: "Ferrari"}, items, 0.60, 0.74)

	assert.True(t, res.Fallback)
	assert.Len(t, res.Candidates, 2)
}

func TestSearch_NoCandidates(t *testing.T) {
	m := New(Config{})

	res := m.Search(Query{Primary: "ROSSI", Reduced: "ROSSI"}, nil, 0.60, 0.74)

	assert.Nil(t, res.Best)
	assert.False(t, res.AutoAccept)
	assert.Empty(t, res.Candidates)
}
