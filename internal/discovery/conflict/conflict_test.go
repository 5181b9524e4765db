package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotwatch/internal/discovery/models"
)

func merged(records ...models.RawCandidate) *models.MergedCandidate {
	return &models.MergedCandidate{
		CanonicalName:       records[0].Name,
		District:            records[0].District,
		Chamber:             records[0].Chamber,
		ContributingRecords: records,
		Confidence:          1.0,
	}
}

func claim(source string, priority int, party string) models.RawCandidate {
	return models.RawCandidate{
		Name:           "John Smith",
		District:       42,
		Chamber:        models.ChamberHouse,
		Party:          party,
		SourceName:     source,
		SourcePriority: priority,
		FetchedAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNoConflictWhenPartiesAgree(t *testing.T) {
	d := NewDetector(DefaultReviewGap, nil)

	mc := merged(
		claim("ethics", 1, "Democratic"),
		claim("ballotpedia", 2, "Democratic"),
	)

	assert.Nil(t, d.Inspect(mc))
	assert.False(t, mc.HasConflict)
}

func TestNoConflictWhenOnlyOneSourceClaimsParty(t *testing.T) {
	d := NewDetector(DefaultReviewGap, nil)

	mc := merged(
		claim("ethics", 1, ""),
		claim("ballotpedia", 2, "Democratic"),
	)
	mc.ResolvedParty = "Democratic"

	assert.Nil(t, d.Inspect(mc))
	assert.False(t, mc.HasConflict)
	assert.Equal(t, "Democratic", mc.ResolvedParty)
}

func TestPartisanSourcesAlwaysEscalate(t *testing.T) {
	d := NewDetector(DefaultReviewGap, []string{"scdp", "scgop"})

	mc := merged(
		claim("SCDP", 3, "Democratic"),
		claim("SCGOP", 3, "Republican"),
	)

	c := d.Inspect(mc)
	require.NotNil(t, c)
	assert.True(t, mc.HasConflict)
	assert.True(t, c.RequiresReview)
	assert.Empty(t, mc.ResolvedParty)
	assert.Equal(t, "Democratic", c.PartyValues["SCDP"])
	assert.Equal(t, "Republican", c.PartyValues["SCGOP"])
}

// Even a large trust gap cannot let one party organization out-vote another.
func TestPartisanStandoffIgnoresPriorityGap(t *testing.T) {
	d := NewDetector(DefaultReviewGap, []string{"scdp", "scgop"})

	mc := merged(
		claim("SCDP", 1, "Democratic"),
		claim("SCGOP", 4, "Republican"),
	)

	c := d.Inspect(mc)
	require.NotNil(t, c)
	assert.True(t, c.RequiresReview)
	assert.Empty(t, mc.ResolvedParty)
}

func TestSmallPriorityGapEscalates(t *testing.T) {
	d := NewDetector(DefaultReviewGap, nil)

	mc := merged(
		claim("ethics", 1, "Democratic"),
		claim("ballotpedia", 2, "Republican"),
	)

	c := d.Inspect(mc)
	require.NotNil(t, c)
	assert.True(t, c.RequiresReview)
	assert.Empty(t, mc.ResolvedParty)
}

func TestLargePriorityGapAutoResolves(t *testing.T) {
	d := NewDetector(DefaultReviewGap, nil)

	mc := merged(
		claim("ethics", 1, "Democratic"),
		claim("scgop", 3, "Republican"),
	)

	c := d.Inspect(mc)
	require.NotNil(t, c)
	assert.True(t, mc.HasConflict)
	assert.False(t, c.RequiresReview)
	assert.Equal(t, "Democratic", mc.ResolvedParty)
}

func TestConfigurableReviewGap(t *testing.T) {
	d := NewDetector(2, nil)

	mc := merged(
		claim("ethics", 1, "Democratic"),
		claim("scgop", 3, "Republican"),
	)

	c := d.Inspect(mc)
	require.NotNil(t, c)
	assert.True(t, c.RequiresReview, "gap of 2 is within the configured review gap")
	assert.Empty(t, mc.ResolvedParty)
}

func TestNotesNameEverySource(t *testing.T) {
	d := NewDetector(DefaultReviewGap, nil)

	mc := merged(
		claim("ethics", 1, "Democratic"),
		claim("ballotpedia", 2, "Republican"),
	)

	c := d.Inspect(mc)
	require.NotNil(t, c)
	assert.Contains(t, c.Notes, "ethics")
	assert.Contains(t, c.Notes, "ballotpedia")
	assert.Contains(t, c.Notes, "Democratic")
	assert.Contains(t, c.Notes, "Republican")
	assert.Contains(t, c.Notes, "district 42")
}
