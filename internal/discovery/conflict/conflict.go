// Package conflict applies the review-flagging policy to merged candidates
// whose sources disagree about party. The policy is deliberately
// conservative: ambiguity escalates to a human instead of guessing.
package conflict

import (
	"fmt"
	"sort"
	"strings"

	"ballotwatch/internal/discovery/models"
)

// DefaultReviewGap is the largest priority gap between disagreeing sources
// that still escalates to review rather than auto-resolving.
const DefaultReviewGap = 1

// Detector inspects merged candidates for party disagreement.
type Detector struct {
	reviewGap int
	partisan  map[string]struct{}
}

// NewDetector builds a Detector. partisanSources names adapters run by a
// party's own organization; two of those are never allowed to out-vote each
// other. A non-positive reviewGap falls back to the default.
func NewDetector(reviewGap int, partisanSources []string) *Detector {
	if reviewGap <= 0 {
		reviewGap = DefaultReviewGap
	}
	partisan := make(map[string]struct{}, len(partisanSources))
	for _, s := range partisanSources {
		partisan[strings.ToLower(s)] = struct{}{}
	}
	return &Detector{reviewGap: reviewGap, partisan: partisan}
}

// partyClaim tracks the most trusted claim for one party value.
type partyClaim struct {
	party       string
	source      string
	priority    int
	anyPartisan bool
}

// Inspect applies the policy to one merged candidate, mutating its
// HasConflict and ResolvedParty fields. Returns a Conflict when sources
// disagree, nil otherwise.
func (d *Detector) Inspect(mc *models.MergedCandidate) *models.Conflict {
	claims := collectClaims(mc.ContributingRecords, d.partisan)
	if len(claims) <= 1 {
		mc.HasConflict = false
		return nil
	}

	mc.HasConflict = true

	// Most trusted claim first; deterministic tie-break on party value.
	sort.Slice(claims, func(i, j int) bool {
		if claims[i].priority != claims[j].priority {
			return claims[i].priority < claims[j].priority
		}
		return claims[i].party < claims[j].party
	})

	conflict := &models.Conflict{
		PartyValues:    partyBySource(mc.ContributingRecords),
		RequiresReview: true,
		Notes:          describe(mc, claims),
	}

	switch {
	case partisanStandoff(claims):
		// Party organizations disputing each other's attribution is a
		// judgment call, not an arithmetic one.
		mc.ResolvedParty = ""
	case claims[1].priority-claims[0].priority <= d.reviewGap:
		mc.ResolvedParty = ""
	default:
		// Large trust gap: the more trusted source wins outright.
		mc.ResolvedParty = claims[0].party
		conflict.RequiresReview = false
	}

	conflict.Candidate = *mc
	return conflict
}

// collectClaims reduces contributing records to one claim per distinct party
// value, keeping the most trusted source for each.
func collectClaims(records []models.RawCandidate, partisan map[string]struct{}) []partyClaim {
	byParty := make(map[string]*partyClaim)
	for _, rec := range records {
		if rec.Party == "" {
			continue
		}
		_, isPartisan := partisan[strings.ToLower(rec.SourceName)]
		claim, ok := byParty[rec.Party]
		if !ok {
			byParty[rec.Party] = &partyClaim{
				party:       rec.Party,
				source:      rec.SourceName,
				priority:    rec.SourcePriority,
				anyPartisan: isPartisan,
			}
			continue
		}
		if rec.SourcePriority < claim.priority {
			claim.priority = rec.SourcePriority
			claim.source = rec.SourceName
		}
		claim.anyPartisan = claim.anyPartisan || isPartisan
	}

	out := make([]partyClaim, 0, len(byParty))
	for _, c := range byParty {
		out = append(out, *c)
	}
	return out
}

// partisanStandoff reports whether at least two disagreeing party values are
// each backed by a partisan-aligned source.
func partisanStandoff(claims []partyClaim) bool {
	count := 0
	for _, c := range claims {
		if c.anyPartisan {
			count++
		}
	}
	return count >= 2
}

func partyBySource(records []models.RawCandidate) map[string]string {
	out := make(map[string]string)
	for _, rec := range records {
		if rec.Party != "" {
			out[rec.SourceName] = rec.Party
		}
	}
	return out
}

func describe(mc *models.MergedCandidate, claims []partyClaim) string {
	parts := make([]string, 0, len(claims))
	for _, c := range claims {
		parts = append(parts, fmt.Sprintf("%s (priority %d) claims %s", c.source, c.priority, c.party))
	}
	return fmt.Sprintf("party dispute for %q in %s district %d: %s",
		mc.CanonicalName, mc.Chamber, mc.District, strings.Join(parts, "; "))
}
