// Package dedupe groups raw candidate mentions into merged identities.
package dedupe

import (
	"sort"

	"ballotwatch/internal/discovery/matching"
	"ballotwatch/internal/discovery/models"
)

// Deduplicator partitions raw records into merged candidate identities using
// normalized-name similarity. The partition depends only on the record set
// and the threshold, never on input order.
type Deduplicator struct {
	threshold float64
}

// New builds a Deduplicator. A non-positive threshold falls back to the
// default.
func New(threshold float64) *Deduplicator {
	if threshold <= 0 {
		threshold = matching.DefaultThreshold
	}
	return &Deduplicator{threshold: threshold}
}

// Merge groups raw records by (district, chamber), then greedily clusters
// records whose normalized names clear the similarity threshold.
func (d *Deduplicator) Merge(raw []models.RawCandidate) []models.MergedCandidate {
	type key struct {
		district int
		chamber  models.Chamber
	}

	groups := make(map[key][]models.RawCandidate)
	for _, rec := range raw {
		k := key{district: rec.District, chamber: rec.Chamber}
		groups[k] = append(groups[k], rec)
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].chamber != keys[j].chamber {
			return keys[i].chamber < keys[j].chamber
		}
		return keys[i].district < keys[j].district
	})

	var merged []models.MergedCandidate
	for _, k := range keys {
		merged = append(merged, d.mergeGroup(groups[k])...)
	}
	return merged
}

// mergeGroup clusters one (district, chamber) group. Records are first put in
// a canonical order so permuting the caller's input cannot change the
// partition.
func (d *Deduplicator) mergeGroup(records []models.RawCandidate) []models.MergedCandidate {
	sortRecords(records)

	assigned := make([]bool, len(records))
	var out []models.MergedCandidate

	for i := range records {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		cluster := []models.RawCandidate{records[i]}

		for j := i + 1; j < len(records); j++ {
			if assigned[j] {
				continue
			}
			if matching.FuzzyMatch(records[i].Name, records[j].Name, d.threshold) {
				assigned[j] = true
				cluster = append(cluster, records[j])
			}
		}

		out = append(out, buildMerged(cluster))
	}

	return out
}

// sortRecords orders records by trust (priority, then fetch time, then name)
// so the most trusted record leads each cluster and supplies the canonical
// name.
func sortRecords(records []models.RawCandidate) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].SourcePriority != records[j].SourcePriority {
			return records[i].SourcePriority < records[j].SourcePriority
		}
		if !records[i].FetchedAt.Equal(records[j].FetchedAt) {
			return records[i].FetchedAt.Before(records[j].FetchedAt)
		}
		return records[i].Name < records[j].Name
	})
}

// buildMerged assembles one identity from a cluster. The cluster is already
// sorted most-trusted first, so the canonical name is cluster[0]'s.
func buildMerged(cluster []models.RawCandidate) models.MergedCandidate {
	maxSim := 1.0
	if len(cluster) > 1 {
		maxSim = 0
		for i := 0; i < len(cluster); i++ {
			for j := i + 1; j < len(cluster); j++ {
				if s := matching.Similarity(cluster[i].Name, cluster[j].Name); s > maxSim {
					maxSim = s
				}
			}
		}
	}

	confidence := maxSim
	if partyValues(cluster) > 1 {
		// Sources disagreeing on party is weak evidence the merge itself
		// grouped two different people.
		confidence *= 0.9
	}

	return models.MergedCandidate{
		CanonicalName:       cluster[0].Name,
		District:            cluster[0].District,
		Chamber:             cluster[0].Chamber,
		ResolvedParty:       singleParty(cluster),
		ContributingRecords: cluster,
		Confidence:          confidence,
	}
}

// partyValues counts distinct non-empty party claims in a cluster.
func partyValues(cluster []models.RawCandidate) int {
	seen := make(map[string]struct{})
	for _, rec := range cluster {
		if rec.Party != "" {
			seen[rec.Party] = struct{}{}
		}
	}
	return len(seen)
}

// singleParty returns the cluster's party when every non-empty claim agrees,
// otherwise empty; disputes are settled later by the conflict detector.
func singleParty(cluster []models.RawCandidate) string {
	party := ""
	for _, rec := range cluster {
		if rec.Party == "" {
			continue
		}
		if party == "" {
			party = rec.Party
		} else if party != rec.Party {
			return ""
		}
	}
	return party
}
