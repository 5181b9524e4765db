package sources

import (
	"encoding/json"
	"fmt"
	"os"

	"ballotwatch/internal/discovery/models"
)

type fixtureFile struct {
	Sources []struct {
		Name       string                `json:"name"`
		Priority   int                   `json:"priority"`
		Candidates []models.RawCandidate `json:"candidates"`
	} `json:"sources"`
}

// LoadFile reads a JSON fixture file describing static sources. Deployments
// use it to feed the pipeline from exported filing data while the scraping
// adapters live elsewhere.
func LoadFile(path string) ([]*StaticAdapter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources: read fixtures: %w", err)
	}

	var file fixtureFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("sources: parse fixtures: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("sources: fixture file %q declares no sources", path)
	}

	adapters := make([]*StaticAdapter, 0, len(file.Sources))
	for _, src := range file.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("sources: fixture file %q has a source with no name", path)
		}
		adapters = append(adapters, NewStatic(src.Name, src.Priority, src.Candidates))
	}
	return adapters, nil
}
