package db

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seeds/sources.yaml
var seedSourcesYAML []byte

type seedSource struct {
	Name            string            `yaml:"name"`
	Type            string            `yaml:"type"`
	URL             string            `yaml:"url"`
	Category        string            `yaml:"category"`
	CredibilityTier int               `yaml:"credibility_tier"`
	Config          map[string]string `yaml:"config"`
}

type seedFile struct {
	Sources []seedSource `yaml:"sources"`
}

// seedSources inserts the bundled starter registry from seeds/sources.yaml.
// Rows conflict on name, so re-running a migration never duplicates or
// overwrites an operator-edited source.
func seedSources(db *sql.DB) error {
	var f seedFile
	if err := yaml.Unmarshal(seedSourcesYAML, &f); err != nil {
		return fmt.Errorf("parse source seed: %w", err)
	}

	const query = `
INSERT INTO sources (name, type, url, category, credibility_tier, enabled, config)
VALUES ($1, $2, $3, $4, $5, TRUE, $6)
ON CONFLICT (name) DO NOTHING`

	for _, s := range f.Sources {
		var configRaw []byte
		if len(s.Config) > 0 {
			raw, err := json.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("seed source %q: marshal config: %w", s.Name, err)
			}
			configRaw = raw
		}
		if _, err := db.Exec(query, s.Name, s.Type, s.URL, s.Category, s.CredibilityTier, configRaw); err != nil {
			return fmt.Errorf("seed source %q: %w", s.Name, err)
		}
	}
	return nil
}
