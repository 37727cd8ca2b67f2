package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FeedEntry describes one known price feed: its 32-byte identifier in hex,
// a human readable symbol and the attributes published alongside it.
type FeedEntry struct {
	ID         string            `yaml:"id"`
	Symbol     string            `yaml:"symbol"`
	AssetType  string            `yaml:"asset_type"`
	Attributes map[string]string `yaml:"attributes"`
}

// FeedCatalog is the full catalog of feeds this deployment knows about.
type FeedCatalog struct {
	Feeds []FeedEntry `yaml:"feeds"`
}

// LoadFeedCatalog loads the feed catalog from the given path.
func LoadFeedCatalog(path string) (*FeedCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed catalog: %w", err)
	}
	var catalog FeedCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse feed catalog: %w", err)
	}
	for i, feed := range catalog.Feeds {
		if feed.ID == "" {
			return nil, fmt.Errorf("feed catalog entry %d is missing an id", i)
		}
		if feed.Symbol == "" {
			return nil, fmt.Errorf("feed catalog entry %d (%s) is missing a symbol", i, feed.ID)
		}
	}
	return &catalog, nil
}
