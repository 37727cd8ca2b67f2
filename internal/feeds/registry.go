package feeds

import (
	"fmt"
	"sort"

	"feedflow/config"
	"feedflow/models"
)

// Feed is one resolved catalog entry keyed by its parsed identifier.
type Feed struct {
	ID         models.Identifier
	Symbol     string
	AssetType  models.AssetType
	Attributes map[string]string
}

// Registry resolves feed identifiers to their catalog entries. It is
// built once from the catalog file and read-only afterwards.
type Registry struct {
	feeds map[models.Identifier]Feed
}

// NewRegistry parses and validates every catalog entry. Identifiers must
// be valid 32-byte hex strings and asset types must come from the known
// set; duplicates are rejected.
func NewRegistry(catalog *config.FeedCatalog) (*Registry, error) {
	r := &Registry{feeds: make(map[models.Identifier]Feed, len(catalog.Feeds))}
	for _, entry := range catalog.Feeds {
		id, err := models.ParseIdentifier(entry.ID)
		if err != nil {
			return nil, fmt.Errorf("feed %s has an invalid identifier: %w", entry.Symbol, err)
		}
		if _, ok := r.feeds[id]; ok {
			return nil, fmt.Errorf("feed %s duplicates identifier %s", entry.Symbol, id.Hex())
		}
		assetType := models.AssetType(entry.AssetType)
		if entry.AssetType != "" && !assetType.Valid() {
			return nil, fmt.Errorf("feed %s has unknown asset type %q", entry.Symbol, entry.AssetType)
		}

		attrs := make(map[string]string, len(entry.Attributes)+2)
		for k, v := range entry.Attributes {
			attrs[k] = v
		}
		attrs["symbol"] = entry.Symbol
		if entry.AssetType != "" {
			attrs["asset_type"] = entry.AssetType
		}

		r.feeds[id] = Feed{
			ID:         id,
			Symbol:     entry.Symbol,
			AssetType:  assetType,
			Attributes: attrs,
		}
	}
	return r, nil
}

// Lookup returns the feed registered under id.
func (r *Registry) Lookup(id models.Identifier) (Feed, bool) {
	f, ok := r.feeds[id]
	return f, ok
}

// Len reports the number of registered feeds.
func (r *Registry) Len() int {
	return len(r.feeds)
}

// Metadata returns the wire metadata for id, or false when unknown.
func (r *Registry) Metadata(id models.Identifier) (models.PriceFeedMetadata, bool) {
	f, ok := r.feeds[id]
	if !ok {
		return models.PriceFeedMetadata{}, false
	}
	return models.PriceFeedMetadata{ID: f.ID, Attributes: f.Attributes}, true
}

// All returns every registered feed ordered by identifier.
func (r *Registry) All() []Feed {
	out := make([]Feed, 0, len(r.feeds))
	for _, f := range r.feeds {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Less(out[j].ID)
	})
	return out
}
