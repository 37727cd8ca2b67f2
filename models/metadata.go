package models

// AssetType classifies what kind of asset a feed tracks.
type AssetType string

const (
	AssetTypeCrypto AssetType = "crypto"
	AssetTypeFX     AssetType = "fx"
	AssetTypeEquity AssetType = "equity"
	AssetTypeMetals AssetType = "metals"
	AssetTypeRates  AssetType = "rates"
)

// Valid reports whether a is one of the known asset types.
func (a AssetType) Valid() bool {
	switch a {
	case AssetTypeCrypto, AssetTypeFX, AssetTypeEquity, AssetTypeMetals, AssetTypeRates:
		return true
	default:
		return false
	}
}

func (a AssetType) String() string {
	return string(a)
}

// PriceFeedMetadata pairs a feed identifier with its descriptive
// attributes. encoding/json marshals map keys in sorted order, so the
// emitted attribute ordering is lexicographic and stable regardless of
// how the map was populated.
type PriceFeedMetadata struct {
	ID         Identifier        `json:"id"`
	Attributes map[string]string `json:"attributes"`
}
