package gems

// Rarity is the display tier of a gem, derived from its level.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// AllRarities returns all rarities in order from lowest to highest.
func AllRarities() []Rarity {
	return []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}
}

// DisplayName returns a human-readable label for the rarity.
func (r Rarity) DisplayName() string {
	switch r {
	case RarityCommon:
		return "Common"
	case RarityRare:
		return "Rare"
	case RarityEpic:
		return "Epic"
	case RarityLegendary:
		return "Legendary"
	default:
		return string(r)
	}
}

// RarityForLevel maps a gem level to its rarity tier.
func RarityForLevel(level int) Rarity {
	switch {
	case level >= MaxGemLevel:
		return RarityLegendary
	case level >= 7:
		return RarityEpic
	case level >= 4:
		return RarityRare
	default:
		return RarityCommon
	}
}
