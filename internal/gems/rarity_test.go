package gems

import "testing"

func TestRarityForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  Rarity
	}{
		{1, RarityCommon},
		{3, RarityCommon},
		{4, RarityRare},
		{6, RarityRare},
		{7, RarityEpic},
		{9, RarityEpic},
		{10, RarityLegendary},
	}

	for _, tt := range tests {
		got := RarityForLevel(tt.level)
		if got != tt.want {
			t.Errorf("RarityForLevel(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestAllRarities(t *testing.T) {
	rarities := AllRarities()
	if len(rarities) != 4 {
		t.Errorf("expected 4 rarities, got %d", len(rarities))
	}
	if rarities[0] != RarityCommon || rarities[3] != RarityLegendary {
		t.Errorf("unexpected order: %v", rarities)
	}
}

func TestRarity_DisplayName(t *testing.T) {
	tests := []struct {
		rarity Rarity
		want   string
	}{
		{RarityCommon, "Common"},
		{RarityRare, "Rare"},
		{RarityEpic, "Epic"},
		{RarityLegendary, "Legendary"},
		{"unknown", "unknown"},
	}
	for _, tt := range tests {
		if got := tt.rarity.DisplayName(); got != tt.want {
			t.Errorf("%q.DisplayName() = %q, want %q", tt.rarity, got, tt.want)
		}
	}
}
