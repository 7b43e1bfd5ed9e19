package cohort

import (
	"testing"

	"ad-metrics-pipeline/internal/domain"
)

func TestKeyAtLevel_DropsPropertiesProgressively(t *testing.T) {
	a := &domain.Attribution{
		UserID:       "u1",
		ProductID:    "premium_monthly",
		PriceBucket:  "p25",
		Store:        "app_store",
		EconomicTier: "tier1",
		Country:      "US",
		Region:       "CA",
	}

	tests := []struct {
		level int
		want  domain.CohortKey
	}{
		{
			level: domain.CohortLevelVeryHigh,
			want: domain.CohortKey{
				Level: 4, ProductID: "premium_monthly", PriceBucket: "p25",
				Store: "app_store", EconomicTier: "tier1", Country: "US", Region: "CA",
			},
		},
		{
			level: domain.CohortLevelHigh,
			want: domain.CohortKey{
				Level: 3, ProductID: "premium_monthly", PriceBucket: "p25",
				Store: "app_store", EconomicTier: "tier1", Country: "US",
			},
		},
		{
			level: domain.CohortLevelMedium,
			want: domain.CohortKey{
				Level: 2, ProductID: "premium_monthly", PriceBucket: "p25",
				Store: "app_store", EconomicTier: "tier1",
			},
		},
		{
			level: domain.CohortLevelLow,
			want: domain.CohortKey{
				Level: 1, ProductID: "premium_monthly", PriceBucket: "p25",
				Store: "app_store",
			},
		},
	}

	for _, tt := range tests {
		got := KeyAtLevel(a, tt.level)
		if got != tt.want {
			t.Errorf("level %d: got %+v, want %+v", tt.level, got, tt.want)
		}
	}
}

func TestKeyAtLevel_LevelDisambiguatesEqualSubsets(t *testing.T) {
	// A user with no tier/country/region produces identical property
	// subsets at every level; Level must still keep the buckets apart.
	a := &domain.Attribution{
		ProductID:   "premium_monthly",
		PriceBucket: "p25",
		Store:       "app_store",
	}

	k4 := KeyAtLevel(a, domain.CohortLevelVeryHigh)
	k1 := KeyAtLevel(a, domain.CohortLevelLow)
	if k4 == k1 {
		t.Fatalf("expected distinct keys across levels, both %+v", k4)
	}
}
