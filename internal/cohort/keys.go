package cohort

import "ad-metrics-pipeline/internal/domain"

// searchLevels is the fixed fallback order: most to least specific.
var searchLevels = []int{
	domain.CohortLevelVeryHigh,
	domain.CohortLevelHigh,
	domain.CohortLevelMedium,
	domain.CohortLevelLow,
}

// KeyAtLevel derives the cohort key for an attribution at one
// specificity level. Dropped properties stay zero-valued so coarser
// keys bucket strictly broader populations.
func KeyAtLevel(a *domain.Attribution, level int) domain.CohortKey {
	k := domain.CohortKey{
		Level:       level,
		ProductID:   a.ProductID,
		PriceBucket: a.PriceBucket,
		Store:       a.Store,
	}
	if level >= domain.CohortLevelMedium {
		k.EconomicTier = a.EconomicTier
	}
	if level >= domain.CohortLevelHigh {
		k.Country = a.Country
	}
	if level >= domain.CohortLevelVeryHigh {
		k.Region = a.Region
	}
	return k
}
