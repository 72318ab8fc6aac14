package models

import "time"

// DefaultCatalog returns the built-in milestone definitions. Order matters
// only for presentation; evaluation treats the catalog as a set.
func DefaultCatalog() []Definition {
	week := 7 * 24 * time.Hour

	return []Definition{
		{
			ID:             "united-faiths",
			Name:           "United Faiths",
			Description:    "Bring a second religion into the civilization.",
			Major:          true,
			Trigger:        Trigger{Kind: TriggerReligionCount, Threshold: 2},
			RankReward:     1,
			PrestigePayout: 500,
		},
		{
			ID:             "grand-concord",
			Name:           "Grand Concord",
			Description:    "Grow to the full four member religions.",
			Major:          true,
			Trigger:        Trigger{Kind: TriggerReligionCount, Threshold: 4},
			RankReward:     1,
			PrestigePayout: 2000,
			Benefit:        &Benefit{Kind: BenefitPrestigeMultiplier, Multiplier: 1.1},
		},
		{
			ID:             "pantheon-of-many",
			Name:           "Pantheon of Many",
			Description:    "Unite three distinct deity domains under one banner.",
			Major:          true,
			Trigger:        Trigger{Kind: TriggerDistinctDomainCount, Threshold: 3},
			RankReward:     1,
			PrestigePayout: 1000,
			Benefit:        &Benefit{Kind: BenefitFavorMultiplier, Multiplier: 1.05},
		},
		{
			ID:             "gathered-flock",
			Name:           "Gathered Flock",
			Description:    "Reach fifty believers across all member religions.",
			Trigger:        Trigger{Kind: TriggerTotalMemberCount, Threshold: 50},
			PrestigePayout: 250,
		},
		{
			ID:             "host-of-thousands",
			Name:           "Host of Thousands",
			Description:    "Reach two hundred believers across all member religions.",
			Major:          true,
			Trigger:        Trigger{Kind: TriggerTotalMemberCount, Threshold: 200},
			RankReward:     1,
			PrestigePayout: 3000,
			Benefit:        &Benefit{Kind: BenefitHolySiteCapacity, Capacity: 1},
		},
		{
			ID:             "first-rites",
			Name:           "First Rites",
			Description:    "Complete ten rituals.",
			Trigger:        Trigger{Kind: TriggerRitualCount, Threshold: 10},
			PrestigePayout: 100,
		},
		{
			ID:             "endless-devotion",
			Name:           "Endless Devotion",
			Description:    "Complete one hundred rituals.",
			Major:          true,
			Trigger:        Trigger{Kind: TriggerRitualCount, Threshold: 100},
			RankReward:     1,
			PrestigePayout: 1500,
			Benefit:        &Benefit{Kind: BenefitPrestigeMultiplier, Multiplier: 1.2, Duration: &week},
		},
		{
			ID:             "sacred-ground",
			Name:           "Sacred Ground",
			Description:    "Hold three holy sites at once.",
			Trigger:        Trigger{Kind: TriggerHolySiteCount, Threshold: 3},
			PrestigePayout: 300,
		},
		{
			ID:             "towering-faith",
			Name:           "Towering Faith",
			Description:    "Raise any holy site to the third tier.",
			Major:          true,
			Trigger:        Trigger{Kind: TriggerHolySiteTier, Tier: 3},
			RankReward:     1,
			PrestigePayout: 1000,
			Benefit:        &Benefit{Kind: BenefitSharedBlessing, BlessingID: "blessing-sanctified-walls"},
		},
		{
			ID:             "blood-tithe",
			Name:           "Blood Tithe",
			Description:    "Claim twenty-five kills in wartime.",
			Trigger:        Trigger{Kind: TriggerWarKillCount, Threshold: 25},
			PrestigePayout: 250,
			Benefit:        &Benefit{Kind: BenefitConquestMultiplier, Multiplier: 1.1, Duration: &week},
		},
		{
			ID:             "sworn-allies",
			Name:           "Sworn Allies",
			Description:    "Enter an alliance with another civilization.",
			Trigger:        Trigger{Kind: TriggerRelationshipFormed, RelationshipKind: "alliance"},
			PrestigePayout: 500,
		},
		{
			ID:             "apotheosis",
			Name:           "Apotheosis",
			Description:    "Complete every other major milestone.",
			Major:          true,
			Trigger:        Trigger{Kind: TriggerAllMajorMilestones},
			RankReward:     2,
			PrestigePayout: 10000,
			Benefit:        &Benefit{Kind: BenefitPrestigeMultiplier, Multiplier: 1.25},
		},
	}
}
