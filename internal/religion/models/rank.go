package models

// Rank is the derived standing of a religion. It is a pure function of
// lifetime prestige and never decreases, even when spendable prestige is
// consumed.
type Rank int

const (
	RankFledgling Rank = iota
	RankEstablished
	RankRenowned
	RankLegendary
	RankMythic
)

// RankFor maps lifetime prestige onto a rank. Thresholds are compared
// against the lifetime total, not the spendable balance.
func RankFor(lifetimePrestige int64) Rank {
	switch {
	case lifetimePrestige < 2_500:
		return RankFledgling
	case lifetimePrestige < 10_000:
		return RankEstablished
	case lifetimePrestige < 25_000:
		return RankRenowned
	case lifetimePrestige < 50_000:
		return RankLegendary
	default:
		return RankMythic
	}
}

func (r Rank) String() string {
	switch r {
	case RankFledgling:
		return "Fledgling"
	case RankEstablished:
		return "Established"
	case RankRenowned:
		return "Renowned"
	case RankLegendary:
		return "Legendary"
	case RankMythic:
		return "Mythic"
	default:
		return "Unknown"
	}
}
