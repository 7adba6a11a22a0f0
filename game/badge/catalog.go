package badge

import "github.com/questforge/server/model"

// Event carries the state a badge predicate may inspect: the badge ids the
// user already holds, the aggregate after scoring and streak were applied,
// the level before this completion, and the quest that triggered the
// evaluation.
type Event struct {
	Prior      Set
	Stats      *model.UserStats
	PriorLevel int
	Quest      *model.Quest
}

// Rule binds a badge id to its unlock predicate. Rules are plain data so
// adding a badge means appending an entry, not new control flow.
type Rule struct {
	ID          string
	Name        string
	Description string
	Rarity      model.BadgeRarity
	Unlock      func(ev Event) bool
}

// Catalog lists every badge the platform can award.
var Catalog = []Rule{
	{
		ID:          "first-quest",
		Name:        "First Quest",
		Description: "Complete your first quest",
		Rarity:      model.RarityCommon,
		Unlock: func(ev Event) bool {
			return len(ev.Prior) == 0
		},
	},
	{
		ID:          "week-warrior",
		Name:        "Week Warrior",
		Description: "Keep a 7-day completion streak",
		Rarity:      model.RarityRare,
		Unlock: func(ev Event) bool {
			return ev.Stats.CurrentStreak == 7
		},
	},
	{
		ID:          "rising-star",
		Name:        "Rising Star",
		Description: "Reach level 10",
		Rarity:      model.RarityEpic,
		Unlock: func(ev Event) bool {
			return ev.Stats.CurrentLevel >= 10 && ev.PriorLevel < 10
		},
	},
}

// CatalogModels returns the catalog as model rows for seeding the badges
// table at startup.
func CatalogModels() []model.Badge {
	out := make([]model.Badge, len(Catalog))
	for i, r := range Catalog {
		out[i] = model.Badge{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Rarity:      r.Rarity,
		}
	}
	return out
}
