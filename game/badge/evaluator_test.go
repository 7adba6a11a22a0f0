package badge

import (
	"testing"

	"github.com/questforge/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleIDs(rules []Rule) []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

func TestEvaluate_FirstQuest(t *testing.T) {
	ev := Event{
		Prior:      NewSet(nil),
		Stats:      &model.UserStats{QuestsCompleted: 1, CurrentLevel: 1, CurrentStreak: 1},
		PriorLevel: 1,
	}
	unlocked := Evaluate(ev)
	assert.Equal(t, []string{"first-quest"}, ruleIDs(unlocked))
}

func TestEvaluate_FirstQuestNotReEmitted(t *testing.T) {
	ev := Event{
		Prior:      NewSet([]string{"first-quest"}),
		Stats:      &model.UserStats{QuestsCompleted: 2, CurrentLevel: 1, CurrentStreak: 2},
		PriorLevel: 1,
	}
	assert.Empty(t, Evaluate(ev))
}

func TestEvaluate_WeekWarrior(t *testing.T) {
	ev := Event{
		Prior:      NewSet([]string{"first-quest"}),
		Stats:      &model.UserStats{QuestsCompleted: 7, CurrentLevel: 2, CurrentStreak: 7},
		PriorLevel: 2,
	}
	assert.Equal(t, []string{"week-warrior"}, ruleIDs(unlockedRules(t, ev)))
}

func TestEvaluate_WeekWarriorOnlyAtExactlySeven(t *testing.T) {
	for _, streak := range []int{6, 8, 14} {
		ev := Event{
			Prior:      NewSet([]string{"first-quest"}),
			Stats:      &model.UserStats{CurrentStreak: streak, CurrentLevel: 2},
			PriorLevel: 2,
		}
		assert.Empty(t, Evaluate(ev), "streak=%d", streak)
	}
}

func TestEvaluate_RisingStarRequiresCrossing(t *testing.T) {
	prior := NewSet([]string{"first-quest", "week-warrior"})

	// Already level 10 before this completion: no unlock.
	ev := Event{
		Prior:      prior,
		Stats:      &model.UserStats{CurrentLevel: 11, CurrentStreak: 1},
		PriorLevel: 10,
	}
	assert.Empty(t, Evaluate(ev))

	// Crossing from 9 to 10 unlocks.
	ev.PriorLevel = 9
	ev.Stats.CurrentLevel = 10
	assert.Equal(t, []string{"rising-star"}, ruleIDs(unlockedRules(t, ev)))
}

func TestEvaluate_Idempotent(t *testing.T) {
	ev := Event{
		Prior:      NewSet(nil),
		Stats:      &model.UserStats{QuestsCompleted: 1, CurrentLevel: 1, CurrentStreak: 1},
		PriorLevel: 1,
	}
	first := Evaluate(ev)
	require.NotEmpty(t, first)

	// Fold the unlocks into the prior set and evaluate again with the same
	// aggregate: nothing may be re-emitted.
	for _, r := range first {
		ev.Prior[r.ID] = struct{}{}
	}
	assert.Empty(t, Evaluate(ev))
}

func TestCatalogModels_MatchesCatalog(t *testing.T) {
	rows := CatalogModels()
	require.Len(t, rows, len(Catalog))
	for i, r := range Catalog {
		assert.Equal(t, r.ID, rows[i].ID)
		assert.Equal(t, r.Rarity, rows[i].Rarity)
	}
}

func unlockedRules(t *testing.T, ev Event) []Rule {
	t.Helper()
	rules := Evaluate(ev)
	require.NotEmpty(t, rules)
	return rules
}
