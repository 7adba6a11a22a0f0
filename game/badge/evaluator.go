package badge

// Set holds the badge ids a user has already unlocked.
type Set map[string]struct{}

// NewSet builds a Set from unlocked badge ids.
func NewSet(ids []string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether the badge id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Evaluate runs every catalog rule against the event and returns the rules
// that newly unlock. A badge already in ev.Prior is never re-emitted, so
// evaluation is idempotent and the unlock set only grows.
func Evaluate(ev Event) []Rule {
	var unlocked []Rule
	for _, rule := range Catalog {
		if ev.Prior.Has(rule.ID) {
			continue
		}
		if rule.Unlock(ev) {
			unlocked = append(unlocked, rule)
		}
	}
	return unlocked
}
