package streak

import "time"

// Result is the streak state after one day of activity is recorded.
type Result struct {
	Streak    int
	Longest   int
	Increased bool
}

// Advance computes the next daily streak given the last activity date and
// the current time. Only calendar days matter; time of day is ignored.
//
//	no prior activity      → streak starts at 1
//	same day               → unchanged
//	next day               → streak + 1
//	gap of 2+ days         → streak resets to 1
//	lastActivity in future → unchanged (clock skew; never decrement)
func Advance(lastActivity *time.Time, now time.Time, current, longest int) Result {
	var streak int
	switch {
	case lastActivity == nil:
		streak = 1
	default:
		switch diff := dayDiff(*lastActivity, now); {
		case diff == 1:
			streak = current + 1
		case diff > 1:
			streak = 1
		default: // same day or clock skew
			streak = current
		}
	}
	if streak > longest {
		longest = streak
	}
	return Result{
		Streak:    streak,
		Longest:   longest,
		Increased: streak > current,
	}
}

// dayDiff returns the whole calendar days from a to b, both taken as UTC
// dates. Negative when a is after b.
func dayDiff(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}
