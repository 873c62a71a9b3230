package schedule

import (
	"fmt"
	"time"

	"github.com/conorfennell/lingoreview/internal/domain"
)

const (
	day = 24 * time.Hour

	// WeakDelay re-queues a missed item inside the same session.
	WeakDelay = time.Minute
	// ImprovingDelay brings a partly recalled item back the next day.
	ImprovingDelay = day
	// MasteryHorizon pushes a mastered item out of every ordinary due queue.
	MasteryHorizon = 100 * 365 * day
)

// ladder maps a streak length to its review interval. Streaks past the end
// of the ladder reuse the last rung.
var ladder = [...]time.Duration{
	3 * day,
	7 * day,
	14 * day,
	30 * day,
	60 * day,
	120 * day,
}

// Interval returns the review interval for a streak of the given length.
// Streaks below one are treated as one.
func Interval(streak int) time.Duration {
	switch {
	case streak < 1:
		return ladder[0]
	case streak > len(ladder):
		return ladder[len(ladder)-1]
	default:
		return ladder[streak-1]
	}
}

// Apply computes the state that results from rating an item at now.
// current is nil on the item's first rating and is never mutated.
// Apply performs no I/O; it only fails for a rating outside the known set.
func Apply(current *domain.ReviewState, rating Rating, now time.Time) (domain.ReviewState, error) {
	if !rating.IsValid() {
		return domain.ReviewState{}, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}

	var prev domain.ReviewState
	if current != nil {
		prev = *current
	}

	reviewedAt := now
	next := domain.ReviewState{
		StreakCount:    prev.StreakCount,
		ReviewCount:    prev.ReviewCount + 1,
		Mastered:       prev.Mastered,
		LastReviewedAt: &reviewedAt,
	}

	switch rating {
	case Strong:
		next.StreakCount = prev.StreakCount + 1
		next.DueAt = now.Add(Interval(next.StreakCount))
	case Improving:
		next.StreakCount = 0
		next.DueAt = now.Add(ImprovingDelay)
	case Weak:
		next.StreakCount = 0
		next.DueAt = now.Add(WeakDelay)
	case MasterNow:
		// Mastery is an override; the streak is left untouched.
		next.Mastered = true
		next.DueAt = now.Add(MasteryHorizon)
	}

	return next, nil
}
