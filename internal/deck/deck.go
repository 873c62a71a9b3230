// Package deck assembles the ordered queue a study session presents.
package deck

import "github.com/samber/lo"

// Options bounds the size of a deck. Zero values mean unlimited.
type Options struct {
	FreshLimit int
	MaxSize    int
}

// Deck is the ordered queue of item ids for one session.
type Deck struct {
	Items    []string `json:"items"`
	Due      int      `json:"due"`
	Fresh    int      `json:"fresh"`
	Degraded bool     `json:"degraded,omitempty"`
}

// Compose puts due items first, in the order given, then fresh items up to
// FreshLimit. Each id appears at most once and the deck is cut at MaxSize.
func Compose(due, fresh []string, opts Options) Deck {
	due = lo.Uniq(due)
	fresh = lo.Without(lo.Uniq(fresh), due...)

	if opts.FreshLimit > 0 && len(fresh) > opts.FreshLimit {
		fresh = fresh[:opts.FreshLimit]
	}
	if opts.MaxSize > 0 {
		if len(due) > opts.MaxSize {
			due = due[:opts.MaxSize]
		}
		if room := opts.MaxSize - len(due); len(fresh) > room {
			fresh = fresh[:room]
		}
	}

	items := make([]string, 0, len(due)+len(fresh))
	items = append(items, due...)
	items = append(items, fresh...)
	return Deck{Items: items, Due: len(due), Fresh: len(fresh)}
}
