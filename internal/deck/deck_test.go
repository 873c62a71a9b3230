package deck

import (
	"reflect"
	"testing"
)

func TestCompose(t *testing.T) {
	testCases := []struct {
		name      string
		due       []string
		fresh     []string
		opts      Options
		wantItems []string
		wantDue   int
		wantFresh int
	}{
		{
			name:      "due before fresh",
			due:       []string{"d1", "d2"},
			fresh:     []string{"f1", "f2"},
			wantItems: []string{"d1", "d2", "f1", "f2"},
			wantDue:   2,
			wantFresh: 2,
		},
		{
			name:      "fresh limit",
			due:       []string{"d1"},
			fresh:     []string{"f1", "f2", "f3"},
			opts:      Options{FreshLimit: 2},
			wantItems: []string{"d1", "f1", "f2"},
			wantDue:   1,
			wantFresh: 2,
		},
		{
			name:      "max size keeps due first",
			due:       []string{"d1", "d2", "d3"},
			fresh:     []string{"f1"},
			opts:      Options{MaxSize: 2},
			wantItems: []string{"d1", "d2"},
			wantDue:   2,
			wantFresh: 0,
		},
		{
			name:      "max size leaves room for fresh",
			due:       []string{"d1"},
			fresh:     []string{"f1", "f2", "f3"},
			opts:      Options{FreshLimit: 5, MaxSize: 3},
			wantItems: []string{"d1", "f1", "f2"},
			wantDue:   1,
			wantFresh: 2,
		},
		{
			name:      "duplicates removed",
			due:       []string{"d1", "d1"},
			fresh:     []string{"d1", "f1", "f1"},
			wantItems: []string{"d1", "f1"},
			wantDue:   1,
			wantFresh: 1,
		},
		{
			name:      "empty",
			wantItems: []string{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := Compose(tc.due, tc.fresh, tc.opts)
			if !reflect.DeepEqual(d.Items, tc.wantItems) {
				t.Errorf("items = %v, want %v", d.Items, tc.wantItems)
			}
			if d.Due != tc.wantDue || d.Fresh != tc.wantFresh {
				t.Errorf("due, fresh = %d, %d; want %d, %d", d.Due, d.Fresh, tc.wantDue, tc.wantFresh)
			}
		})
	}
}
