package schedule

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseRating(t *testing.T) {
	testCases := []struct {
		in      string
		want    Rating
		wantErr bool
	}{
		{"weak", Weak, false},
		{"improving", Improving, false},
		{"strong", Strong, false},
		{"master_now", MasterNow, false},
		{"Strong", 0, true},
		{"", 0, true},
		{"again", 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRating(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRating) {
					t.Errorf("error = %v, want ErrInvalidRating", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("ParseRating(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
			}
		})
	}
}

func TestRatingJSON(t *testing.T) {
	type event struct {
		Rating Rating `json:"rating"`
	}
	var e event
	if err := json.Unmarshal([]byte(`{"rating":"master_now"}`), &e); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if e.Rating != MasterNow {
		t.Errorf("rating = %v, want master_now", e.Rating)
	}
	if err := json.Unmarshal([]byte(`{"rating":3}`), &e); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("numeric rating error = %v, want ErrInvalidRating", err)
	}
	out, err := json.Marshal(event{Rating: Improving})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"rating":"improving"}` {
		t.Errorf("Marshal = %s", out)
	}
	if _, err := json.Marshal(event{}); err == nil {
		t.Error("Marshal of zero rating should fail")
	}
	if s := Rating(9).String(); s != "Rating(9)" {
		t.Errorf("String() = %q", s)
	}
}
