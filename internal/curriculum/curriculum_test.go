package curriculum

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/conorfennell/lingoreview/internal/domain"
)

const sample = `
lessons:
  - {id: greetings, course: spanish, level: a1, sequence_number: 1}
  - {id: food, course: spanish, level: a1, sequence_number: 2}
  - {id: travel, course: spanish, level: a2, sequence_number: 1}
items:
  - {id: comer, lesson_id: food, type: word}
  - {id: hola, lesson_id: greetings, type: word}
  - {id: buenos-dias, lesson_id: greetings, type: phrase}
  - {id: tren, lesson_id: travel, type: word}
  - {id: pan, lesson_id: food, type: word}
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	if len(c.Lessons) != 3 || len(c.Items) != 5 {
		t.Fatalf("Expected 3 lessons and 5 items, but got %d and %d", len(c.Lessons), len(c.Items))
	}
	l, ok := c.Lesson("food")
	if !ok || l.SequenceNumber != 2 || l.Level != "a1" {
		t.Errorf("Expected lesson food at a1/2, but got %+v", l)
	}
	it, ok := c.Item("buenos-dias")
	if !ok || it.Type != domain.ItemPhrase {
		t.Errorf("Expected phrase buenos-dias, but got %+v", it)
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"unknown lesson", "lessons: [{id: l1, level: a1, sequence_number: 1}]\nitems: [{id: w1, lesson_id: l2, type: word}]"},
		{"duplicate lesson", "lessons: [{id: l1, level: a1, sequence_number: 1}, {id: l1, level: a1, sequence_number: 2}]"},
		{"duplicate sequence", "lessons: [{id: l1, level: a1, sequence_number: 1}, {id: l2, level: a1, sequence_number: 1}]"},
		{"duplicate item", "lessons: [{id: l1, level: a1, sequence_number: 1}]\nitems: [{id: w1, lesson_id: l1, type: word}, {id: w1, lesson_id: l1, type: word}]"},
		{"bad type", "lessons: [{id: l1, level: a1, sequence_number: 1}]\nitems: [{id: w1, lesson_id: l1, type: sentence}]"},
		{"empty id", "lessons: [{id: '', level: a1, sequence_number: 1}]"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			if !errors.Is(err, ErrInvalidCurriculum) {
				t.Errorf("Expected ErrInvalidCurriculum, but got %v", err)
			}
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		if _, err := Parse(strings.NewReader("lesons: []")); err == nil {
			t.Error("Expected a decode error for an unknown field")
		}
	})

	t.Run("empty document", func(t *testing.T) {
		c, err := Parse(strings.NewReader(""))
		if err != nil {
			t.Fatalf("Parse() returned an unexpected error: %v", err)
		}
		if len(c.Candidates(Filter{})) != 0 {
			t.Error("Expected no candidates in an empty curriculum")
		}
	})
}

func TestCandidates(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}

	testCases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all in curriculum order", Filter{}, []string{"hola", "buenos-dias", "comer", "pan", "tren"}},
		{"one lesson", Filter{LessonID: "food"}, []string{"comer", "pan"}},
		{"words only", Filter{Type: domain.ItemWord}, []string{"hola", "comer", "pan", "tren"}},
		{"phrases in lesson", Filter{LessonID: "greetings", Type: domain.ItemPhrase}, []string{"buenos-dias"}},
		{"unknown lesson", Filter{LessonID: "nope"}, []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Candidates(tc.filter); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Expected %v, but got %v", tc.want, got)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(c.Items) != 5 {
		t.Errorf("Expected 5 items, but got %d", len(c.Items))
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
