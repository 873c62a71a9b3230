package curriculum

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/samber/lo"
	"go.yaml.in/yaml/v3"

	"github.com/conorfennell/lingoreview/internal/domain"
)

// ErrInvalidCurriculum wraps every structural problem found while loading.
var ErrInvalidCurriculum = errors.New("invalid curriculum")

// Curriculum is a read-only index over lessons and vocabulary items.
type Curriculum struct {
	Lessons []domain.Lesson         `yaml:"lessons"`
	Items   []domain.VocabularyItem `yaml:"items"`

	lessons map[string]domain.Lesson
	items   map[string]domain.VocabularyItem
}

// ParseFile reads a curriculum document from the given path.
func ParseFile(path string) (*Curriculum, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse decodes a YAML curriculum document and validates it.
func Parse(r io.Reader) (*Curriculum, error) {
	var c Curriculum
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode curriculum: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds a curriculum from already loaded records.
func New(lessons []domain.Lesson, items []domain.VocabularyItem) (*Curriculum, error) {
	c := &Curriculum{Lessons: lessons, Items: items}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Curriculum) index() error {
	c.lessons = make(map[string]domain.Lesson, len(c.Lessons))
	sequences := make(map[string]string)
	for _, l := range c.Lessons {
		if l.ID == "" {
			return fmt.Errorf("%w: lesson with empty id", ErrInvalidCurriculum)
		}
		if _, dup := c.lessons[l.ID]; dup {
			return fmt.Errorf("%w: duplicate lesson %s", ErrInvalidCurriculum, l.ID)
		}
		key := fmt.Sprintf("%s/%d", l.Level, l.SequenceNumber)
		if other, dup := sequences[key]; dup {
			return fmt.Errorf("%w: lessons %s and %s share sequence %d in level %q", ErrInvalidCurriculum, other, l.ID, l.SequenceNumber, l.Level)
		}
		sequences[key] = l.ID
		c.lessons[l.ID] = l
	}

	c.items = make(map[string]domain.VocabularyItem, len(c.Items))
	for _, it := range c.Items {
		if it.ID == "" {
			return fmt.Errorf("%w: item with empty id", ErrInvalidCurriculum)
		}
		if _, dup := c.items[it.ID]; dup {
			return fmt.Errorf("%w: duplicate item %s", ErrInvalidCurriculum, it.ID)
		}
		if _, ok := c.lessons[it.LessonID]; !ok {
			return fmt.Errorf("%w: item %s references unknown lesson %q", ErrInvalidCurriculum, it.ID, it.LessonID)
		}
		if !it.Type.Valid() {
			return fmt.Errorf("%w: item %s has type %q", ErrInvalidCurriculum, it.ID, it.Type)
		}
		c.items[it.ID] = it
	}
	return nil
}

// Lesson looks up a lesson by id.
func (c *Curriculum) Lesson(id string) (domain.Lesson, bool) {
	l, ok := c.lessons[id]
	return l, ok
}

// Item looks up a vocabulary item by id.
func (c *Curriculum) Item(id string) (domain.VocabularyItem, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Filter narrows the candidate items of a study session.
type Filter struct {
	LessonID string
	Type     domain.ItemType
}

// Candidates returns item ids matching f in curriculum order: by level, then
// lesson sequence, then document order within a lesson.
func (c *Curriculum) Candidates(f Filter) []string {
	matching := lo.Filter(c.Items, func(it domain.VocabularyItem, _ int) bool {
		if f.LessonID != "" && it.LessonID != f.LessonID {
			return false
		}
		return f.Type == "" || it.Type == f.Type
	})
	sort.SliceStable(matching, func(i, j int) bool {
		a, b := c.lessons[matching[i].LessonID], c.lessons[matching[j].LessonID]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.SequenceNumber < b.SequenceNumber
	})
	return lo.Map(matching, func(it domain.VocabularyItem, _ int) string {
		return it.ID
	})
}
