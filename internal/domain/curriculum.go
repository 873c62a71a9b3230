package domain

// ItemType classifies a vocabulary item.
type ItemType string

const (
	ItemWord   ItemType = "word"
	ItemPhrase ItemType = "phrase"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemWord || t == ItemPhrase
}

// Lesson is one unit of a course. SequenceNumber orders lessons within a level.
type Lesson struct {
	ID             string `json:"id" yaml:"id"`
	Course         string `json:"course" yaml:"course"`
	Level          string `json:"level" yaml:"level"`
	SequenceNumber int    `json:"sequence_number" yaml:"sequence_number"`
}

// VocabularyItem is a single word or phrase belonging to exactly one lesson.
type VocabularyItem struct {
	ID       string   `json:"id" yaml:"id"`
	LessonID string   `json:"lesson_id" yaml:"lesson_id"`
	Type     ItemType `json:"type" yaml:"type"`
}
