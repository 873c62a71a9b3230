// Package stats rolls mastery flags up into lesson and course statistics.
// Everything here is a pure transform over an already fetched snapshot.
package stats

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/conorfennell/lingoreview/internal/domain"
)

// LessonStat summarizes mastery inside one lesson.
type LessonStat struct {
	LessonID  string `json:"lesson_id"`
	Total     int    `json:"total"`
	Mastered  int    `json:"mastered"`
	Completed bool   `json:"completed"`
}

// CourseStat summarizes every lesson sharing one level.
type CourseStat struct {
	Level                    string   `json:"level"`
	LessonIDs                []string `json:"lesson_ids"`
	TotalLessons             int      `json:"total_lessons"`
	CompletedLessons         int      `json:"completed_lessons"`
	TotalWords               int      `json:"total_words"`
	MasteredWords            int      `json:"mastered_words"`
	LargestCompletedSequence *int     `json:"largest_completed_sequence"`
	NextLessonID             string   `json:"next_lesson_id,omitempty"`
	LessonPercent            float64  `json:"lesson_percent"`
	WordPercent              float64  `json:"word_percent"`
}

// NotFoundError reports a lookup with no matching curriculum rows. Callers
// treat it as a zero-valued result rather than a failure.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// BuildLessonStats counts total and mastered items for every lesson. Items
// pointing at a lesson that is not listed are ignored.
func BuildLessonStats(lessons []domain.Lesson, items []domain.VocabularyItem, mastered map[string]bool) map[string]LessonStat {
	byLesson := lo.GroupBy(items, func(it domain.VocabularyItem) string {
		return it.LessonID
	})

	out := make(map[string]LessonStat, len(lessons))
	for _, l := range lessons {
		members := byLesson[l.ID]
		stat := LessonStat{
			LessonID: l.ID,
			Total:    len(members),
			Mastered: lo.CountBy(members, func(it domain.VocabularyItem) bool {
				return mastered[it.ID]
			}),
		}
		stat.Completed = stat.Total > 0 && stat.Mastered == stat.Total
		out[l.ID] = stat
	}
	return out
}

// Lesson returns the stat for one lesson. An unknown lesson yields a zero
// stat together with a NotFoundError.
func Lesson(stats map[string]LessonStat, lessonID string) (LessonStat, error) {
	stat, ok := stats[lessonID]
	if !ok {
		return LessonStat{LessonID: lessonID}, &NotFoundError{Kind: "lesson", ID: lessonID}
	}
	return stat, nil
}

// BuildCourseStats groups lessons by level, one CourseStat per level.
// Courses are ordered by their lowest sequence number, then by level.
func BuildCourseStats(lessons []domain.Lesson, lessonStats map[string]LessonStat) []CourseStat {
	byLevel := lo.GroupBy(lessons, func(l domain.Lesson) string {
		return l.Level
	})

	courses := make([]CourseStat, 0, len(byLevel))
	firstSeq := make(map[string]int, len(byLevel))
	for level, members := range byLevel {
		ordered := sortBySequence(members)
		firstSeq[level] = ordered[0].SequenceNumber
		courses = append(courses, buildCourse(level, ordered, lessonStats))
	}

	sort.Slice(courses, func(i, j int) bool {
		a, b := courses[i].Level, courses[j].Level
		if firstSeq[a] != firstSeq[b] {
			return firstSeq[a] < firstSeq[b]
		}
		return a < b
	})
	return courses
}

func buildCourse(level string, ordered []domain.Lesson, lessonStats map[string]LessonStat) CourseStat {
	c := CourseStat{
		Level:        level,
		LessonIDs:    lo.Map(ordered, func(l domain.Lesson, _ int) string { return l.ID }),
		TotalLessons: len(ordered),
	}
	for _, l := range ordered {
		stat := lessonStats[l.ID]
		c.TotalWords += stat.Total
		c.MasteredWords += stat.Mastered
		if stat.Completed {
			c.CompletedLessons++
		}
	}
	c.LargestCompletedSequence = largestCompleted(ordered, lessonStats)
	c.NextLessonID = nextLesson(ordered, c.LargestCompletedSequence)
	c.LessonPercent = percent(c.CompletedLessons, c.TotalLessons)
	c.WordPercent = percent(c.MasteredWords, c.TotalWords)
	return c
}

// DefaultLessonAfterLargestCompleted recommends one lesson across the whole
// curriculum, ignoring level grouping. It returns "" for an empty list.
func DefaultLessonAfterLargestCompleted(lessons []domain.Lesson, lessonStats map[string]LessonStat) string {
	if len(lessons) == 0 {
		return ""
	}
	ordered := sortBySequence(lessons)
	return nextLesson(ordered, largestCompleted(ordered, lessonStats))
}

// nextLesson picks the first lesson when nothing is completed, otherwise the
// direct successor of the largest completed sequence, or the last lesson when
// the numbering has a gap there.
func nextLesson(ordered []domain.Lesson, largest *int) string {
	if len(ordered) == 0 {
		return ""
	}
	if largest == nil {
		return ordered[0].ID
	}
	if next, ok := lo.Find(ordered, func(l domain.Lesson) bool {
		return l.SequenceNumber == *largest+1
	}); ok {
		return next.ID
	}
	return ordered[len(ordered)-1].ID
}

func largestCompleted(ordered []domain.Lesson, lessonStats map[string]LessonStat) *int {
	var largest *int
	for _, l := range ordered {
		if !lessonStats[l.ID].Completed {
			continue
		}
		if largest == nil || l.SequenceNumber > *largest {
			seq := l.SequenceNumber
			largest = &seq
		}
	}
	return largest
}

func sortBySequence(lessons []domain.Lesson) []domain.Lesson {
	ordered := append([]domain.Lesson(nil), lessons...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SequenceNumber != ordered[j].SequenceNumber {
			return ordered[i].SequenceNumber < ordered[j].SequenceNumber
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
