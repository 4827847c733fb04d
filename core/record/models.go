package record

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studywall/core"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Record is a learning record: what a student learned while working on a task.
// Records are append-only.
type Record struct {
	ID                string     `json:"id"`
	TaskID            string     `json:"task_id"`
	TopicID           string     `json:"topic_id,omitempty"`
	AuthorID          string     `json:"author_id"`
	Title             string     `json:"title"`
	Message           string     `json:"message"`
	Difficulty        Difficulty `json:"difficulty"`
	CompletionMinutes *int       `json:"completion_minutes,omitempty"`
	Tags              []string   `json:"tags"`
	Week              string     `json:"week"` // week token of CreatedAt
	CreatedAt         time.Time  `json:"created_at"`
}

type (
	NewRecord struct {
		Title             string     `json:"title" validate:"required,notblank,max=200"`
		Message           string     `json:"message" validate:"required,notblank"`
		Difficulty        Difficulty `json:"difficulty" validate:"omitempty,difficulty"`
		CompletionMinutes *int       `json:"completion_minutes" validate:"omitempty,min=0"`
		Tags              []string   `json:"tags" validate:"max=20,dive,notblank,max=50"`
	}

	// QueryFilter applies AND on its set fields.
	QueryFilter struct {
		TaskID   string `json:"task_id" query:"task_id"`
		TopicID  string `json:"topic_id" query:"topic_id"`
		AuthorID string `json:"author_id" query:"author_id"`
		Week     string `json:"week" query:"week" validate:"omitempty,week_token"`
	}
)

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Message = core.CleanString(nr.Message)
	if nr.Difficulty == "" {
		nr.Difficulty = DifficultyMedium
	}
	tags := make([]string, 0, len(nr.Tags))
	for _, tag := range nr.Tags {
		tags = append(tags, core.CleanString(tag, true /* lower */))
	}
	nr.Tags = tags
	return validate.Struct(nr)
}

func (f *QueryFilter) Validate(validate *validator.Validate) error {
	f.Week = core.CleanString(f.Week)
	return validate.Struct(f)
}
