package topic

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/studywall/core"
)

// Entity kinds, as reported in errors.
const (
	KindTopic = "topic"
	KindGoal  = "goal"
	KindTask  = "task"
)

type (
	// Status of topics and goals.
	Status string

	TaskStatus string

	Priority string
)

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"

	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"

	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (s Status) Valid() bool { return s == StatusActive || s == StatusArchived }

func (s TaskStatus) Valid() bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskDone
}

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Rank orders priorities: high sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

type (
	Topic struct {
		ID              string    `json:"id"`
		Title           string    `json:"title"`
		Subject         string    `json:"subject"`
		IsCollaborative bool      `json:"is_collaborative"`
		Status          Status    `json:"status"`
		OwnerID         string    `json:"owner_id"`
		Version         int       `json:"version"`
		CreatedAt       time.Time `json:"created_at"`
		UpdatedAt       time.Time `json:"updated_at"`
	}

	Goal struct {
		ID           string    `json:"id"`
		TopicID      string    `json:"topic_id"`
		Title        string    `json:"title"`
		Description  string    `json:"description"`
		Status       Status    `json:"status"`
		Priority     Priority  `json:"priority"`
		OrderIndex   int       `json:"order_index"`
		NeedHelp     bool      `json:"need_help"`
		HelpMessage  string    `json:"help_message,omitempty"`
		ReplyMessage string    `json:"reply_message,omitempty"`
		CreatorID    string    `json:"creator_id"`
		Version      int       `json:"version"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	// Task fields CompletedBy and CompletedAt are set if and only if Status is TaskDone.
	Task struct {
		ID               string     `json:"id"`
		GoalID           string     `json:"goal_id"`
		Title            string     `json:"title"`
		Description      string     `json:"description"`
		Status           TaskStatus `json:"status"`
		Priority         Priority   `json:"priority"`
		OrderIndex       int        `json:"order_index"`
		Archived         bool       `json:"archived"`
		NeedHelp         bool       `json:"need_help"`
		HelpMessage      string     `json:"help_message,omitempty"`
		ReplyMessage     string     `json:"reply_message,omitempty"`
		RepliedBy        string     `json:"replied_by,omitempty"`
		CompletedBy      string     `json:"completed_by,omitempty"`
		CompletedAt      *time.Time `json:"completed_at,omitempty"`
		EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
		ActualMinutes    *int       `json:"actual_minutes,omitempty"`
		CreatorID        string     `json:"creator_id"`
		Version          int        `json:"version"`
		CreatedAt        time.Time  `json:"created_at"`
		UpdatedAt        time.Time  `json:"updated_at"`
	}

	// ActiveTask is a flattened, non-archived todo/in_progress task with its ancestry.
	ActiveTask struct {
		TaskID       string     `json:"task_id"`
		Title        string     `json:"title"`
		Status       TaskStatus `json:"status"`
		Priority     Priority   `json:"priority"`
		Version      int        `json:"version"`
		NeedHelp     bool       `json:"need_help"`
		GoalID       string     `json:"goal_id"`
		GoalTitle    string     `json:"goal_title"`
		TopicID      string     `json:"topic_id"`
		TopicTitle   string     `json:"topic_title"`
		TopicSubject string     `json:"topic_subject"`
		CreatedAt    time.Time  `json:"created_at"`
	}
)

func (t Task) IsDone() bool { return t.Status == TaskDone }

// Patches: nil fields are left untouched.
type (
	TopicPatch struct {
		Title           *string `json:"title" validate:"omitempty,notblank,max=200"`
		Subject         *string `json:"subject" validate:"omitempty,max=100"`
		IsCollaborative *bool   `json:"is_collaborative"`
		Status          *Status `json:"status" validate:"omitempty,topic_status"`
	}

	GoalPatch struct {
		Title        *string   `json:"title" validate:"omitempty,notblank,max=200"`
		Description  *string   `json:"description"`
		Status       *Status   `json:"status" validate:"omitempty,topic_status"`
		Priority     *Priority `json:"priority" validate:"omitempty,priority"`
		OrderIndex   *int      `json:"order_index" validate:"omitempty,min=0"`
		NeedHelp     *bool     `json:"need_help"`
		HelpMessage  *string   `json:"help_message"`
		ReplyMessage *string   `json:"reply_message"`
	}

	// TaskPatch only changes the status together with the completion fields:
	// moving to done requires CompletedBy and CompletedAt, any other status clears them.
	TaskPatch struct {
		Title            *string     `json:"title" validate:"omitempty,notblank,max=200"`
		Description      *string     `json:"description"`
		Priority         *Priority   `json:"priority" validate:"omitempty,priority"`
		OrderIndex       *int        `json:"order_index" validate:"omitempty,min=0"`
		Archived         *bool       `json:"archived"`
		NeedHelp         *bool       `json:"need_help"`
		HelpMessage      *string     `json:"help_message"`
		ReplyMessage     *string     `json:"reply_message"`
		RepliedBy        *string     `json:"replied_by"`
		EstimatedMinutes *int        `json:"estimated_minutes" validate:"omitempty,min=0"`
		ActualMinutes    *int        `json:"actual_minutes" validate:"omitempty,min=0"`
		Status           *TaskStatus `json:"-"`
		CompletedBy      *string     `json:"-"`
		CompletedAt      *time.Time  `json:"-"`
	}
)

var ErrInvalidPatch = errors.New("invalid patch")

// TopicOrderingFields maps the public ordering names of topics to their columns.
var TopicOrderingFields = map[string]string{
	"title":      "title",
	"subject":    "subject",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (p *TopicPatch) Validate(validate *validator.Validate) error {
	cleanStringPtr(p.Title)
	cleanStringPtr(p.Subject)
	return validate.Struct(p)
}

func (p TopicPatch) Apply(t *Topic) {
	setIf(&t.Title, p.Title)
	setIf(&t.Subject, p.Subject)
	setIf(&t.IsCollaborative, p.IsCollaborative)
	setIf(&t.Status, p.Status)
}

func (p *GoalPatch) Validate(validate *validator.Validate) error {
	cleanStringPtr(p.Title)
	return validate.Struct(p)
}

func (p GoalPatch) Apply(g *Goal) {
	setIf(&g.Title, p.Title)
	setIf(&g.Description, p.Description)
	setIf(&g.Status, p.Status)
	setIf(&g.Priority, p.Priority)
	setIf(&g.OrderIndex, p.OrderIndex)
	setIf(&g.NeedHelp, p.NeedHelp)
	setIf(&g.HelpMessage, p.HelpMessage)
	setIf(&g.ReplyMessage, p.ReplyMessage)
}

func (p *TaskPatch) Validate(validate *validator.Validate) error {
	cleanStringPtr(p.Title)
	return validate.Struct(p)
}

// CheckCompletion enforces the status/completion pairing. Backends call it before writing.
func (p TaskPatch) CheckCompletion() error {
	hasCompletion := p.CompletedBy != nil || p.CompletedAt != nil
	switch {
	case p.Status == nil && hasCompletion:
		return errors.Wrap(ErrInvalidPatch, "completion fields require a status change")
	case p.Status == nil:
		return nil
	case !p.Status.Valid():
		return errors.Wrapf(ErrInvalidPatch, "unknown task status %q", *p.Status)
	case *p.Status == TaskDone && (p.CompletedBy == nil || *p.CompletedBy == "" || p.CompletedAt == nil):
		return errors.Wrap(ErrInvalidPatch, "done requires completed_by and completed_at")
	case *p.Status != TaskDone && hasCompletion:
		return errors.Wrapf(ErrInvalidPatch, "%s cannot carry completion fields", *p.Status)
	}
	return nil
}

// Apply assumes CheckCompletion passed.
func (p TaskPatch) Apply(t *Task) {
	setIf(&t.Title, p.Title)
	setIf(&t.Description, p.Description)
	setIf(&t.Priority, p.Priority)
	setIf(&t.OrderIndex, p.OrderIndex)
	setIf(&t.Archived, p.Archived)
	setIf(&t.NeedHelp, p.NeedHelp)
	setIf(&t.HelpMessage, p.HelpMessage)
	setIf(&t.ReplyMessage, p.ReplyMessage)
	setIf(&t.RepliedBy, p.RepliedBy)
	if p.EstimatedMinutes != nil {
		t.EstimatedMinutes = intPtr(*p.EstimatedMinutes)
	}
	if p.ActualMinutes != nil {
		t.ActualMinutes = intPtr(*p.ActualMinutes)
	}
	if p.Status != nil {
		t.Status = *p.Status
		if *p.Status == TaskDone {
			at := p.CompletedAt.UTC()
			t.CompletedBy, t.CompletedAt = *p.CompletedBy, &at
		} else {
			t.CompletedBy, t.CompletedAt = "", nil
		}
	}
}

// IsInfoOnly reports whether the patch leaves the status alone.
func (p TaskPatch) IsInfoOnly() bool {
	return p.Status == nil && p.CompletedBy == nil && p.CompletedAt == nil
}

// Inputs

type (
	NewTopic struct {
		Title           string `json:"title" validate:"required,notblank,max=200"`
		Subject         string `json:"subject" validate:"max=100"`
		IsCollaborative bool   `json:"is_collaborative"`
	}

	NewGoal struct {
		Title       string   `json:"title" validate:"required,notblank,max=200"`
		Description string   `json:"description"`
		Priority    Priority `json:"priority" validate:"omitempty,priority"`
		OrderIndex  int      `json:"order_index" validate:"min=0"`
	}

	NewTask struct {
		Title            string   `json:"title" validate:"required,notblank,max=200"`
		Description      string   `json:"description"`
		Priority         Priority `json:"priority" validate:"omitempty,priority"`
		OrderIndex       int      `json:"order_index" validate:"min=0"`
		EstimatedMinutes *int     `json:"estimated_minutes" validate:"omitempty,min=0"`
	}

	// TopicFilter selects the topics of an owner. A nil Status matches any status.
	TopicFilter struct {
		OwnerID   string
		Status    *Status
		Orderings []core.DBOrdering
	}
)

func (nt *NewTopic) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Subject = core.CleanString(nt.Subject)
	return validate.Struct(nt)
}

func (ng *NewGoal) Validate(validate *validator.Validate) error {
	ng.Title = core.CleanString(ng.Title)
	if ng.Priority == "" {
		ng.Priority = PriorityMedium
	}
	return validate.Struct(ng)
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	if nt.Priority == "" {
		nt.Priority = PriorityMedium
	}
	return validate.Struct(nt)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func cleanStringPtr(s *string) {
	if s != nil {
		*s = core.CleanString(*s)
	}
}

func intPtr(i int) *int { return &i }
