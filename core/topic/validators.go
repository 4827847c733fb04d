package topic

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studywall/core"
)

var (
	priorityTag  = "priority"
	priorityText = "{0} must be one of high, medium, low"

	topicStatusTag  = "topic_status"
	topicStatusText = "{0} must be one of active, archived"

	taskStatusTag  = "task_status"
	taskStatusText = "{0} must be one of todo, in_progress, done"
)

// InitValidators registers the topic validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(priorityTag, func(fl validator.FieldLevel) bool {
		return Priority(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, priorityTag, priorityText)

	_ = validate.RegisterValidation(topicStatusTag, func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, topicStatusTag, topicStatusText)

	_ = validate.RegisterValidation(taskStatusTag, func(fl validator.FieldLevel) bool {
		return TaskStatus(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, taskStatusTag, taskStatusText)
}
