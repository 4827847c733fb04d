package record_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/record"
	"github.com/trezcool/studywall/core/versioned"
	"github.com/trezcool/studywall/core/week"
	"github.com/trezcool/studywall/tests"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	record.InitValidators(validate, translator)
	return validate
}

func TestService_Create(t *testing.T) {
	for _, b := range testutil.Backends() {
		t.Run(b.Name, func(t *testing.T) {
			repos := b.Open(t)
			svc := record.NewService(repos.Records, repos.Repositories, week.NewCalendar(time.FixedZone("CST", 8*60*60)))
			ctx := context.Background()

			tp := testutil.CreateTopic(t, repos.Topics, "Go", "u1")
			g := testutil.CreateGoal(t, repos.Goals, tp.ID, "Basics")
			k := testutil.CreateTask(t, repos.Tasks, g.ID, "Tour")

			has, err := svc.HasRecord(ctx, k.ID)
			require.NoError(t, err)
			assert.False(t, has)

			nr := record.NewRecord{Title: " Slices ", Message: "append may reallocate", Tags: []string{" Go ", "slices"}}
			require.NoError(t, nr.Validate(newValidator()))
			rec, err := svc.Create(ctx, k.ID, nr, "u1")
			require.NoError(t, err)
			assert.NotEmpty(t, rec.ID)
			assert.Equal(t, tp.ID, rec.TopicID)
			assert.Equal(t, "Slices", rec.Title)
			assert.Equal(t, record.DifficultyMedium, rec.Difficulty)
			assert.Equal(t, []string{"go", "slices"}, rec.Tags)
			assert.Equal(t, week.NewCalendar(time.FixedZone("CST", 8*60*60)).IDFor(rec.CreatedAt), rec.Week)

			has, err = svc.HasRecord(ctx, k.ID)
			require.NoError(t, err)
			assert.True(t, has)

			recs, err := svc.Query(ctx, record.QueryFilter{TopicID: tp.ID})
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, rec.ID, recs[0].ID)

			recs, err = svc.Query(ctx, record.QueryFilter{Week: "1999W01"})
			require.NoError(t, err)
			assert.NotNil(t, recs)
			assert.Empty(t, recs)

			_, err = svc.Create(ctx, "missing", nr, "u1")
			assert.True(t, versioned.IsNotFound(err))
		})
	}
}

func TestNewRecord_Validate(t *testing.T) {
	validate := newValidator()
	tests := []struct {
		name      string
		nr        record.NewRecord
		wantField string
	}{
		{name: "valid", nr: record.NewRecord{Title: "t", Message: "m"}},
		{name: "blank title", nr: record.NewRecord{Title: "  ", Message: "m"}, wantField: "title"},
		{name: "no message", nr: record.NewRecord{Title: "t"}, wantField: "message"},
		{name: "bad difficulty", nr: record.NewRecord{Title: "t", Message: "m", Difficulty: "insane"}, wantField: "difficulty"},
		{name: "zero minutes", nr: record.NewRecord{Title: "t", Message: "m", CompletionMinutes: new(int)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nr.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			vErr := core.TranslateValidationErrors(err, core.NewTranslator())
			var ve *core.ValidationError
			require.True(t, errors.As(vErr, &ve), "got %v", err)
			assert.Contains(t, ve.FieldMap(), tt.wantField)
		})
	}
}

func TestQueryFilter_Validate(t *testing.T) {
	validate := newValidator()
	assert.NoError(t, (&record.QueryFilter{Week: " 2024W07 "}).Validate(validate))
	assert.NoError(t, (&record.QueryFilter{}).Validate(validate))
	assert.Error(t, (&record.QueryFilter{Week: "2024-07"}).Validate(validate))
}
