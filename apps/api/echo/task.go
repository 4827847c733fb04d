package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/record"
	"github.com/trezcool/studywall/core/topic"
)

type (
	taskApi struct {
		svc       *topic.Service
		recordSvc *record.Service
		validate  *validator.Validate
	}

	taskUpdateRequest struct {
		versionField
		topic.TaskPatch
	}

	transitionRequest struct {
		versionField
		Status topic.TaskStatus `json:"status"`
	}

	// transitionResponse carries progress_error when the status change was saved
	// but the progress could not be recomputed.
	transitionResponse struct {
		topic.Transition
		ProgressError string `json:"progress_error,omitempty"`
	}
)

func registerTaskAPI(g *echo.Group, svc *topic.Service, recordSvc *record.Service, validate *validator.Validate) {
	api := taskApi{svc: svc, recordSvc: recordSvc, validate: validate}

	kg := g.Group("/tasks")
	kg.GET("/:id", api.retrieve)
	kg.PUT("/:id", api.update)
	kg.POST("/:id/transition", api.transition)
	kg.GET("/:id/records", api.queryRecords)
	kg.POST("/:id/records", api.createRecord)

	g.GET("/me/active-tasks", api.activeTasks)
	g.GET("/records", api.searchRecords)
}

func (api *taskApi) retrieve(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindTask, topic.AccessContribute); err != nil {
		return err
	}
	t, err := api.svc.GetTask(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) update(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindTask, topic.AccessContribute); err != nil {
		return err
	}
	var data taskUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to taskUpdateRequest")
	}
	if err := data.check(); err != nil {
		return err
	}
	if err := data.TaskPatch.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.UpdateTask(ctx.Request().Context(), ctx.Param("id"), data.Version, data.TaskPatch)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) transition(ctx echo.Context) error {
	actor, err := authorize(ctx, api.svc, topic.KindTask, topic.AccessContribute)
	if err != nil {
		return err
	}
	var data transitionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to transitionRequest")
	}
	if err = data.check(); err != nil {
		return err
	}
	if data.Status == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "this field is required"})
	}

	res, err := api.svc.TransitionTask(ctx.Request().Context(), ctx.Param("id"), data.Version, data.Status, actor.ID)
	var pErr *topic.ProgressError
	if errors.As(err, &pErr) {
		return ctx.JSON(http.StatusOK, transitionResponse{Transition: res, ProgressError: "progress could not be recomputed, please refresh"})
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, transitionResponse{Transition: res})
}

func (api *taskApi) queryRecords(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindTask, topic.AccessContribute); err != nil {
		return err
	}
	recs, err := api.recordSvc.Query(ctx.Request().Context(), record.QueryFilter{TaskID: ctx.Param("id")})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *taskApi) createRecord(ctx echo.Context) error {
	actor, err := authorize(ctx, api.svc, topic.KindTask, topic.AccessContribute)
	if err != nil {
		return err
	}
	var data record.NewRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.recordSvc.Create(ctx.Request().Context(), ctx.Param("id"), data, actor.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *taskApi) searchRecords(ctx echo.Context) error {
	var filter record.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}
	if err := api.authorizeSearch(ctx, &filter); err != nil {
		return err
	}

	recs, err := api.recordSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}

// authorizeSearch scopes a record search to topics and tasks the actor can see.
// Without one, the search is limited to the actor's own records.
func (api *taskApi) authorizeSearch(ctx echo.Context, filter *record.QueryFilter) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	c := ctx.Request().Context()
	if filter.TopicID != "" {
		if err = api.svc.Authorize(c, topic.EntityRef{Kind: topic.KindTopic, ID: filter.TopicID}, actor.ID, topic.AccessContribute); err != nil {
			return err
		}
	}
	if filter.TaskID != "" {
		if err = api.svc.Authorize(c, topic.EntityRef{Kind: topic.KindTask, ID: filter.TaskID}, actor.ID, topic.AccessContribute); err != nil {
			return err
		}
	}
	if filter.TopicID == "" && filter.TaskID == "" {
		if filter.AuthorID != "" && filter.AuthorID != actor.ID {
			return errors.Wrapf(topic.ErrForbidden, "records of %s", filter.AuthorID)
		}
		filter.AuthorID = actor.ID
	}
	return nil
}

func (api *taskApi) activeTasks(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	tasks, err := api.svc.ActiveTasksForUser(ctx.Request().Context(), actor.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tasks)
}
