package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/topic"
	"github.com/trezcool/studywall/core/versioned"
)

type (
	topicApi struct {
		svc      *topic.Service
		validate *validator.Validate
	}

	topicUpdateRequest struct {
		versionField
		topic.TopicPatch
	}

	goalUpdateRequest struct {
		versionField
		topic.GoalPatch
	}

	reorderRequest struct {
		Tasks []versioned.Ref `json:"tasks" validate:"required,min=1,dive"`
	}

	progressResponse struct {
		ID       string `json:"id"`
		Progress int    `json:"progress"`
	}
)

func registerTopicAPI(g *echo.Group, svc *topic.Service, validate *validator.Validate) {
	api := topicApi{svc: svc, validate: validate}

	tg := g.Group("/topics")
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
	tg.GET("/:id/progress", api.progress)
	tg.POST("/:id/goals", api.addGoal)

	gg := g.Group("/goals")
	gg.PUT("/:id", api.updateGoal)
	gg.DELETE("/:id", api.destroyGoal)
	gg.GET("/:id/progress", api.goalProgress)
	gg.POST("/:id/tasks", api.addTask)
	gg.PUT("/:id/tasks/order", api.reorderTasks)
}

// Topics

func (api *topicApi) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	filter := topic.TopicFilter{OwnerID: actor.ID}
	if s := ctx.QueryParam("status"); s != "" {
		status := topic.Status(core.CleanString(s, true))
		if !status.Valid() {
			return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "status must be one of active, archived"})
		}
		filter.Status = &status
	}
	var ord Ordering
	ord.Bind(ctx)
	filter.Orderings = ord.Orderings

	topics, err := api.svc.QueryTopics(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *topicApi) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data topic.NewTopic
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTopic")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.CreateTopic(ctx.Request().Context(), data, actor.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *topicApi) retrieve(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindTopic, topic.AccessContribute); err != nil {
		return err
	}
	tree, err := api.svc.FetchTree(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *topicApi) update(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindTopic, topic.AccessOwner); err != nil {
		return err
	}
	var data topicUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to topicUpdateRequest")
	}
	if err := data.check(); err != nil {
		return err
	}
	if err := data.TopicPatch.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.UpdateTopic(ctx.Request().Context(), ctx.Param("id"), data.Version, data.TopicPatch)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *topicApi) destroy(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindTopic, topic.AccessOwner); err != nil {
		return err
	}
	if err := api.svc.DeleteTopic(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *topicApi) progress(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindTopic, topic.AccessContribute); err != nil {
		return err
	}
	id := ctx.Param("id")
	p, err := api.svc.TopicProgress(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, progressResponse{ID: id, Progress: p})
}

// Goals

func (api *topicApi) addGoal(ctx echo.Context) error {
	actor, err := authorize(ctx, api.svc, topic.KindTopic, topic.AccessContribute)
	if err != nil {
		return err
	}
	var data topic.NewGoal
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGoal")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	g, err := api.svc.AddGoal(ctx.Request().Context(), ctx.Param("id"), data, actor.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *topicApi) updateGoal(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindGoal, topic.AccessContribute); err != nil {
		return err
	}
	var data goalUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to goalUpdateRequest")
	}
	if err := data.check(); err != nil {
		return err
	}
	if err := data.GoalPatch.Validate(api.validate); err != nil {
		return err
	}

	g, err := api.svc.UpdateGoal(ctx.Request().Context(), ctx.Param("id"), data.Version, data.GoalPatch)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *topicApi) destroyGoal(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindGoal, topic.AccessOwner); err != nil {
		return err
	}
	if err := api.svc.DeleteGoal(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *topicApi) goalProgress(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindGoal, topic.AccessContribute); err != nil {
		return err
	}
	id := ctx.Param("id")
	p, err := api.svc.GoalProgress(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, progressResponse{ID: id, Progress: p})
}

func (api *topicApi) addTask(ctx echo.Context) error {
	actor, err := authorize(ctx, api.svc, topic.KindGoal, topic.AccessContribute)
	if err != nil {
		return err
	}
	var data topic.NewTask
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.AddTask(ctx.Request().Context(), ctx.Param("id"), data, actor.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *topicApi) reorderTasks(ctx echo.Context) error {
	if _, err := authorize(ctx, api.svc, topic.KindGoal, topic.AccessContribute); err != nil {
		return err
	}
	var data reorderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to reorderRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	tasks, err := api.svc.ReorderTasks(ctx.Request().Context(), ctx.Param("id"), data.Tasks)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tasks)
}
