package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/studywall/core/week"
)

type weekApi struct {
	calendar week.Calendar
}

func registerWeekAPI(g *echo.Group, calendar week.Calendar) {
	api := weekApi{calendar: calendar}

	wg := g.Group("/weeks")
	wg.GET("", api.span)
	wg.GET("/current", api.current)
	wg.GET("/:token", api.retrieve)
}

func (api *weekApi) current(ctx echo.Context) error {
	ov, err := api.calendar.Overview(api.calendar.Current())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *weekApi) retrieve(ctx echo.Context) error {
	ov, err := api.calendar.Overview(ctx.Param("token"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ov)
}

// span lists the tokens of ?from=..&to=.. (inclusive).
func (api *weekApi) span(ctx echo.Context) error {
	tokens, err := week.Between(ctx.QueryParam("from"), ctx.QueryParam("to"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tokens)
}
