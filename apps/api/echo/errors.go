package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/topic"
	"github.com/trezcool/studywall/core/versioned"
	"github.com/trezcool/studywall/core/week"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code    int
			message interface{}
		)

		var (
			hErr     *echo.HTTPError
			vErrs    validator.ValidationErrors
			vErr     *core.ValidationError
			conflict *versioned.ConflictError
			partial  *topic.PartialCascadeError
		)
		switch {
		case errors.As(err, &hErr):
			code = hErr.Code
			message = hErr.Message
		case errors.As(err, &vErrs):
			err = core.TranslateValidationErrors(vErrs, translator)
			code = http.StatusBadRequest
			message = err.(*core.ValidationError).FieldMap()
		case errors.As(err, &vErr):
			code = http.StatusBadRequest
			if flds := vErr.FieldMap(); flds != nil {
				message = flds
			} else {
				message = vErr.Error()
			}
		case errors.As(err, &conflict):
			code = http.StatusConflict
			message = echo.Map{"error": "version conflict, please refresh", "current_version": conflict.Current}
		case versioned.IsNotFound(err):
			code = http.StatusNotFound
			message = "not found"
		case errors.Is(err, topic.ErrForbidden):
			code = http.StatusForbidden
			message = topic.ErrForbidden.Error()
		case errors.Is(err, topic.ErrRecordRequired):
			code = http.StatusUnprocessableEntity
			message = topic.ErrRecordRequired.Error()
		case errors.Is(err, week.ErrInvalidToken),
			errors.Is(err, week.ErrSpanTooLong),
			errors.Is(err, topic.ErrInvalidTransition),
			errors.Is(err, topic.ErrInvalidPatch):
			code = http.StatusBadRequest
			message = errors.Cause(err).Error()
		case errors.As(err, &partial):
			code = http.StatusInternalServerError
			message = echo.Map{"error": "delete partially applied, retry to finish", "pending": partial.Pending}
			logger.Error("partial cascade delete", err, contextActor(ctx))
		case versioned.IsIntegrity(err):
			code = http.StatusConflict
			message = errors.Cause(err).Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextActor(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func contextActor(ctx echo.Context) core.Actor {
	if claims, ok := getContextClaims(ctx); ok {
		return claims.Actor()
	}
	return core.Actor{}
}
