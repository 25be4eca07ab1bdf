package devapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/resource"
)

var (
	errUnauthenticated      = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errHTTPForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how
// to map our errors onto the wire shape the gateway client decodes.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		body := errorBody{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				body.Error = msg
			} else {
				body.Error = http.StatusText(code)
			}
		case *core.Failure:
			code, body = failureResponse(origErr)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			body.Error = "invalid payload"
			body.Fields = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				body.Fields[vErr.Field()] = vErr.Translate(core.Translator)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			body.Error = origErr.Error()
			if body.Error == "" {
				body.Error = "invalid payload"
			}
			if origErr.Fields != nil {
				body.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					body.Fields[fErr.Field] = fErr.Error
				}
			}
		default:
			if errors.Is(err, resource.ErrNotFound) {
				code = http.StatusNotFound
				body.Error = resource.ErrNotFound.Error()
				break
			}
			// any other error is a server error
			code = http.StatusInternalServerError
			body.Error = http.StatusText(code)
			logger.Error(body.Error, err)
		}

		if !ctx.Response().Committed {
			if sendErr := ctx.JSON(code, body); sendErr != nil {
				ctx.Echo().Logger.Error(sendErr)
			}
		}
	}
}

func failureResponse(f *core.Failure) (int, errorBody) {
	body := errorBody{Error: f.Error()}
	if len(f.Fields) > 0 {
		body.Fields = make(map[string]string, len(f.Fields))
		for _, fErr := range f.Fields {
			body.Fields[fErr.Field] = fErr.Error
		}
	}

	switch f.Kind {
	case core.FailureUnauthenticated:
		return http.StatusUnauthorized, body
	case core.FailureUnauthorized:
		return http.StatusForbidden, body
	case core.FailureNotFound:
		return http.StatusNotFound, body
	case core.FailureInvalidTransition, core.FailureValidation:
		return http.StatusBadRequest, body
	default:
		return http.StatusBadGateway, body
	}
}
