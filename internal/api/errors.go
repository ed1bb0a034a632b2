package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharsanguruparan/VidVault/internal/model"
)

// httpError maps a service error onto an HTTP error with a client-safe message.
func httpError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	switch {
	case errors.Is(err, model.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, model.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "video download is blocked").SetInternal(err)
	}
	var ie *model.IngestionError
	if errors.As(err, &ie) {
		switch ie.Kind {
		case model.IOFailure:
			return echo.NewHTTPError(http.StatusBadRequest, uploadRejection(ie.Err)).SetInternal(err)
		case model.StorageFailure:
			return echo.NewHTTPError(http.StatusInternalServerError, "video could not be stored").SetInternal(err)
		case model.TranscodeFailure:
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "video could not be converted").SetInternal(err)
		case model.PersistFailure:
			return echo.NewHTTPError(http.StatusInternalServerError, "video converted but could not be recorded").SetInternal(err)
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

// uploadRejection names a client-side upload problem without echoing the cause.
func uploadRejection(err error) string {
	for _, known := range []error{model.ErrInvalidFilename, model.ErrEmptyUpload, model.ErrUploadTooLarge} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "could not read upload"
}

// errorHandler renders every error as {"message": ...} and logs server faults.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		he := httpError(err)
		if he.Code >= http.StatusInternalServerError {
			log.Error("request failed",
				slog.String("method", c.Request().Method),
				slog.String("uri", c.Request().RequestURI),
				slog.Any("error", err))
		}
		msg := he.Message
		if s, ok := msg.(string); ok {
			msg = map[string]string{"message": s}
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(he.Code)
		} else {
			werr = c.JSON(he.Code, msg)
		}
		if werr != nil {
			log.Warn("write error response", slog.Any("error", werr))
		}
	}
}
