package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dharsanguruparan/VidVault/internal/ingest"
	"github.com/dharsanguruparan/VidVault/internal/model"
	"github.com/dharsanguruparan/VidVault/internal/retrieval"
	"github.com/dharsanguruparan/VidVault/internal/search"
)

// multipart overhead allowed on top of the file size limit
const formOverhead = 1 << 20

// uploadFields are the accepted multipart field names for the video, in order.
var uploadFields = []string{"file", "video"}

type Ingester interface {
	Ingest(ctx context.Context, up ingest.Upload) (model.Asset, error)
}

type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]model.Asset, error)
}

type Fetcher interface {
	FetchForDownload(ctx context.Context, id int64) (retrieval.Download, error)
}

// VideoHandler serves upload, search and download.
type VideoHandler struct {
	ingest   Ingester
	search   Searcher
	fetch    Fetcher
	maxBytes int64
}

// NewVideoHandler builds a VideoHandler. maxBytes bounds the request body; zero
// disables the bound.
func NewVideoHandler(in Ingester, s Searcher, f Fetcher, maxBytes int64) *VideoHandler {
	return &VideoHandler{ingest: in, search: s, fetch: f, maxBytes: maxBytes}
}

func (h *VideoHandler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.POST("/upload", h.Upload)
	e.GET("/search", h.Search)
	e.GET("/download/:id", h.Download)
}

func (h *VideoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type uploadResponse struct {
	Message string      `json:"message"`
	Asset   model.Asset `json:"asset"`
}

func (h *VideoHandler) Upload(c echo.Context) error {
	req := c.Request()
	if h.maxBytes > 0 {
		req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxBytes+formOverhead)
	}
	fh, err := formFile(c)
	if err != nil {
		return err
	}
	sizeHint := fh.Size
	if raw := strings.TrimSpace(c.FormValue("size")); raw != "" {
		sizeHint, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || sizeHint < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "size must be a non-negative integer")
		}
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read upload")
	}
	defer f.Close()

	asset, err := h.ingest.Ingest(req.Context(), ingest.Upload{
		OriginalFilename: fh.Filename,
		SizeHint:         sizeHint,
		Body:             f,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, uploadResponse{
		Message: "Video uploaded and converted successfully",
		Asset:   asset,
	})
}

func formFile(c echo.Context) (*multipart.FileHeader, error) {
	for _, field := range uploadFields {
		fh, err := c.FormFile(field)
		if err == nil {
			return fh, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "expecting multipart form")
		}
	}
	return nil, echo.NewHTTPError(http.StatusBadRequest, "no video file in form field \"file\"")
}

func (h *VideoHandler) Search(c echo.Context) error {
	var q search.Query
	if name := c.QueryParam("name"); name != "" {
		q.Name = &name
	}
	if raw := strings.TrimSpace(c.QueryParam("size")); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "size must be an integer")
		}
		q.Size = &size
	}
	assets, err := h.search.Search(c.Request().Context(), q)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, assets)
}

func (h *VideoHandler) Download(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	dl, err := h.fetch.FetchForDownload(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, contentDisposition(dl.Filename))
	return c.Blob(http.StatusOK, dl.ContentType, dl.Data)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}
	return id, nil
}

// contentDisposition quotes filename for an attachment header.
func contentDisposition(filename string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "")
	return `attachment; filename="` + r.Replace(filename) + `"`
}
