package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/lib/logger/sl"
	gallery "premium_gallery/internal/services/gallery_service"
	item "premium_gallery/internal/services/item_service"
	"premium_gallery/internal/services/thumbnail"
	"premium_gallery/internal/storage"
	"premium_gallery/internal/transport/http/dto"
	"premium_gallery/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type GalleryService interface {
	CreateGallery(ctx context.Context, req dto.CreateGalleryRequest) (uuid.UUID, error)
	GetGalleryByID(ctx context.Context, id uuid.UUID) (*dto.GalleryResponse, error)
	GetGalleries(ctx context.Context, page, perPage int) ([]dto.GalleryResponse, int, error)
	DeleteGallery(ctx context.Context, id uuid.UUID) error
}

type ItemService interface {
	Create(ctx context.Context, input dto.CreateItemInput) (*models.GalleryItem, error)
	GenerateConfiguredDefaults(ctx context.Context, item *models.GalleryItem) ([]*models.GalleryItem, error)
	Destroy(ctx context.Context, item *models.GalleryItem) error
	Get(ctx context.Context, id uuid.UUID) (*models.GalleryItem, error)
	ListGallery(ctx context.Context, galleryID uuid.UUID) ([]models.GalleryItem, error)
	Thumbnails(ctx context.Context, id uuid.UUID) ([]models.GalleryItem, error)
	Thumb(ctx context.Context, item *models.GalleryItem, opts models.ThumbOptions) (*models.GalleryItem, error)
	LastInPosition(ctx context.Context, item *models.GalleryItem) (bool, error)
	FullPath(item *models.GalleryItem, variant models.Variant) string
	URL(item *models.GalleryItem, variant models.Variant) string
}

// HealthChecker зависимость, которую проверяет /health
type HealthChecker func(ctx context.Context) error

type Routers struct {
	log            *slog.Logger
	GalleryService GalleryService
	ItemService    ItemService
	checks         map[string]HealthChecker
}

func NewRouter(log *slog.Logger, galleryService GalleryService, itemService ItemService, checks map[string]HealthChecker) *Routers {
	return &Routers{
		log:            log,
		GalleryService: galleryService,
		ItemService:    itemService,
		checks:         checks,
	}
}

// CreateGallery POST /api/v1/galleries
func (r *Routers) CreateGallery(c echo.Context) error {
	const op = "http.routers.CreateGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreateGalleryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("invalid format request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	id, err := r.GalleryService.CreateGallery(c.Request().Context(), req)
	if err != nil {
		return r.fail(c, log, err)
	}

	created, err := r.GalleryService.GetGalleryByID(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(created))
}

// ListGalleries GET /api/v1/galleries?page=&per_page=
func (r *Routers) ListGalleries(c echo.Context) error {
	const op = "http.routers.ListGalleries"

	log := r.log.With(
		slog.String("op", op),
	)

	page, perPage := 1, 10
	err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("per_page", &perPage).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	galleries, total, err := r.GalleryService.GetGalleries(c.Request().Context(), page, perPage)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.GalleryListResponse{
		Galleries: galleries,
		Total:     total,
		Page:      page,
		PerPage:   perPage,
	}))
}

// GetGallery GET /api/v1/galleries/:id
func (r *Routers) GetGallery(c echo.Context) error {
	const op = "http.routers.GetGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	g, err := r.GalleryService.GetGalleryByID(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(g))
}

// DeleteGallery DELETE /api/v1/galleries/:id
func (r *Routers) DeleteGallery(c echo.Context) error {
	const op = "http.routers.DeleteGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	if err := r.GalleryService.DeleteGallery(c.Request().Context(), id); err != nil {
		return r.fail(c, log, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// UploadItem POST /api/v1/galleries/:id/items, multipart поле file.
// После создания элемента строятся миниатюры по умолчанию.
func (r *Routers) UploadItem(c echo.Context) error {
	const op = "http.routers.UploadItem"

	log := r.log.With(
		slog.String("op", op),
	)

	galleryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	file, err := c.FormFile("file")
	if err != nil {
		log.Warn("empty file in request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrMissingFile)
	}

	src, err := file.Open()
	if err != nil {
		return r.fail(c, log, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return r.fail(c, log, err)
	}

	input := dto.CreateItemInput{
		GalleryID:   galleryID,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	}
	if raw := c.FormValue("created_by"); raw != "" {
		createdBy, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
		}
		input.CreatedBy = &createdBy
	}

	log.Debug("got file for upload",
		slog.String("filename", file.Filename),
		slog.Int64("size", file.Size),
	)

	created, err := r.ItemService.Create(c.Request().Context(), input)
	if err != nil {
		return r.fail(c, log, err)
	}

	resp := dto.UploadItemResponse{
		Item:       dto.NewItemResponse(created, r.ItemService.URL(created, models.CanonicalView)),
		Thumbnails: []dto.ItemResponse{},
	}

	thumbs, err := r.ItemService.GenerateConfiguredDefaults(c.Request().Context(), created)
	if err != nil {
		// элемент уже создан, недостающие миниатюры построятся по запросу
		log.Warn("some default thumbnails failed", sl.Err(err))
		resp.Warning = err.Error()
	}
	for _, thumb := range thumbs {
		resp.Thumbnails = append(resp.Thumbnails, dto.NewItemResponse(thumb, r.ItemService.URL(thumb, models.CanonicalView)))
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(resp))
}

// ListItems GET /api/v1/galleries/:id/items
func (r *Routers) ListItems(c echo.Context) error {
	const op = "http.routers.ListItems"

	log := r.log.With(
		slog.String("op", op),
	)

	galleryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidID)
	}

	items, err := r.ItemService.ListGallery(c.Request().Context(), galleryID)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(r.itemResponses(items)))
}

// GetItem GET /api/v1/items/:id, вместе со списком миниатюр
func (r *Routers) GetItem(c echo.Context) error {
	const op = "http.routers.GetItem"

	log := r.log.With(
		slog.String("op", op),
	)

	it, err := r.loadItem(c)
	if err != nil {
		return r.fail(c, log, err)
	}

	thumbs, err := r.ItemService.Thumbnails(c.Request().Context(), it.ID)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(map[string]interface{}{
		"item":       dto.NewItemResponse(it, r.ItemService.URL(it, models.CanonicalView)),
		"thumbnails": r.itemResponses(thumbs),
	}))
}

// DeleteItem DELETE /api/v1/items/:id
func (r *Routers) DeleteItem(c echo.Context) error {
	const op = "http.routers.DeleteItem"

	log := r.log.With(
		slog.String("op", op),
	)

	it, err := r.loadItem(c)
	if err != nil {
		return r.fail(c, log, err)
	}

	if err := r.ItemService.Destroy(c.Request().Context(), it); err != nil {
		return r.fail(c, log, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Thumb GET /api/v1/items/:id/thumb?width=&height=&prefix=
func (r *Routers) Thumb(c echo.Context) error {
	const op = "http.routers.Thumb"

	log := r.log.With(
		slog.String("op", op),
	)

	var (
		q             dto.ThumbQuery
		width, height int
	)
	err := echo.QueryParamsBinder(c).
		Int("width", &width).
		Int("height", &height).
		String("prefix", &q.Prefix).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}
	if c.QueryParam("width") != "" {
		q.Width = &width
	}
	if c.QueryParam("height") != "" {
		q.Height = &height
	}

	if err := c.Validate(q); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	it, err := r.loadItem(c)
	if err != nil {
		return r.fail(c, log, err)
	}

	thumb, err := r.ItemService.Thumb(c.Request().Context(), it, q.Options())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.NewItemResponse(thumb, r.ItemService.URL(thumb, models.CanonicalView))))
}

// FullPath GET /api/v1/items/:id/path?variant=
func (r *Routers) FullPath(c echo.Context) error {
	const op = "http.routers.FullPath"

	log := r.log.With(
		slog.String("op", op),
	)

	it, err := r.loadItem(c)
	if err != nil {
		return r.fail(c, log, err)
	}

	variant := models.CanonicalView
	if key := c.QueryParam("variant"); key != "" {
		variant = models.NamedVariant(key)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.PathResponse{
		Variant: variant.String(),
		Path:    r.ItemService.FullPath(it, variant),
		URL:     r.ItemService.URL(it, variant),
	}))
}

// LastInPosition GET /api/v1/items/:id/last
func (r *Routers) LastInPosition(c echo.Context) error {
	const op = "http.routers.LastInPosition"

	log := r.log.With(
		slog.String("op", op),
	)

	it, err := r.loadItem(c)
	if err != nil {
		return r.fail(c, log, err)
	}

	last, err := r.ItemService.LastInPosition(c.Request().Context(), it)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.LastInPositionResponse{
		Last:     last,
		Position: it.Position,
	}))
}

// Health GET /health
func (r *Routers) Health(c echo.Context) error {
	status := map[string]string{}
	code := http.StatusOK

	for name, check := range r.checks {
		if err := check(c.Request().Context()); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}

	return c.JSON(code, map[string]interface{}{
		"status": http.StatusText(code),
		"checks": status,
	})
}

var errInvalidItemID = errors.New("invalid item id")

func (r *Routers) loadItem(c echo.Context) (*models.GalleryItem, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, errInvalidItemID
	}

	return r.ItemService.Get(c.Request().Context(), id)
}

func (r *Routers) itemResponses(items []models.GalleryItem) []dto.ItemResponse {
	out := make([]dto.ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewItemResponse(&items[i], r.ItemService.URL(&items[i], models.CanonicalView)))
	}
	return out
}

// fail переводит ошибку сервиса в HTTP-ответ
func (r *Routers) fail(c echo.Context, log *slog.Logger, err error) error {
	code, body := errorResponse(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Warn("request rejected", sl.Err(err))
	}

	return c.JSON(code, body)
}

func errorResponse(err error) (int, response.ErrorResponse) {
	var validationErr *models.ItemValidationError

	switch {
	case errors.Is(err, errInvalidItemID):
		return http.StatusBadRequest, response.ErrInvalidID
	case errors.Is(err, storage.ErrItemNotFound):
		return http.StatusNotFound, response.ErrorResponseWithDetails("item_not_found", err.Error())
	case errors.Is(err, storage.ErrGalleryNotFound):
		return http.StatusNotFound, response.ErrorResponseWithDetails("gallery_not_found", err.Error())
	case errors.Is(err, storage.ErrGalleryExists):
		return http.StatusConflict, response.ErrorResponseWithDetails("gallery_exists", err.Error())
	case errors.Is(err, storage.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, response.ErrorResponseWithDetails("file_too_large", err.Error())
	case errors.Is(err, thumbnail.ErrInvalidDimensions):
		return http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_dimensions", err.Error())
	case errors.As(err, &validationErr), errors.Is(err, gallery.ErrTitleRequired):
		return http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", err.Error())
	case errors.Is(err, item.ErrThumbnailGeneration):
		return http.StatusBadGateway, response.ErrorResponseWithDetails("thumbnail_generation_failed", err.Error())
	case errors.Is(err, item.ErrPositionIntegrity):
		return http.StatusInternalServerError, response.ErrorResponseWithDetails("position_integrity", err.Error())
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
