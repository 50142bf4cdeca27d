package handler

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerQR/internal/app/model"
	"github.com/sifan077/PowerQR/internal/app/repository"
	"github.com/sifan077/PowerQR/internal/app/service"
	"github.com/sifan077/PowerQR/internal/app/shortcode"
	"github.com/sifan077/PowerQR/internal/http/middleware"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger    *zap.Logger
	Mappings  service.MappingService
	Analytics *service.AnalyticsService
	// Auth guards every /api route; it must set the owner id (see middleware.OwnerAuth).
	Auth    fiber.Handler
	BaseURL string
}

// APIHandler implements the owner management API.
type APIHandler struct {
	logger    *zap.Logger
	mappings  service.MappingService
	analytics *service.AnalyticsService
	auth      fiber.Handler
	baseURL   string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:    logger,
		mappings:  deps.Mappings,
		analytics: deps.Analytics,
		auth:      deps.Auth,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	var guards []fiber.Handler
	if h.auth != nil {
		guards = append(guards, h.auth)
	}

	api := router.Group("/api", guards...)
	{
		mappings := api.Group("/mappings")
		{
			mappings.Post("/", h.CreateMapping)
			mappings.Get("/", h.ListMappings)
			mappings.Get("/:id", h.GetMapping)
			mappings.Patch("/:id", h.UpdateMapping)
			mappings.Delete("/:id", h.DeleteMapping)
			mappings.Get("/:id/image", h.Image)
			mappings.Get("/:id/analytics", h.Analytics)
			mappings.Get("/:id/visits", h.Visits)
		}
	}
}

// CreateMappingRequest represents the request body for creating a mapping.
type CreateMappingRequest struct {
	Name            string     `json:"name"`
	Kind            string     `json:"kind,omitempty"`
	Destination     string     `json:"destination"`
	Size            int        `json:"size,omitempty"`
	ErrorCorrection string     `json:"error_correction,omitempty"`
	ForegroundColor string     `json:"foreground_color,omitempty"`
	BackgroundColor string     `json:"background_color,omitempty"`
	Status          string     `json:"status,omitempty"`
	MaxScans        *int64     `json:"max_scans,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Password        string     `json:"password,omitempty"`
	Description     string     `json:"description,omitempty"`
	Tags            string     `json:"tags,omitempty"`
}

// UpdateMappingRequest carries a partial update; absent fields are left unchanged.
type UpdateMappingRequest struct {
	Name            *string    `json:"name"`
	Destination     *string    `json:"destination"`
	Size            *int       `json:"size"`
	ErrorCorrection *string    `json:"error_correction"`
	ForegroundColor *string    `json:"foreground_color"`
	BackgroundColor *string    `json:"background_color"`
	Status          *string    `json:"status"`
	MaxScans        *int64     `json:"max_scans"`
	ClearMaxScans   bool       `json:"clear_max_scans"`
	ExpiresAt       *time.Time `json:"expires_at"`
	ClearExpiresAt  bool       `json:"clear_expires_at"`
	Password        *string    `json:"password"`
	Description     *string    `json:"description"`
	Tags            *string    `json:"tags"`
}

// MappingResponse is the public view of a mapping.
type MappingResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Kind            string     `json:"kind"`
	Destination     string     `json:"destination"`
	ShortCode       string     `json:"short_code,omitempty"`
	RedirectURL     string     `json:"redirect_url,omitempty"`
	ImageURL        string     `json:"image_url"`
	Size            int        `json:"size"`
	ErrorCorrection string     `json:"error_correction"`
	ForegroundColor string     `json:"foreground_color"`
	BackgroundColor string     `json:"background_color"`
	Status          string     `json:"status"`
	MaxScans        *int64     `json:"max_scans"`
	ExpiresAt       *time.Time `json:"expires_at"`
	HasPassword     bool       `json:"has_password"`
	Description     string     `json:"description"`
	Tags            []string   `json:"tags"`
	TotalScans      int64      `json:"total_scans"`
	UniqueScans     int64      `json:"unique_scans"`
	LastScannedAt   *time.Time `json:"last_scanned_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// VisitResponse is one entry of the recent visits list.
type VisitResponse struct {
	ID            string    `json:"id"`
	SourceAddress string    `json:"source_address"`
	DeviceClass   string    `json:"device_class"`
	Browser       string    `json:"browser"`
	OS            string    `json:"os"`
	Referer       string    `json:"referer,omitempty"`
	IsUnique      bool      `json:"is_unique"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateMapping handles POST /api/mappings
func (h *APIHandler) CreateMapping(c *fiber.Ctx) error {
	var req CreateMappingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	m, err := h.mappings.CreateMapping(c.UserContext(), middleware.GetOwnerID(c), service.CreateMappingInput{
		Name:            req.Name,
		Kind:            model.Kind(req.Kind),
		Destination:     req.Destination,
		Size:            req.Size,
		ErrorCorrection: model.ErrorCorrection(strings.ToUpper(req.ErrorCorrection)),
		ForegroundColor: req.ForegroundColor,
		BackgroundColor: req.BackgroundColor,
		Status:          model.Status(req.Status),
		MaxScans:        req.MaxScans,
		ExpiresAt:       req.ExpiresAt,
		Password:        req.Password,
		Description:     req.Description,
		Tags:            req.Tags,
	})
	if err != nil {
		return h.fail(c, "failed to create mapping", err)
	}

	return c.Status(fiber.StatusCreated).JSON(h.toResponse(m))
}

// ListMappings handles GET /api/mappings
func (h *APIHandler) ListMappings(c *fiber.Ctx) error {
	limit := 20
	offset := 0

	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}

	list, err := h.mappings.ListMappings(c.UserContext(), repository.MappingFilter{
		OwnerID: middleware.GetOwnerID(c),
		Search:  c.Query("search"),
		Kind:    model.Kind(c.Query("kind")),
		Status:  model.Status(c.Query("status")),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return h.fail(c, "failed to list mappings", err)
	}

	response := make([]MappingResponse, len(list))
	for i := range list {
		response[i] = h.toResponse(&list[i])
	}

	return c.JSON(fiber.Map{
		"mappings": response,
		"limit":    limit,
		"offset":   offset,
		"count":    len(response),
	})
}

// GetMapping handles GET /api/mappings/:id
func (h *APIHandler) GetMapping(c *fiber.Ctx) error {
	m, err := h.mappings.GetMapping(c.UserContext(), middleware.GetOwnerID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "failed to get mapping", err)
	}
	return c.JSON(h.toResponse(m))
}

// UpdateMapping handles PATCH /api/mappings/:id
func (h *APIHandler) UpdateMapping(c *fiber.Ctx) error {
	var req UpdateMappingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	input := service.UpdateMappingInput{
		Name:            req.Name,
		Destination:     req.Destination,
		Size:            req.Size,
		ForegroundColor: req.ForegroundColor,
		BackgroundColor: req.BackgroundColor,
		MaxScans:        req.MaxScans,
		ClearMaxScans:   req.ClearMaxScans,
		ExpiresAt:       req.ExpiresAt,
		ClearExpiresAt:  req.ClearExpiresAt,
		Password:        req.Password,
		Description:     req.Description,
		Tags:            req.Tags,
	}
	if req.ErrorCorrection != nil {
		level := model.ErrorCorrection(strings.ToUpper(*req.ErrorCorrection))
		input.ErrorCorrection = &level
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		input.Status = &status
	}

	m, err := h.mappings.UpdateMapping(c.UserContext(), middleware.GetOwnerID(c), c.Params("id"), input)
	if err != nil {
		return h.fail(c, "failed to update mapping", err)
	}
	return c.JSON(h.toResponse(m))
}

// DeleteMapping handles DELETE /api/mappings/:id
func (h *APIHandler) DeleteMapping(c *fiber.Ctx) error {
	if err := h.mappings.DeleteMapping(c.UserContext(), middleware.GetOwnerID(c), c.Params("id")); err != nil {
		return h.fail(c, "failed to delete mapping", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Image handles GET /api/mappings/:id/image. ?inline=1 previews instead of downloading.
func (h *APIHandler) Image(c *fiber.Ctx) error {
	png, m, err := h.mappings.RenderImage(c.UserContext(), middleware.GetOwnerID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "failed to render image", err)
	}

	disposition := "attachment"
	if c.QueryBool("inline") {
		disposition = "inline"
	}
	name := unsafeFilenameChars.ReplaceAllString(m.Name, "_")
	if name == "" {
		name = "qrcode"
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, disposition+`; filename="`+name+`_qr.png"`)
	return c.Send(png)
}

// Analytics handles GET /api/mappings/:id/analytics?days=N
func (h *APIHandler) Analytics(c *fiber.Ctx) error {
	days := service.DefaultWindowDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "days must be an integer",
			})
		}
		days = parsed
	}

	ctx := c.UserContext()
	m, err := h.mappings.GetMapping(ctx, middleware.GetOwnerID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "failed to load mapping", err)
	}

	report, err := h.analytics.AggregateDays(ctx, m, days)
	if err != nil {
		return h.fail(c, "failed to aggregate analytics", err)
	}
	return c.JSON(report)
}

// Visits handles GET /api/mappings/:id/visits
func (h *APIHandler) Visits(c *fiber.Ctx) error {
	visits, err := h.mappings.RecentVisits(c.UserContext(), middleware.GetOwnerID(c), c.Params("id"), c.QueryInt("limit", 10))
	if err != nil {
		return h.fail(c, "failed to list visits", err)
	}

	response := make([]VisitResponse, len(visits))
	for i, v := range visits {
		response[i] = VisitResponse{
			ID:            v.ID,
			SourceAddress: v.SourceAddress,
			DeviceClass:   string(v.DeviceClass),
			Browser:       v.Browser,
			OS:            v.OS,
			Referer:       v.Referer,
			IsUnique:      v.IsUnique,
			CreatedAt:     v.CreatedAt,
		}
	}
	return c.JSON(fiber.Map{"visits": response, "count": len(response)})
}

func (h *APIHandler) toResponse(m *model.Mapping) MappingResponse {
	resp := MappingResponse{
		ID:              m.ID,
		Name:            m.Name,
		Kind:            string(m.Kind),
		Destination:     m.Destination,
		ShortCode:       m.Code(),
		ImageURL:        h.baseURL + "/api/mappings/" + m.ID + "/image",
		Size:            m.Size,
		ErrorCorrection: string(m.ErrorCorrection),
		ForegroundColor: m.ForegroundColor,
		BackgroundColor: m.BackgroundColor,
		Status:          string(m.Status),
		MaxScans:        m.MaxScans,
		ExpiresAt:       m.ExpiresAt,
		HasPassword:     m.HasPassword(),
		Description:     m.Description,
		Tags:            []string{},
		TotalScans:      m.TotalScans,
		UniqueScans:     m.UniqueScans,
		LastScannedAt:   m.LastScannedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.Kind == model.KindDynamic && m.ShortCode != nil {
		resp.RedirectURL = service.ImageData(m, h.baseURL)
	}
	if m.Tags != "" {
		resp.Tags = strings.Split(m.Tags, ",")
	}
	return resp
}

// fail maps service errors onto status codes; unexpected errors are logged.
func (h *APIHandler) fail(c *fiber.Ctx, msg string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": "),
		})
	case errors.Is(err, service.ErrMappingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "mapping not found",
		})
	case errors.Is(err, service.ErrStoreUnavailable), errors.Is(err, shortcode.ErrGenerationExhausted):
		h.logger.Warn(msg, zap.Error(err), zap.String("request_id", middleware.GetRequestID(c)))
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "service temporarily unavailable",
		})
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("request_id", middleware.GetRequestID(c)))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": msg,
		})
	}
}
