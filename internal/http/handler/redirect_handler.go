package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerQR/internal/app/service"
	"github.com/sifan077/PowerQR/internal/http/middleware"
	"github.com/sifan077/PowerQR/internal/http/view"
	"go.uber.org/zap"
)

const (
	probeTimeout = 2 * time.Second
	// retryAfterSeconds is sent with 503 responses caused by store failures.
	retryAfterSeconds = "5"
)

// Probe is one dependency checked by the readiness endpoint.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger   *zap.Logger
	Resolver *service.Resolver
	Probes   []Probe
}

// RedirectHandler serves the public scan endpoint and health checks.
type RedirectHandler struct {
	logger   *zap.Logger
	resolver *service.Resolver
	probes   []Probe
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:   logger,
		resolver: deps.Resolver,
		probes:   deps.Probes,
	}
}

// Register wires redirect and health routes onto the provided router.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/health/ready", h.Ready)

	r := router.Group("/r")
	r.Get("/:code", h.Resolve)
	r.Post("/:code", h.Resolve)
}

// Health reports liveness only.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "PowerQR",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready pings every configured dependency.
func (h *RedirectHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true
	for _, p := range h.probes {
		ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
		err := p.Check(ctx)
		cancel()
		if err != nil {
			healthy = false
			checks[p.Name] = err.Error()
			h.logger.Warn("readiness probe failed", zap.String("probe", p.Name), zap.Error(err))
			continue
		}
		checks[p.Name] = "ok"
	}

	status := fiber.StatusOK
	state := "ready"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		state = "unavailable"
	}
	return c.Status(status).JSON(fiber.Map{"status": state, "checks": checks})
}

// Resolve handles GET and POST /r/:code. POST carries the password as a form field.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	code := c.Params("code")
	password := c.Query("password")
	if c.Method() == fiber.MethodPost {
		password = c.FormValue("password")
	}

	res, err := h.resolver.Resolve(c.UserContext(), service.ResolveRequest{
		ShortCode:     code,
		SourceAddress: c.IP(),
		UserAgent:     c.Get(fiber.HeaderUserAgent),
		Referer:       c.Get(fiber.HeaderReferer),
		Password:      password,
	})
	if err != nil {
		fields := []zap.Field{zap.String("code", code), zap.Error(err)}
		if rid := middleware.GetRequestID(c); rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
		if errors.Is(err, service.ErrStoreUnavailable) {
			h.logger.Warn("store unavailable during resolve", fields...)
			c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "service temporarily unavailable",
			})
		}
		h.logger.Error("failed to resolve code", fields...)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	c.Set(fiber.HeaderCacheControl, "no-store")

	switch res.Outcome {
	case service.OutcomeResolved:
		return c.Redirect(res.Destination, fiber.StatusFound)
	case service.OutcomePasswordRequired:
		data := view.PasswordPageData{Code: code, Name: res.Mapping.Name}
		if res.WrongPassword {
			data.Error = "Incorrect password. Please try again."
		}
		html, err := view.RenderPasswordPage(data)
		return h.sendHTML(c, fiber.StatusUnauthorized, html, err)
	case service.OutcomeDenied:
		html, err := view.RenderStatusPage(view.StatusPageData{
			Title:   "Code unavailable",
			Message: "This QR code can no longer be used.",
			Detail:  "Reason: " + string(res.Reason),
		})
		return h.sendHTML(c, fiber.StatusForbidden, html, err)
	default:
		html, err := view.RenderStatusPage(view.StatusPageData{
			Title:   "Not found",
			Message: "This QR code does not exist.",
		})
		return h.sendHTML(c, fiber.StatusNotFound, html, err)
	}
}

func (h *RedirectHandler) sendHTML(c *fiber.Ctx, status int, html string, renderErr error) error {
	if renderErr != nil {
		h.logger.Error("failed to render page", zap.Error(renderErr))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to render page",
		})
	}
	return c.Status(status).Type("html", "utf-8").SendString(html)
}
