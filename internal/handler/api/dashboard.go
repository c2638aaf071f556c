package api

import (
	"errors"
	"strconv"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/service/ratelimit"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/usecase"
	xhttp "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/http"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/http/middleware"
	xlogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RefreshLimit caps section refreshes per user with a token bucket.
type RefreshLimit struct {
	Burst     int
	PerMinute int
}

// DashboardHandler serves onboarding, the daily dashboard, section refresh
// and votes. Every route except /health needs a bearer token.
type DashboardHandler struct {
	logger     *xlogger.Logger
	auth       echo.MiddlewareFunc
	onboarding *usecase.OnboardingService
	builder    *usecase.DashboardBuilder
	refresher  *usecase.SectionRefresher
	votes      *usecase.VoteService
	limiter    *ratelimit.Limiter
	limit      RefreshLimit
}

var _ xhttp.Handler = (*DashboardHandler)(nil)

func NewDashboardHandler(logger *xlogger.Logger, auth echo.MiddlewareFunc, onboarding *usecase.OnboardingService,
	builder *usecase.DashboardBuilder, refresher *usecase.SectionRefresher, votes *usecase.VoteService,
	limiter *ratelimit.Limiter, limit RefreshLimit) *DashboardHandler {
	return &DashboardHandler{
		logger:     logger,
		auth:       auth,
		onboarding: onboarding,
		builder:    builder,
		refresher:  refresher,
		votes:      votes,
		limiter:    limiter,
		limit:      limit,
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("", h.auth)
	g.GET("/me", h.Me)
	g.POST("/onboarding", h.SaveOnboarding)
	g.GET("/onboarding", h.GetOnboarding)
	g.GET("/dashboard", h.Dashboard)
	g.POST("/dashboard/refresh/:section", h.Refresh)
	g.POST("/votes", h.SaveVote)
	g.GET("/votes", h.ListVotes)
}

func (h *DashboardHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *DashboardHandler) Me(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	_, err := h.onboarding.Get(c.Request().Context(), userID)
	if err != nil && !errors.Is(err, models.ErrPreferencesMissing) {
		return h.fail(c, "me", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"id":              userID,
		"needsOnboarding": err != nil,
	})
}

func (h *DashboardHandler) SaveOnboarding(c echo.Context) error {
	req := &models.OnboardingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	userID, _ := middleware.UserID(c)

	prefs, warnings, err := h.onboarding.Save(c.Request().Context(), userID, req)
	if err != nil {
		return h.fail(c, "onboarding", err)
	}
	return xhttp.CreatedResponse(c, map[string]interface{}{
		"message":     "onboarding saved",
		"preferences": prefs,
		"warnings":    warnings,
	})
}

func (h *DashboardHandler) GetOnboarding(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	prefs, err := h.onboarding.Get(c.Request().Context(), userID)
	if err != nil {
		return h.fail(c, "get onboarding", err)
	}
	return xhttp.SuccessResponse(c, prefs)
}

func (h *DashboardHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	userID, _ := middleware.UserID(c)
	prefs, err := h.onboarding.Get(ctx, userID)
	if err != nil {
		return h.fail(c, "dashboard", err)
	}
	snap, err := h.builder.GetOrBuild(ctx, prefs)
	if err != nil {
		return h.fail(c, "dashboard", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, no-store")
	return xhttp.SuccessResponse(c, dashboardView(snap, prefs))
}

func (h *DashboardHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	userID, _ := middleware.UserID(c)

	if h.limiter != nil && !h.limiter.Allow(strconv.FormatInt(userID, 10), float64(h.limit.Burst), float64(h.limit.PerMinute)/60) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many refreshes, slow down"))
	}

	prefs, err := h.onboarding.Get(ctx, userID)
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	snap, applied, err := h.refresher.Refresh(ctx, prefs, req.Section)
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"applied":   applied,
		"dashboard": dashboardView(snap, prefs),
	})
}

func (h *DashboardHandler) SaveVote(c echo.Context) error {
	req := &models.VoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	userID, _ := middleware.UserID(c)
	v, err := h.votes.Save(c.Request().Context(), userID, req)
	if err != nil {
		return h.fail(c, "vote", err)
	}
	return xhttp.CreatedResponse(c, map[string]interface{}{"message": "vote saved", "vote": v})
}

func (h *DashboardHandler) ListVotes(c echo.Context) error {
	req := &models.VotesQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	userID, _ := middleware.UserID(c)
	votes, err := h.votes.List(c.Request().Context(), userID, req.Date, req.DashboardID)
	if err != nil {
		return h.fail(c, "list votes", err)
	}
	return xhttp.SuccessResponse(c, votes)
}

// fail maps domain errors to API errors. Unknown errors are logged and
// returned as 500.
func (h *DashboardHandler) fail(c echo.Context, op string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, models.ErrPreferencesMissing):
		appErr = xhttp.NotFoundError("Onboarding required").WithParam("needsOnboarding", true)
	case errors.Is(err, models.ErrPreferencesExist):
		appErr = xhttp.ConflictError("Onboarding already completed")
	case errors.Is(err, models.ErrNotReady):
		appErr = xhttp.ConflictError(models.ErrNotReady.Error())
	case errors.Is(err, models.ErrInvalidSection), errors.Is(err, models.ErrInvalidPreferences), errors.Is(err, models.ErrInvalidDate):
		appErr = xhttp.BadRequestError(err.Error())
	default:
		h.logger.Error(op+" failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.AppErrorResponse(c, appErr.WithError(err))
}

func dashboardView(snap *models.DailySnapshot, prefs *models.UserPreferences) map[string]interface{} {
	return map[string]interface{}{
		"dashboard_id": snap.ID,
		"day":          snap.Day,
		"preferences":  prefs,
		"sections":     snap.Sections,
		"updated_at":   snap.UpdatedAt,
	}
}
