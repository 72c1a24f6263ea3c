package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sumire/guildcloner/internal/domain"
	"github.com/sumire/guildcloner/internal/events"
	"github.com/sumire/guildcloner/internal/service"
)

const discordTokenHeader = "X-Discord-Token"

// CreateCloneRequest is the body of POST /clones.
type CreateCloneRequest struct {
	SourceGuildID string              `json:"source_guild_id" validate:"required,snowflake"`
	TargetGuildID string              `json:"target_guild_id" validate:"required,snowflake,nefield=SourceGuildID"`
	Token         string              `json:"token,omitempty"`
	Options       domain.CloneOptions `json:"options"`
}

// CloneHandler serves the clone job endpoints.
type CloneHandler struct {
	clones   *service.CloneService
	hub      *events.Hub
	upgrader websocket.Upgrader
}

// NewCloneHandler creates a new CloneHandler. Stream connections are accepted
// from allowedOrigin only, or from anywhere when it is empty.
func NewCloneHandler(clones *service.CloneService, hub *events.Hub, allowedOrigin string) *CloneHandler {
	return &CloneHandler{
		clones: clones,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Start launches a clone job. A second job on a target guild that already
// has one running is refused with 409 unless the service allows shared
// targets.
func (h *CloneHandler) Start(c echo.Context) error {
	var req CreateCloneRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	input := service.StartCloneInput{
		SourceGuildID: req.SourceGuildID,
		TargetGuildID: req.TargetGuildID,
		Token:         credential(c, req.Token),
		Options:       req.Options,
	}
	if userID, ok := GetUserID(c); ok {
		input.CreatedBy = &userID
	}

	summary, err := h.clones.Start(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusAccepted, summary)
}

// Stop requests cancellation of a job.
func (h *CloneHandler) Stop(c echo.Context) error {
	summary, err := h.clones.Stop(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusAccepted, summary)
}

// Get returns the state of a job.
func (h *CloneHandler) Get(c echo.Context) error {
	summary, err := h.clones.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, summary)
}

// List returns running jobs and recent history.
func (h *CloneHandler) List(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			return &domain.ValidationError{Field: "limit", Message: "must be between 0 and 100"}
		}
		limit = n
	}

	summaries, err := h.clones.List(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, summaries)
}

// Stream upgrades to a websocket and streams the job's events. A finished
// job whose events have been forgotten gets a single complete event built
// from its stored summary.
func (h *CloneHandler) Stream(c echo.Context) error {
	id := c.Param("id")
	summary, err := h.clones.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}
	if summary.Status.Terminal() && !h.hub.Retained(id) {
		events.WriteSummary(conn, summary)
		return nil
	}
	h.hub.Stream(c.Request().Context(), conn, id)
	return nil
}

// ValidateCredential checks the Discord credential in the X-Discord-Token
// header, or the configured default.
func (h *CloneHandler) ValidateCredential(c echo.Context) error {
	user, err := h.clones.ValidateCredential(c.Request().Context(), credential(c, ""))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]any{
		"valid":    true,
		"id":       user.ID,
		"username": user.Username,
	})
}

// credential picks the Discord token from the request body, then the
// X-Discord-Token header. An empty result selects the server default.
func credential(c echo.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.Request().Header.Get(discordTokenHeader)
}
