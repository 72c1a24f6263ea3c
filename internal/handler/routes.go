package handler

import "github.com/labstack/echo/v4"

// Routes groups the API handlers mounted under /api/v1.
type Routes struct {
	Auth   *AuthHandler
	Clones *CloneHandler
	// Protect guards every route that needs a signed-in user.
	Protect echo.MiddlewareFunc
}

// Register mounts the routes on e.
func (r Routes) Register(e *echo.Echo) {
	api := e.Group("/api/v1")

	auth := api.Group("/auth")
	auth.GET("/discord", r.Auth.DiscordRedirect)
	auth.GET("/discord/callback", r.Auth.DiscordCallback)
	auth.POST("/refresh", r.Auth.Refresh)

	protected := api.Group("", r.Protect)
	protected.GET("/auth/me", r.Auth.Me)

	protected.GET("/discord/validate", r.Clones.ValidateCredential)
	protected.POST("/clones", r.Clones.Start)
	protected.GET("/clones", r.Clones.List)
	protected.GET("/clones/:id", r.Clones.Get)
	protected.POST("/clones/:id/stop", r.Clones.Stop)
	protected.GET("/clones/:id/stream", r.Clones.Stream)
}
