// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/viksund/membership/internal/handler"
	"github.com/viksund/membership/internal/middleware"
	"github.com/viksund/membership/internal/model"
)

// RegisterRoutes registers routes that require no authentication.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Signup,
// login, refresh and logout live under /v1/auth and need no token;
// /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints.
// Guests can see published events and their live seat counts without
// logging in.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler) {
	e.GET("/v1/events", ev.List)
	e.GET("/v1/events/:id", ev.Get)
}

// RegisterMember registers the authenticated member endpoints.  The
// rate limiter guards the mutating registration routes; listing one's
// own registrations is unmetered.
func RegisterMember(e *echo.Echo, r *handler.RegistrationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleMember, model.RoleAdmin))

	g.GET("/my-registrations", r.MyRegistrations)

	reg := g.Group("/events/:id/registration")
	if limiter != nil {
		reg.Use(limiter)
	}
	reg.POST("", r.Register)
	reg.DELETE("", r.Cancel)
	reg.POST("/guests", r.AddGuest)
	reg.DELETE("/guests", r.RemoveGuest)
}

// RegisterAdmin registers the event management endpoints, restricted
// to the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.GET("/events", a.ListEvents)
	g.POST("/events", a.CreateEvent)
	g.PUT("/events/:id", a.UpdateEvent)
	g.GET("/events/:id/registrations", a.EventRegistrations)
	g.POST("/events/:id/lottery", a.RunLottery)
}
