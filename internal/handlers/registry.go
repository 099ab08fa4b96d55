package handlers

import "github.com/gin-gonic/gin"

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler    *AuthHandler
	UserHandler    *UserHandler
	PayslipHandler *PayslipHandler
	CallHandler    *CallHandler
	DisplayHandler *DisplayHandler
	VideoHandler   *VideoHandler
	HealthHandler  *HealthHandler
}

// RouteRegistrar is implemented by every handler that owns a slice of the API.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup, g Guards)
}

// All returns the handlers in registration order.
func (a *AppHandlers) All() []RouteRegistrar {
	return []RouteRegistrar{
		a.AuthHandler,
		a.UserHandler,
		a.PayslipHandler,
		a.CallHandler,
		a.DisplayHandler,
		a.VideoHandler,
		a.HealthHandler,
	}
}
