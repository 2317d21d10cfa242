package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cuistot-app/backend/internal/api"
	"github.com/cuistot-app/backend/internal/middleware"
)

// SetupRouter configures the application routes
func SetupRouter(
	authHandler *api.AuthHandler,
	kitchenHandler *api.KitchenHandler,
	validator middleware.TokenValidator,
	limiter *middleware.RateLimiter,
	health gin.HandlerFunc,
) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())

	router.GET("/health", health)

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
	}

	// Kitchen routes serve guests and authenticated users alike; identity
	// is resolved per request.
	kitchen := v1.Group("/kitchen")
	kitchen.Use(middleware.OptionalAuth(validator))
	{
		kitchen.GET("", kitchenHandler.GetState)
		kitchen.PUT("/ingredients", kitchenHandler.SetIngredients)
		kitchen.PUT("/secret-ingredients", kitchenHandler.SetSecretIngredients)
		kitchen.PUT("/preferences", kitchenHandler.SetPreferences)
		kitchen.PUT("/recipes/:id", kitchenHandler.UpdateRecipe)
		kitchen.GET("/chats", kitchenHandler.ListChats)
		kitchen.POST("/chats/:id/select", kitchenHandler.SelectChat)
		kitchen.POST("/clear", kitchenHandler.Clear)

		// Generation endpoints burn inference tokens; throttle them.
		generation := kitchen.Group("")
		if limiter != nil {
			generation.Use(limiter.Middleware())
		}
		{
			generation.POST("/generate", kitchenHandler.Generate)
			generation.POST("/plan", kitchenHandler.GeneratePlan)
			generation.POST("/recipes/:id/expand", kitchenHandler.ExpandRecipe)
		}
	}

	return router
}
