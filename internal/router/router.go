package router

import (
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/handlers"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/middleware"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/service"

	"github.com/gin-contrib/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Auth     *service.AuthService
	Orders   service.OrderService
	Products *service.ProductService
	Tokens   service.TokenProvider
	Log      *zap.Logger
}

func Router(d Deps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	authHandler := handlers.NewAuthHandler(d.Auth, d.Log)
	orderHandler := handlers.NewOrderHandler(d.Orders, d.Products, d.Log)
	productHandler := handlers.NewProductHandler(d.Products, d.Log)

	authRequired := middleware.AuthRequired(d.Tokens, d.Log)

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/sign-up/password", authHandler.SignUpPassword)
			auth.POST("/sign-in/password", authHandler.SignInPassword)
			auth.POST("/sign-up/mobile/step1", authHandler.SignUpMobileStep1)
			auth.POST("/sign-up/otp/step2", authHandler.SignUpOTPStep2)
			auth.POST("/sign-in/mobile/step1", authHandler.SignInMobileStep1)
			auth.POST("/sign-in/otp/step2", authHandler.SignInOTPStep2)
			auth.POST("/refresh-jwt", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
		}

		users := v1.Group("/users", authRequired)
		{
			users.GET("/i", authHandler.Me)
		}

		orders := v1.Group("/orders", authRequired)
		{
			orders.GET("", orderHandler.List)
			orders.POST("", orderHandler.Create)
			orders.GET("/:id", orderHandler.Get)
			orders.PUT("/:id", orderHandler.Update)
			orders.DELETE("/:id", orderHandler.Delete)
		}

		products := v1.Group("/products", authRequired)
		{
			products.GET("", productHandler.List)
			products.POST("", productHandler.Create)
			products.PATCH("/:id", productHandler.Update)
			products.DELETE("/:id", productHandler.Delete)
		}
	}

	return r
}
