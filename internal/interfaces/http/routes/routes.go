// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/inventory"
	"github.com/your-org/pharmacy-pos/internal/domain/product"
	"github.com/your-org/pharmacy-pos/internal/domain/reconciliation"
	"github.com/your-org/pharmacy-pos/internal/domain/sale"
	redisdb "github.com/your-org/pharmacy-pos/internal/infrastructure/database/redis"
	"github.com/your-org/pharmacy-pos/internal/interfaces/http/handlers"
	"github.com/your-org/pharmacy-pos/internal/interfaces/http/middleware"
	"github.com/your-org/pharmacy-pos/internal/pkg/metrics"
	"github.com/your-org/pharmacy-pos/internal/pkg/postcommit"
	"gorm.io/gorm"
)

// Dependencies are the shared resources the API is built from. Redis and Metrics may be nil.
type Dependencies struct {
	DB         *gorm.DB
	Redis      *redisdb.Client
	Config     *config.Config
	Logger     logrus.FieldLogger
	Metrics    *metrics.Metrics
	Dispatcher *postcommit.Dispatcher
}

// Services are the domain services behind the API
type Services struct {
	Products        *product.Service
	Sales           *sale.Service
	Reconciliations *reconciliation.Service
	Inventory       *inventory.Service
}

// NewServices wires the domain services
func NewServices(deps *Dependencies) *Services {
	var locker reconciliation.Locker
	if deps.Redis != nil && deps.Redis.GetLocker() != nil {
		locker = deps.Redis.GetLocker()
	}

	reconciliations := reconciliation.NewService(deps.DB, deps.Config, locker, deps.Metrics, deps.Logger)
	return &Services{
		Products:        product.NewService(deps.DB, deps.Config),
		Sales:           sale.NewService(deps.DB, deps.Config, reconciliations, deps.Dispatcher, deps.Metrics, deps.Logger),
		Reconciliations: reconciliations,
		Inventory:       inventory.NewService(deps.DB, deps.Config, deps.Metrics, deps.Logger),
	}
}

// SetupRoutes registers every API route on rg. Authentication must already be applied.
func SetupRoutes(rg *gin.RouterGroup, services *Services) {
	SetupSaleRoutes(rg, services)
	SetupReconciliationRoutes(rg, services)
	SetupInventoryRoutes(rg, services)
	SetupProductRoutes(rg, services)
}

// SetupSaleRoutes sets up checkout routes
func SetupSaleRoutes(rg *gin.RouterGroup, services *Services) {
	saleHandler := handlers.NewSaleHandler(services.Sales)

	sales := rg.Group("/sales")
	{
		sales.POST("", saleHandler.ProcessSale)
		sales.GET("/:id", saleHandler.GetSale)
	}
}

// SetupReconciliationRoutes sets up reconciliation case routes
func SetupReconciliationRoutes(rg *gin.RouterGroup, services *Services) {
	reconciliationHandler := handlers.NewReconciliationHandler(services.Reconciliations)

	reconciliations := rg.Group("/reconciliations")
	{
		reconciliations.GET("", reconciliationHandler.ListCases)
		reconciliations.GET("/stats", reconciliationHandler.GetStats)

		managed := reconciliations.Group("")
		managed.Use(middleware.RequireStockManager())
		{
			managed.PUT("/:id/resolve", reconciliationHandler.ResolveCase)
			managed.POST("/:id/adjust", reconciliationHandler.AdjustFromCase)
		}
	}
}

// SetupInventoryRoutes sets up stock management routes
func SetupInventoryRoutes(rg *gin.RouterGroup, services *Services) {
	inventoryHandler := handlers.NewInventoryHandler(services.Inventory)

	inv := rg.Group("/inventory")
	{
		inv.GET("/history", inventoryHandler.GetStockHistory)
		inv.GET("/low-stock", inventoryHandler.GetLowStock)
		inv.POST("/products/:id/adjust", middleware.RequireStockManager(), inventoryHandler.AdjustStock)
	}
}

// SetupProductRoutes sets up catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, services *Services) {
	productHandler := handlers.NewProductHandler(services.Products)

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)

		managed := products.Group("")
		managed.Use(middleware.RequireStockManager())
		{
			managed.POST("", productHandler.CreateProduct)
			managed.PUT("/:id/status", productHandler.UpdateProductStatus)
		}
	}
}
