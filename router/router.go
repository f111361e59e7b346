package router

import (
	"log/slog"
	"net/http"
	"time"

	"bookkeeping/config"
	"bookkeeping/controllers"
	"bookkeeping/middleware"
	"bookkeeping/services"
	"bookkeeping/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Dependencies - внешние зависимости HTTP слоя
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Notifier services.Notifier
	Logger   *slog.Logger
	Metrics  *utils.Metrics
}

// SetupRouter собирает сервисы, контроллеры и маршруты
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	if deps.Metrics == nil {
		deps.Metrics = utils.GetMetrics()
	}

	validate := validator.New()

	// Сервисы
	users := services.NewUserService(deps.DB, validate, cfg.Auth.BcryptCost)
	sessions := services.NewSessionService(deps.DB, cfg.Auth.Secret, cfg.Auth.SessionTTL)
	accounts := services.NewAccountService(deps.DB, validate)
	categories := services.NewCategoryService(deps.DB, validate)
	ledger := services.NewLedgerService(deps.DB, validate, deps.Notifier, deps.Metrics, deps.Logger)
	planning := services.NewPlanningService(deps.DB, validate, deps.Notifier, deps.Metrics, deps.Logger)
	stats := services.NewStatisticService(deps.DB)
	export := services.NewExportService(deps.DB)

	// Контроллеры
	authController := controllers.NewAuthController(users, sessions, cfg.Auth)
	accountController := controllers.NewAccountController(accounts)
	transactionController := controllers.NewTransactionController(ledger, stats, export)
	planningController := controllers.NewPlanningController(planning, stats)
	categoryController := controllers.NewCategoryController(categories)

	r := gin.New()
	r.Use(
		middleware.Logger(deps.Logger, deps.Metrics),
		middleware.Recovery(deps.Logger),
		middleware.CORSMiddleware(cfg.Server.CORSOrigins),
	)

	// Публичные маршруты
	r.GET("/", authController.Index)
	r.GET(middleware.AuthErrorPath, authController.AuthError)
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Metrics.GetMetricsSnapshot())
	})

	api := r.Group("/api")
	loginLimiter := utils.NewRateLimiter(cfg.Auth.LoginRateLimit, time.Minute)
	api.POST("/user/login", middleware.RateLimit(loginLimiter), authController.SignIn)
	api.POST("/user/register", authController.SignUp)
	api.GET("/categories", categoryController.List)

	// Защищенные маршруты
	protected := api.Group("")
	protected.Use(middleware.SessionAuth(sessions, cfg.Auth.CookieName))

	protected.GET("/user/logout", authController.Logout)
	protected.POST("/user/logout", authController.Logout)
	protected.GET("/user/account", accountController.GetAccounts)
	protected.POST("/user/account", accountController.CreateAccount)

	protected.GET("/transaction/latest", transactionController.Latest)
	protected.GET("/transaction/filter", transactionController.Filter)
	protected.GET("/transaction/statistic", transactionController.Statistic)
	protected.GET("/transaction/export", transactionController.Export)
	protected.POST("/transaction/add", transactionController.Add)
	protected.POST("/transaction/:id/delete", transactionController.Delete)

	protected.GET("/planning/planned_transactions", planningController.List)
	protected.GET("/planning/statistic", planningController.Statistic)
	protected.POST("/planning/transaction/add", planningController.Add)
	protected.POST("/planning/transaction/:id/delete", planningController.Delete)

	protected.POST("/categories", categoryController.Create)
	protected.POST("/categories/:id/delete", categoryController.Delete)

	return r
}
