package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/auth"
	"github.com/erazemk/storeroom/internal/config"
	"github.com/erazemk/storeroom/internal/logger"
	"github.com/erazemk/storeroom/internal/model"
	"github.com/erazemk/storeroom/internal/stock"
	"github.com/erazemk/storeroom/internal/store"
)

// Deps are the collaborators the router wires into its handlers.
type Deps struct {
	DB          *sql.DB
	Engine      *stock.Engine
	Tokens      *auth.Manager
	Log         *zap.Logger
	Auth        config.AuthConfig
	Idempotency config.IdempotencyConfig
	Now         func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	tm := store.NewTxManager(d.DB)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(logger.GinMiddleware(d.Log))
	r.Use(recovery(d.Log))
	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, d.Log, store.ErrNotFound)
	})

	authHandler := &AuthHandler{
		DB:      d.DB,
		Tokens:  d.Tokens,
		Limiter: newLoginLimiter(d.Auth.LoginRateLimit, d.Auth.LoginBurst),
		Log:     d.Log,
	}
	usersHandler := &UsersHandler{DB: d.DB, TM: tm, Log: d.Log}
	categoriesHandler := &CategoriesHandler{DB: d.DB, Log: d.Log}
	itemsHandler := &ItemsHandler{DB: d.DB, Engine: d.Engine, Log: d.Log}
	stockHandler := &StockHandler{Engine: d.Engine, Log: d.Log}
	transactionsHandler := &TransactionsHandler{DB: d.DB, Log: d.Log, Now: d.Now}
	reportsHandler := &ReportsHandler{DB: d.DB, Log: d.Log, Now: d.Now}

	requireAdmin := RequireRole(model.RoleAdmin, d.Log)
	requireManager := RequireRole(model.RoleManager, d.Log)

	api := r.Group("/api")

	// Public.
	api.GET("/health", health(d.DB, d.Log))
	api.POST("/auth/login", authHandler.Login)

	// Authenticated routes.
	protected := api.Group("")
	protected.Use(AuthMiddleware(d.Tokens, d.DB, d.Log))
	protected.Use(IdempotencyMiddleware(newIdempotencyStore(d.Idempotency.Size, d.Idempotency.TTL), d.Log))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.PUT("/auth/password", authHandler.ChangePassword)

	// Users (admin only).
	users := protected.Group("/users", requireAdmin)
	users.GET("", usersHandler.List)
	users.POST("", usersHandler.Create)
	users.GET("/:id", usersHandler.Get)
	users.PUT("/:id", usersHandler.Update)
	users.DELETE("/:id", usersHandler.Delete)
	users.PUT("/:id/password", usersHandler.ResetPassword)

	// Categories (read: all authenticated, write: manager+).
	protected.GET("/categories", categoriesHandler.List)
	protected.POST("/categories", requireManager, categoriesHandler.Create)
	protected.PUT("/categories/:id", requireManager, categoriesHandler.Rename)
	protected.DELETE("/categories/:id", requireManager, categoriesHandler.Delete)

	// Items (read: all authenticated, write: manager+).
	protected.GET("/items", itemsHandler.List)
	protected.POST("/items", requireManager, itemsHandler.Create)
	protected.GET("/items/:id", itemsHandler.Get)
	protected.PUT("/items/:id", requireManager, itemsHandler.Update)
	protected.DELETE("/items/:id", requireManager, itemsHandler.Delete)
	protected.GET("/items/:id/image", itemsHandler.GetImage)
	protected.PUT("/items/:id/image", requireManager, itemsHandler.UploadImage)
	protected.GET("/items/:id/history", itemsHandler.History)

	// Stock movements. Receiving is manager+; issuing, lending and returns are open to clerks.
	protected.POST("/items/:id/add-stock", requireManager, stockHandler.AddStock)
	protected.POST("/items/:id/issue", stockHandler.Issue)
	protected.POST("/items/:id/borrow", stockHandler.Borrow)
	protected.POST("/transactions/return", stockHandler.Return)

	// Ledger.
	protected.GET("/transactions", transactionsHandler.List)
	protected.GET("/transactions/active-borrows", transactionsHandler.ActiveBorrows)

	// Reports.
	protected.GET("/reports/summary", reportsHandler.Summary)
	protected.GET("/reports/items.csv", reportsHandler.ItemsCSV)

	return r
}

func recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, StandardError{Code: "InternalError", Message: "internal error"})
	})
}

func health(db *sql.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			log.Error("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
