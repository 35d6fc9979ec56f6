package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hearthbank/family_backend/middlewares"
)

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func corsConfig(app *App) cors.Config {
	corsConfig := cors.DefaultConfig()
	if app.Settings.Production {
		corsConfig.AllowOrigins = app.Settings.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	return corsConfig
}

// rateLimit binds the limiter on first use; redis is only known once the app is ready.
func rateLimit(app *App) gin.HandlerFunc {
	var once sync.Once
	var limiter *middlewares.RateLimiter
	return func(c *gin.Context) {
		once.Do(func() {
			if app.Redis != nil && app.Redis.Client != nil {
				limiter = middlewares.NewRateLimiter(app.Redis, app.Settings.RateLimitMax, app.Settings.RateLimitWindow)
			}
		})
		if limiter == nil {
			c.Next()
			return
		}
		limiter.RateLimitMiddleware(c)
	}
}

// NewRouter wires middleware and routes. Requests other than /healthz get 503 until app.MarkReady.
func NewRouter(app *App) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationId())
	r.Use(middlewares.ReadinessGate(app.Ready))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// Production without CORS_ALLOWED_ORIGINS sends no CORS headers, so browsers deny all origins.
	if !app.Settings.Production || len(app.Settings.AllowedOrigins) > 0 {
		r.Use(cors.New(corsConfig(app)))
	}
	if app.Settings.RateLimitEnabled {
		r.Use(rateLimit(app))
	}
	r.Use(middlewares.CustomErrorLogger(app.Logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/groups", app.createGroup)
	api.POST("/auth/join", app.joinGroup)
	api.POST("/auth/login", app.login)
	api.POST("/auth/refresh", app.refresh)
	api.POST("/auth/logout", app.logout)

	authed := api.Group("", middlewares.AuthMiddleware())
	authed.PUT("/groups/:id", app.renameGroup)
	authed.GET("/groups/:id/members", app.listMembers)
	authed.POST("/groups/:id/payday", app.runPayday)
	authed.GET("/groups/:id/budgets", app.getBudgetStatus)
	authed.PUT("/groups/:id/budgets", app.setBudget)

	authed.GET("/users/:id", app.getUser)
	authed.PUT("/users/:id", app.updateUser)
	authed.POST("/users/:id/approve", app.approveUser)
	authed.PUT("/users/:id/settings", app.updateUserSettings)
	authed.GET("/users/:id/dashboard", app.getDashboard)
	authed.GET("/users/:id/transactions", app.listTransactions)
	authed.GET("/users/:id/transactions/export", app.exportTransactions)
	authed.GET("/users/:id/assignments", app.listAssignments)

	authed.POST("/transactions", app.recordTransaction)

	authed.GET("/goals", app.listGoals)
	authed.POST("/goals", app.createGoal)
	authed.POST("/goals/:id/deposit", app.depositToGoal)

	authed.GET("/tasks", app.listTasks)
	authed.POST("/tasks", app.createTask)
	authed.PUT("/tasks/:id", app.updateTask)
	authed.POST("/tasks/:id/status", app.updateTaskStatus)

	authed.GET("/shopping", app.listShopping)
	authed.POST("/shopping", app.addShoppingItem)
	authed.PUT("/shopping/:id", app.updateShoppingItem)
	authed.POST("/shopping/checkout", app.checkout)

	authed.GET("/loans", app.listLoans)
	authed.POST("/loans", app.requestLoan)
	authed.POST("/loans/:id/handle", app.handleLoan)
	authed.POST("/loans/:id/repay", app.repayLoan)

	authed.GET("/academy/bundles", app.listBundles)
	authed.GET("/academy/bundles/:id", app.getBundle)
	authed.POST("/academy/assignments", app.assignBundle)
	authed.POST("/academy/assignments/:id/submit", app.submitQuiz)

	r.NoRoute(notFound)
	return r
}
