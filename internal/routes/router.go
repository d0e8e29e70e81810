package routes

import (
	"todo-api/internal/controller"
	"todo-api/internal/middleware"
	"todo-api/internal/repository"
	"todo-api/internal/simulation"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

func Router(db *sqlx.DB, sim *simulation.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())

	users := repository.NewUserRepo(db)
	categories := repository.NewCategoryRepo(db)
	todos := repository.NewTodoRepo(db)
	stats := repository.NewStatsRepo(db)

	auth := controller.NewAuth(users)
	userCtrl := controller.NewUsers(users, todos)
	categoryCtrl := controller.NewCategories(categories, todos)
	todoCtrl := controller.NewTodos(todos, categories)
	statsCtrl := controller.NewStats(stats)
	testCtrl := controller.NewTesting(sim)

	// Health for load balancers and K8s probes
	router.GET("/health", controller.Health)
	router.GET("/ready", controller.Ready)

	api := router.Group("/api")

	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)

	// Optional auth: an attached identity refines defaults but is never
	// required to read.
	public := api.Group("")
	public.Use(middleware.AuthOptional(users))
	{
		public.GET("/users", userCtrl.List)
		public.GET("/users/:id", userCtrl.Get)
		public.GET("/users/:id/todos", userCtrl.Todos)
		public.GET("/todos", todoCtrl.List)
		public.GET("/todos/:id", todoCtrl.Get)
		public.GET("/stats/todos", statsCtrl.Todos)
		public.GET("/stats/users", statsCtrl.Users)
	}

	// Protected: JWT required
	protected := api.Group("")
	protected.Use(middleware.AuthRequired(users))
	{
		protected.GET("/auth/me", auth.Me)

		protected.PUT("/users/:id", userCtrl.Update)
		protected.DELETE("/users/:id", userCtrl.Delete)

		protected.GET("/categories", categoryCtrl.List)
		protected.POST("/categories", categoryCtrl.Create)
		protected.GET("/categories/:id", categoryCtrl.Get)
		protected.GET("/categories/:id/todos", categoryCtrl.Todos)
		protected.PUT("/categories/:id", categoryCtrl.Update)
		protected.DELETE("/categories/:id", categoryCtrl.Delete)

		protected.POST("/todos", todoCtrl.Create)
		protected.PUT("/todos/:id", todoCtrl.Update)
		protected.DELETE("/todos/:id", todoCtrl.Delete)
		protected.PATCH("/todos/:id/complete", todoCtrl.Complete)
		protected.PATCH("/todos/:id/incomplete", todoCtrl.Incomplete)

		protected.GET("/stats/overview", statsCtrl.Overview)
		protected.GET("/stats/categories", statsCtrl.Categories)
		protected.GET("/stats/trends", statsCtrl.Trends)
		protected.GET("/stats/productivity", statsCtrl.Productivity)
	}

	// Failure-injection harness. The simulation middleware wraps only the
	// endpoints whose originals carried it; config stays instant.
	testing := api.Group("/testing")
	{
		testing.GET("/config", testCtrl.GetConfig)
		testing.POST("/config", testCtrl.UpdateConfig)
		testing.POST("/auth/short-token", testCtrl.ShortToken)

		flaky := testing.Group("")
		flaky.Use(sim.NetworkIssues())
		{
			flaky.POST("/auth/flaky-login", testCtrl.FlakyLogin)
			flaky.GET("/auth/protected-resource", testCtrl.ProtectedResource)
			flaky.POST("/validation/user-profile", testCtrl.ValidateProfile)
		}
	}

	return router
}
