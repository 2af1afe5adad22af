package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/projenitor/projenitor-api/config"
	"github.com/projenitor/projenitor-api/database"
	"github.com/projenitor/projenitor-api/handlers"
	location_handlers "github.com/projenitor/projenitor-api/handlers/location"
	member_handlers "github.com/projenitor/projenitor-api/handlers/member"
	recycle_handlers "github.com/projenitor/projenitor-api/handlers/recycle"
	stats_handlers "github.com/projenitor/projenitor-api/handlers/stats"
	"github.com/projenitor/projenitor-api/services"
	"github.com/projenitor/projenitor-api/utils"
	"github.com/projenitor/projenitor-api/utils/cache"
	"github.com/projenitor/projenitor-api/utils/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Dependencies are the services behind the routes
type Dependencies struct {
	Locations  *services.LocationService
	Members    *services.MemberService
	RecycleBin *services.RecycleBinService
	Stats      *services.StatsService
}

// NewDependencies wires the services over one connection. A nil cache disables
// hierarchy caching.
func NewDependencies(db *gorm.DB, hierarchyCache *cache.RedisCache, cacheTTL time.Duration) *Dependencies {
	cascade := services.NewCascadeService(db)
	locations := services.NewLocationService(db, cascade)
	if hierarchyCache != nil {
		locations.WithCache(hierarchyCache, cacheTTL)
	}

	return &Dependencies{
		Locations:  locations,
		Members:    services.NewMemberService(db, cascade),
		RecycleBin: services.NewRecycleBinService(db, cascade, locations),
		Stats:      services.NewStatsService(db),
	}
}

func SetupRoutes(app *fiber.App, store database.Storage, env *config.EnvironmentVariable) {
	// Initialize Redis cache for hierarchy listings
	redisCache, err := cache.NewRedisCache(env.REDIS_URL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Hierarchy caching will be disabled.", err)
		redisCache = nil
	}

	deps := NewDependencies(store.GetDB(), redisCache, time.Duration(env.CACHE_TTL_SECONDS)*time.Second)

	// Apply security middleware
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    env.ALLOWED_ORIGINS,
		RateLimitRequests: env.RATE_LIMIT_REQUESTS,
		RateLimitWindow:   time.Duration(env.RATE_LIMIT_WINDOW_SECONDS) * time.Second,
		RateLimitKey:      env.RATE_LIMIT_KEY,
	})

	Mount(app, store, deps)
}

// Mount registers every route on app
func Mount(app *fiber.App, store database.Storage, deps *Dependencies) {
	locationHandler := location_handlers.NewLocationHandler(deps.Locations)
	memberHandler := member_handlers.NewMemberHandler(deps.Members)
	recycleHandler := recycle_handlers.NewRecycleBinHandler(deps.RecycleBin)
	statsHandler := stats_handlers.NewStatsHandler(deps.Stats)

	// Health check & metrics (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 group
	api := app.Group("/api/v1")

	// Location hierarchy
	api.Get("/hierarchy", locationHandler.GetHierarchy)         // Ordered names at a level under a parent
	api.Post("/locations", locationHandler.AddLocation)         // Add a node (districts land in the synthetic division)
	api.Put("/locations", locationHandler.RenameLocation)       // Parent-scoped rename
	api.Get("/locations/:level/:id", locationHandler.GetLocation)
	api.Delete("/locations/:level/:id", locationHandler.DeleteLocation) // Cascading soft delete

	// Members
	api.Get("/household", memberHandler.ListHousehold)
	members := api.Group("/members")
	members.Post("/", memberHandler.CreateMember)
	members.Get("/:id", memberHandler.GetMember)
	members.Put("/:id", memberHandler.UpdateMember)
	members.Delete("/:id", memberHandler.DeleteMember) // Soft deletes the whole subtree
	members.Get("/:id/relatives", memberHandler.GetRelatives)
	members.Get("/:id/descendants", memberHandler.ListDescendants)
	members.Post("/:id/shift-levels", memberHandler.ShiftLevels)
	api.Get("/relatives/:id", memberHandler.GetRelatives)
	api.Get("/relationship", memberHandler.CompareMembers)

	// Recycle bin
	api.Get("/recycle-bin", recycleHandler.ListDeleted)
	api.Put("/restore/:table/:id", recycleHandler.Restore)

	// Dashboard
	api.Get("/stats", statsHandler.GetDashboardStats)
}
