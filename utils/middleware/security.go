package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const requestIDHeader = "X-Request-ID"

// Unlimited paths are probed by orchestrators and Prometheus
var unlimitedPaths = map[string]bool{
	"/ping":    true,
	"/metrics": true,
}

// SecurityConfig holds security middleware configuration
type SecurityConfig struct {
	AllowedOrigins    string // comma separated
	RateLimitRequests int    // 0 disables the limiter
	RateLimitWindow   time.Duration
	// RateLimitKey is "ip" or the name of a request header identifying the
	// client. Requests without that header fall back to their IP.
	RateLimitKey string
}

// SetupSecurity applies all security middleware
func SetupSecurity(app *fiber.App, config SecurityConfig) {
	// Request ID is echoed back so clients can quote it in bug reports
	app.Use(requestid.New(requestid.Config{
		Header: requestIDHeader,
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${locals:requestid}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// JSON API only; nothing here is meant to be framed
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "0",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "no-referrer",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(config.AllowedOrigins),
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept," + requestIDHeader,
		ExposeHeaders: requestIDHeader + ",X-RateLimit-Limit,X-RateLimit-Remaining,Retry-After",
		MaxAge:        86400,
	}))

	if config.RateLimitRequests > 0 {
		window := config.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		app.Use(limiter.New(limiter.Config{
			Max:          config.RateLimitRequests,
			Expiration:   window,
			KeyGenerator: LimiterKey(config.RateLimitKey),
			Next: func(c *fiber.Ctx) bool {
				return unlimitedPaths[c.Path()]
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"success": false,
					"error": fiber.Map{
						"code":    "RATE_LIMIT_EXCEEDED",
						"message": "Too many requests. Please try again later.",
					},
				})
			},
		}))
	}
}

// LimiterKey returns the limiter bucket function for a RATE_LIMIT_KEY setting
func LimiterKey(mode string) func(*fiber.Ctx) string {
	header := strings.TrimSpace(mode)
	if header == "" || strings.EqualFold(header, "ip") {
		return func(c *fiber.Ctx) string {
			return c.IP()
		}
	}
	return func(c *fiber.Ctx) string {
		if client := strings.TrimSpace(c.Get(header)); client != "" {
			return header + ":" + client
		}
		return c.IP()
	}
}

func normalizeOrigins(raw string) string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}
