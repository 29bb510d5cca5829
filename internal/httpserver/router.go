package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const bodyLimit = "8M"

type Deps struct {
	DB      *gorm.DB
	Logger  *slog.Logger
	Auth    *service.AuthService
	Catalog *service.CatalogService
	URL     transport.URLFunc

	CORSOrigins []string
	StorageDir  string
	StorageURL  string
	FrontendDir string
}

// New builds the echo instance with the middleware chain and every route.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	logger := d.Logger
	if logger == nil {
		logger = logging.New("info")
	}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		loggingmw.RequestLogger(logger),
		middleware.CORSWithConfig(corsConfig(d.CORSOrigins)),
		middleware.BodyLimit(bodyLimit),
		authmw.Authenticate(d.Auth),
	)

	Register(e, d)
	return e
}

func corsConfig(origins []string) middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}
	return cfg
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			logging.FromContext(c.Request().Context()).Warn("readiness_failed", "status", 503, "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	if d.StorageDir != "" {
		e.Static(storagePrefix(d.StorageURL), d.StorageDir)
	}

	auth := &AuthHandler{Svc: d.Auth}
	products := &ProductHandler{Svc: d.Catalog, URL: d.URL}
	categories := &CategoryHandler{Svc: d.Catalog}
	admin := authmw.RequireRole(models.RoleAdmin)

	api := e.Group("/api")

	api.POST("/register", auth.Register)
	api.POST("/login", auth.Login)
	api.POST("/logout", auth.Logout, authmw.RequireAuth)
	api.GET("/user", auth.Me, authmw.RequireAuth)

	api.GET("/products", products.List)
	api.GET("/products/search", products.Search)
	api.GET("/products/:id", products.Get)
	api.POST("/products", products.Create, admin)
	api.PUT("/products/:id", products.Update, admin)
	api.POST("/products/:id", products.Update, admin)
	api.DELETE("/products/:id", products.Delete, admin)

	api.GET("/categories", categories.List)
	api.GET("/categories/:id", categories.Get)
	api.POST("/categories", categories.Create, admin)
	api.PUT("/categories/:id", categories.Update, admin)
	api.DELETE("/categories/:id", categories.Delete, admin)

	if d.FrontendDir != "" {
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  d.FrontendDir,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				p := c.Request().URL.Path
				return strings.HasPrefix(p, "/api") || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, storagePrefix(d.StorageURL))
			},
		}))
	}
}

// storagePrefix turns STORAGE_URL into a route prefix. Absolute URLs keep
// only their path.
func storagePrefix(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		rest := u[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			u = rest[j:]
		} else {
			u = "/"
		}
	}
	u = "/" + strings.Trim(u, "/")
	if u == "/" {
		return "/storage"
	}
	return u
}
