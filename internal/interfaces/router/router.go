package router

import (
	"context"
	"net/http"

	"marketplace-backend/internal/app"
	"marketplace-backend/internal/config"
	authhandler "marketplace-backend/internal/interfaces/handlers/auth"
	healthhandler "marketplace-backend/internal/interfaces/handlers/health"
	lehandler "marketplace-backend/internal/interfaces/handlers/listingevents"
	listhandler "marketplace-backend/internal/interfaces/handlers/listings"
	msghandler "marketplace-backend/internal/interfaces/handlers/messages"
	notifyhandler "marketplace-backend/internal/interfaces/handlers/notifications"
	searchhandler "marketplace-backend/internal/interfaces/handlers/search"
	uploadhandler "marketplace-backend/internal/interfaces/handlers/uploads"
	"marketplace-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// bodyLimit leaves room for a 5 MB image sent as a base64 data URL.
const bodyLimit = 8 * 1024 * 1024

// CreateApp connects the backing services from cfg and mounts every route.
// Callers own the returned runtime and must Close it.
func CreateApp(cfg *config.Config) (*fiber.App, *app.Runtime, error) {
	infra, err := app.Connect(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}
	rt := app.Wire(cfg, infra)
	return New(rt), rt, nil
}

// New builds the Fiber app over an assembled runtime.
func New(rt *app.Runtime) *fiber.App {
	cfg := rt.Config
	rdb := rt.Infra.Rdb

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.NewErrorHandler(rdb),
		EnableTrustedProxyCheck: true,
		BodyLimit:               bodyLimit,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		FrontendOrigin: cfg.FrontendURL,
		AllowedSuffix:  cfg.FrontendURLEndsWith,
		DevPassword:    cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RequestMetrics(rt.Metrics))

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		Checker:        rt.Checker,
		Metrics:        rt.Metrics,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/metrics", hh.PrometheusMetrics())

	// The notification function is called server to server and never carries a session.
	nh := &notifyhandler.Handlers{Notifier: rt.FunctionNotifier}
	app.Post("/functions/v1/send-message-email", middleware.RequireFunctionKey(cfg.FunctionsKey), nh.SendMessageEmail)

	app.Use(middleware.SessionWithClient(rdb))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	ah := &authhandler.Handlers{Service: rt.Auth, Rdb: rdb, Config: sessionCfg, FrontendURL: cfg.FrontendURL}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/otp", ah.RequestOTP)
	authGroup.Post("/verify", ah.Verify)
	authGroup.Get("/callback", ah.Callback)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", middleware.RequireAuth(), ah.Logout)
	authGroup.Delete("/sessions", middleware.RequireAuth(), ah.LogoutAll)

	lh := &listhandler.Handlers{Service: rt.Listings, PageSize: cfg.PageSize}
	mh := &msghandler.Handlers{Service: rt.Messages, Registry: rt.Registry, Metrics: rt.Metrics}
	lg := app.Group("/api/v1/listings")
	lg.Get("/", lh.Browse)
	lg.Get("/categories", lh.Categories)
	lg.Get("/suggestions", lh.Suggestions)
	lg.Get("/mine", middleware.RequireAuth(), lh.Mine)
	lg.Get("/:id", lh.GetListing)
	lg.Post("/", middleware.RequireAuth(), lh.CreateListing)
	lg.Delete("/:id", middleware.RequireAuth(), lh.DeleteListing)
	lg.Post("/:id/messages", middleware.RequireAuth(), mh.Send)

	mg := app.Group("/api/v1/messages", middleware.RequireAuth())
	mg.Get("/", mh.Inbox)
	mg.Get("/unread-count", mh.UnreadCount)
	mg.Get("/unread/live", mh.UpgradeLive, mh.Live())
	mg.Patch("/:id/read", mh.MarkRead)

	sh := &searchhandler.Handlers{History: rt.History}
	sg := app.Group("/api/v1/search", middleware.RequireAuth())
	sg.Get("/history", sh.GetHistory)
	sg.Delete("/history", sh.ClearHistory)

	uph := &uploadhandler.Handlers{Service: rt.Uploads}
	app.Post("/api/v1/uploads/listing-image", middleware.RequireAuth(), uph.ListingImage)

	leh := &lehandler.Handlers{Service: rt.ListingEvents}
	app.Get("/api/v1/listing-events", middleware.RequireAuth(), leh.GetListingEvents)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
