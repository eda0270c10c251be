package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-cloud-clipper/internal/config"
	"go-cloud-clipper/internal/handler"
	"go-cloud-clipper/internal/middleware"
	"go-cloud-clipper/internal/websocket"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Account  *handler.AccountHandler
	Folders  *handler.FolderHandler
	Uploads  *handler.UploadHandler
	Clips    *handler.ClipHandler
	Settings *handler.SettingsHandler
	License  *handler.LicenseHandler
}

func New(cfg *config.Config, h Handlers, hub *websocket.Hub, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Mounted outside the timeout middleware; the upgrade hijacks the
	// connection and lives for the session.
	r.Get("/ws", websocket.ServeWS(hub, cfg.CORSOrigins))

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/token", h.Auth.SetToken)
			auth.Get("/status", h.Auth.Status)
			auth.Post("/logout", h.Auth.Logout)
		})

		api.Get("/account", h.Account.Get)

		api.Route("/folders", func(folders chi.Router) {
			folders.Get("/", h.Folders.List)
			folders.Post("/", h.Folders.Create)
			folders.Post("/resolve", h.Folders.Resolve)
		})

		api.Route("/uploads", func(uploads chi.Router) {
			uploads.Get("/", h.Uploads.List)
			uploads.Post("/", h.Uploads.Create)
			uploads.Delete("/{id}", h.Uploads.Dismiss)
		})

		api.Route("/clips", func(clips chi.Router) {
			clips.Post("/image", h.Clips.Image)
			clips.Post("/file", h.Clips.File)
			clips.Post("/text", h.Clips.Text)
			clips.Post("/document", h.Clips.Document)
		})

		api.Route("/settings", func(s chi.Router) {
			s.Get("/", h.Settings.Get)
			s.Put("/", h.Settings.Update)
			s.Get("/rules", h.Settings.Rules)
			s.Put("/rules", h.Settings.UpdateRules)
			s.Post("/rules/match", h.Settings.Match)
		})

		api.Route("/license", func(lic chi.Router) {
			lic.Get("/", h.License.Get)
			lic.Post("/activate", h.License.Activate)
			lic.Post("/restore", h.License.Restore)
			lic.Delete("/", h.License.Deactivate)
		})
	})

	return r
}
