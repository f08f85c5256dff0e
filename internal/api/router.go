package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"blockhunt/internal/auth"
	"blockhunt/internal/config"
	"blockhunt/internal/db"
	"blockhunt/internal/overlay"
	"blockhunt/internal/unlock"
	"blockhunt/internal/ws"
)

type Server struct {
	router     *chi.Mux
	config     *config.Config
	hub        *ws.Hub
	overlaySvc *overlay.Service
}

func NewServer(cfg *config.Config, database *db.DB) (*Server, error) {
	userRepo := db.NewUserRepository(database)
	refreshTokenRepo := db.NewRefreshTokenRepository(database)
	blockRepo := db.NewBlockRepository(database)
	qrCodeRepo := db.NewQRCodeRepository(database)
	collectionRepo := db.NewCollectionRepository(database)

	jwtService := auth.NewJWTService(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	hub := ws.NewHub()
	go hub.Run()

	// The overlay service and the hub are independent surfaces: the overlay
	// machine only knows a notify function, composition happens here.
	overlaySvc := overlay.NewService(func(userID string, ev overlay.Event) {
		hub.SendToUser(userID, ws.EventOverlayState, ws.OverlayStatePayload{
			State:   string(ev.State),
			BlockID: ev.BlockID,
		})
	})

	resolver := unlock.NewResolver(qrCodeRepo, collectionRepo)

	authHandler := NewAuthHandler(userRepo, refreshTokenRepo, jwtService)
	userHandler := NewUserHandler(userRepo, collectionRepo)
	blockHandler := NewBlockHandler(blockRepo, collectionRepo, hub)
	qrCodeHandler := NewQRCodeHandler(qrCodeRepo, blockRepo)
	scanHandler := NewScanHandler(resolver, blockRepo, overlaySvc, hub)
	serverInfoHandler := NewServerInfoHandler(cfg.Server.Name, cfg.Server.BaseURL)
	wsHandler := NewWebSocketHandler(hub, jwtService, userRepo)
	healthHandler := NewHealthHandler(database)

	authMiddleware := NewAuthMiddleware(jwtService)
	scanLimiter := NewRateLimiter(cfg.Scan.PerUserLimit, cfg.Scan.PerUserWindow)
	loginLimiter := NewRateLimiter(10, time.Minute)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(httprate.LimitByIP(300, time.Minute))
	r.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB
		r.Get("/server/info", serverInfoHandler.GetInfo)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.With(RateLimitByUserMiddleware(loginLimiter, time.Minute)).Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/me", userHandler.GetMe)
			r.Patch("/me", userHandler.UpdateMe)
			r.Get("/me/blocks", userHandler.GetMyBlocks)
			r.Delete("/me/blocks/{blockID}", userHandler.RemoveMyBlock)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAdmin)
				r.Get("/", userHandler.GetAll)
				r.Patch("/{userID}/role", userHandler.UpdateRole)
			})
		})

		r.Route("/blocks", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/", blockHandler.GetAll)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAdmin)
				r.Patch("/{blockID}/default", blockHandler.SetDefault)
			})
		})

		r.Route("/qr-codes", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Use(authMiddleware.RequireAdmin)
			r.Post("/", qrCodeHandler.Create)
			r.Get("/", qrCodeHandler.GetAll)
			r.Get("/{codeID}", qrCodeHandler.Get)
			r.Get("/{codeID}/payload", qrCodeHandler.GetPayload)
			r.Patch("/{codeID}/active", qrCodeHandler.SetActive)
			r.Delete("/{codeID}", qrCodeHandler.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.With(RateLimitByUserMiddleware(scanLimiter, cfg.Scan.PerUserWindow)).Post("/scan", scanHandler.Scan)
		})
	})

	wsUpgradeLimiter := NewRateLimiter(10, time.Minute)
	r.With(RateLimitByUserMiddleware(wsUpgradeLimiter, time.Minute)).Get("/ws", wsHandler.ServeWS)

	return &Server{
		router:     r,
		config:     cfg,
		hub:        hub,
		overlaySvc: overlaySvc,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Shutdown() {
	s.overlaySvc.Shutdown()
	s.hub.Shutdown()
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !allowed[strings.TrimRight(origin, "/")] && !isLoopbackOrigin(origin) {
				writeError(w, http.StatusForbidden, ErrCodeInvalidRequest, "Origin not allowed")
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isLoopbackOrigin allows local development clients regardless of config.
func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
