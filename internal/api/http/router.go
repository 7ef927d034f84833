package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortly/internal/models"
	"github.com/vadimbarashkov/shortly/internal/ratelimit"
)

type URLService interface {
	ShortenURL(ctx context.Context, rawURL string, expiryDays *int) (*models.URL, bool, error)
	ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error)
	GetURLInfo(ctx context.Context, shortCode string) (*models.URL, error)
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

func NewRouter(logger *httplog.Logger, urlSvc URLService, limiter *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", handleHome)
	r.Get("/health", handleHealth)
	r.Get("/{shortCode}", handleRedirect(urlSvc))

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		// Only the allocation path is rate limited; resolution stays open.
		r.With(
			middleware.AllowContentType("application/json"),
			rateLimitMiddleware(limiter),
		).Post("/shorten", handleShortenURL(urlSvc, validate))

		r.Get("/info/{shortCode}", handleURLInfo(urlSvc))
	})

	return r
}
