package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortly/internal/database"
	"github.com/vadimbarashkov/shortly/internal/models"
	"github.com/vadimbarashkov/shortly/internal/service"
	"github.com/vadimbarashkov/shortly/pkg/response"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

type shortenRequest struct {
	URL        string `json:"url" validate:"required"`
	ExpiryDays *int   `json:"expiry_days" validate:"omitempty,min=1,max=365"`
}

type shortenResponse struct {
	ShortCode string     `json:"short_code"`
	ShortURL  string     `json:"short_url"`
	TargetURL string     `json:"target_url"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type urlInfoResponse struct {
	ShortCode    string     `json:"short_code"`
	TargetURL    string     `json:"target_url"`
	ClickCount   int64      `json:"click_count"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at"`
	LastAccessed *time.Time `json:"last_accessed"`
}

func toURLInfoResponse(url *models.URL) urlInfoResponse {
	return urlInfoResponse{
		ShortCode:    url.ShortCode,
		TargetURL:    url.TargetURL,
		ClickCount:   url.ClickCount,
		CreatedAt:    url.CreatedAt,
		ExpiresAt:    url.ExpiresAt,
		LastAccessed: url.LastAccessed,
	}
}

// baseURL reconstructs the externally visible origin of the request so the
// short link in the response points back at this deployment.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrURLRequired):
		return "URL is required."
	case errors.Is(err, service.ErrUnsupportedScheme):
		return "Only http and https URLs are allowed."
	case errors.Is(err, service.ErrInvalidHost):
		return "The URL host is invalid."
	case errors.Is(err, service.ErrExpiryOutOfRange):
		return "Expiry must be between 1 and 365 days."
	default:
		return "The request contains invalid values."
	}
}

func handleShortenURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, reused, err := svc.ShortenURL(r.Context(), req.URL, req.ExpiryDays)
		if err != nil {
			if service.IsValidationError(err) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse("Validation Error", validationMessage(err)))
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := shortenResponse{
			ShortCode: url.ShortCode,
			ShortURL:  fmt.Sprintf("%s/%s", baseURL(r), url.ShortCode),
			TargetURL: url.TargetURL,
			ExpiresAt: url.ExpiresAt,
		}

		status := http.StatusCreated
		if reused {
			status = http.StatusOK
		}

		render.Status(r, status)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}
			if errors.Is(err, service.ErrShortCodeExpired) {
				render.Status(r, http.StatusGone)
				render.JSON(w, r, response.URLExpiredResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		http.Redirect(w, r, url.TargetURL, http.StatusFound)
	}
}

func handleURLInfo(svc URLService) http.HandlerFunc {
	const op = "api.http.handleURLInfo"
	const successMsg = "The URL information retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.GetURLInfo(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLInfoResponse(url)))
	}
}
