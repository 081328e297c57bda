package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/internal/alias"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/service"
	"github.com/vadimbarashkov/link-shortener/pkg/response"
)

const maxSimpleBodySize = 8 << 10

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type urlService interface {
	ShortenURL(ctx context.Context, params service.ShortenParams) (*service.ShortenResult, error)
	ShortenSimple(ctx context.Context, originalURL string) (string, error)
	ResolveShortCode(ctx context.Context, shortCode string) (string, error)
	ShortURL(shortCode string) string
}

type urlHandler struct {
	svc      urlService
	validate *validator.Validate
}

func newURLHandler(svc urlService, validate *validator.Validate) *urlHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &urlHandler{
		svc:      svc,
		validate: validate,
	}
}

func (h *urlHandler) createURL(w http.ResponseWriter, r *http.Request) {
	var req createURLRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.EmptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.InvalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationErrorResponse(err))
		return
	}

	res, err := h.svc.ShortenURL(r.Context(), req.toParams())
	if err != nil {
		renderCreateError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toCreateURLResponse(res))
}

// createURLSimple accepts the original URL as the raw request body and
// responds with the bare short code.
//
// Deprecated: use createURL.
func (h *urlHandler) createURLSimple(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSimpleBodySize))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.InvalidRequestBodyResponse)
		return
	}

	shortCode, err := h.svc.ShortenSimple(r.Context(), string(body))
	if err != nil {
		renderCreateError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.PlainText(w, r, shortCode)
}

func (h *urlHandler) resolveShortCode(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	originalURL, err := h.svc.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		renderResolveError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resolveURLResponse{
		ShortCode:   shortCode,
		ShortURL:    h.svc.ShortURL(shortCode),
		OriginalURL: originalURL,
	})
}

func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	originalURL, err := h.svc.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		renderResolveError(w, r, err)
		return
	}

	http.Redirect(w, r, originalURL, http.StatusFound)
}

func renderResolveError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, database.ErrURLNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.URLNotFoundResponse)
		return
	}

	httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, response.ServerErrorResponse)
}

func renderCreateError(w http.ResponseWriter, r *http.Request, err error) {
	var aliasErr *alias.Error

	switch {
	case errors.As(err, &aliasErr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorResponse(aliasErr.Message()))
	case errors.Is(err, service.ErrAliasConflict):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.ErrorResponse("alias already exists"))
	case errors.Is(err, service.ErrInvalidDateFormat):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorResponse(
			fmt.Sprintf("invalid expiration date format, use %s or RFC 3339", service.ExpirationLayout),
		))
	case errors.Is(err, service.ErrInvalidRequest):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorResponse("original url cannot be empty"))
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
	}
}
