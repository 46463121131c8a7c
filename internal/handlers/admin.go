package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/webmuhendisi/velopix/internal/platform/auth"
	"github.com/webmuhendisi/velopix/internal/platform/httpx"
	"github.com/webmuhendisi/velopix/internal/platform/storage"
)

const maxAdminBodySize = 16 * 1024

// uploadURLSigner is the slice of the storage client admin uploads need.
type uploadURLSigner interface {
	SignedURL(ctx context.Context, bucket, object string, opts storage.SignedURLOptions) (storage.SignedURLResult, error)
}

// AdminHandlers owns back-office authentication and groups the per-domain
// admin registrars behind the auth middleware.
type AdminHandlers struct {
	authority *auth.TokenAuthority
	verifier  auth.TokenVerifier
	signer    uploadURLSigner
	bucket    string

	registrars  []RouteRegistrar
	middlewares []func(http.Handler) http.Handler
}

// AdminHandlersDeps bundles constructor inputs for admin handlers.
type AdminHandlersDeps struct {
	Authority *auth.TokenAuthority
	Verifier  auth.TokenVerifier
	// Signer and AssetsBucket enable POST /admin/uploads; leave nil to disable.
	Signer       uploadURLSigner
	AssetsBucket string
	// Registrars attach per-domain admin routes inside the authenticated group.
	Registrars []RouteRegistrar
	// Middlewares are applied inside the authenticated group, after auth.
	Middlewares []func(http.Handler) http.Handler
}

// NewAdminHandlers constructs admin handlers.
func NewAdminHandlers(deps AdminHandlersDeps) (*AdminHandlers, error) {
	if deps.Authority == nil {
		return nil, fmt.Errorf("admin handlers: token authority is required")
	}
	verifier := deps.Verifier
	if verifier == nil {
		verifier = deps.Authority
	}
	return &AdminHandlers{
		authority:   deps.Authority,
		verifier:    verifier,
		signer:      deps.Signer,
		bucket:      deps.AssetsBucket,
		registrars:  deps.Registrars,
		middlewares: deps.Middlewares,
	}, nil
}

// Routes wires the /admin endpoints onto the provided router. Login stays
// outside the auth middleware; everything else requires a valid admin token.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/login", h.login)

	r.Group(func(protected chi.Router) {
		protected.Use(auth.RequireAdmin(h.verifier))
		for _, mw := range h.middlewares {
			if mw != nil {
				protected.Use(mw)
			}
		}
		if h.signer != nil && h.bucket != "" {
			protected.Post("/uploads", h.createUploadURL)
		}
		for _, registrar := range h.registrars {
			if registrar != nil {
				registrar(protected)
			}
		}
	})
}

func (h *AdminHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adminLoginRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	token, expiresAt, err := h.authority.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			httpx.WriteError(ctx, w, httpx.NewError("bad_credentials", "invalid username or password", http.StatusUnauthorized))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("login_failed", "login failed", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, adminLoginResponse{
		Token:     token,
		ExpiresAt: formatTime(expiresAt),
	})
}

// createUploadURL hands the back office a short-lived signed PUT URL so media
// uploads go straight to the bucket without passing through the API.
func (h *AdminHandlers) createUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adminUploadRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	object, err := storage.BuildObjectPath(storage.AssetPurpose(req.Purpose), storage.PathParams{
		EntityID: req.EntityID,
		FileName: req.FileName,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.signer.SignedURL(ctx, h.bucket, object, storage.SignedURLOptions{
		Upload: &storage.UploadOptions{
			Method:              http.MethodPut,
			ContentType:         req.ContentType,
			AllowedContentTypes: []string{"image/png", "image/jpeg", "image/webp", "image/gif"},
			MaxSize:             10 << 20,
		},
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("upload_url_failed", err.Error(), http.StatusBadRequest))
		return
	}

	writeJSONResponse(w, http.StatusCreated, adminUploadResponse{
		URL:       result.URL,
		Method:    result.Method,
		Object:    object,
		ExpiresAt: formatTime(result.ExpiresAt),
		Headers:   result.Headers,
	})
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type adminUploadRequest struct {
	Purpose     string `json:"purpose"`
	EntityID    string `json:"entity_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type adminUploadResponse struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Object    string            `json:"object"`
	ExpiresAt string            `json:"expires_at"`
	Headers   map[string]string `json:"headers,omitempty"`
}
