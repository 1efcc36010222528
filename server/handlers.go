package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"musecrate/config"
	"musecrate/core/auth"
	"musecrate/logger"
	"musecrate/repository"
)

// sessionCookieName is the cookie the login handler sets.
const sessionCookieName = "session_token"

// SessionStore is the server-side session record behind the JWT.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (string, error)
	IsActive(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// ObjectStore stores and removes uploaded media objects.
type ObjectStore interface {
	Put(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, objectPath string) error
}

// Renderer renders an HTML page from a template name and context mapping.
type Renderer interface {
	Render(w http.ResponseWriter, name string, data map[string]interface{}) error
}

// APIHandler holds the handler dependencies.
type APIHandler struct {
	userRepo  repository.UserRepository
	albumRepo repository.AlbumRepository
	songRepo  repository.SongRepository
	sessions  SessionStore
	store     ObjectStore
	renderer  Renderer
	events    *EventHub
	cfg       *config.Config
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(
	userRepo repository.UserRepository,
	albumRepo repository.AlbumRepository,
	songRepo repository.SongRepository,
	sessions SessionStore,
	store ObjectStore,
	renderer Renderer,
	events *EventHub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:  userRepo,
		albumRepo: albumRepo,
		songRepo:  songRepo,
		sessions:  sessions,
		store:     store,
		renderer:  renderer,
		events:    events,
		cfg:       cfg,
	}
}

// renderPage renders a template, answering 500 when rendering fails.
func (h *APIHandler) renderPage(w http.ResponseWriter, name string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	if err := h.renderer.Render(w, name, data); err != nil {
		logger.Error("Failed to render template",
			logger.String("template", name),
			logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// tokenFromRequest pulls the session token from the cookie or the
// Authorization header.
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// currentClaims validates the request's token against the session store.
func (h *APIHandler) currentClaims(r *http.Request) (*auth.Claims, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, fmt.Errorf("no session token")
	}

	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		return nil, err
	}

	active, err := h.sessions.IsActive(r.Context(), claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, fmt.Errorf("session terminated")
	}
	return claims, nil
}

// AuthMiddleware gates a page handler on an authenticated session. An
// unauthenticated request gets the login page, as the navigation flow
// expects, rather than a bare 401.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.currentClaims(r)
		if err != nil {
			logger.Debug("Unauthenticated request",
				logger.String("path", r.URL.Path),
				logger.ErrorField(err))
			h.renderPage(w, "login.html", nil)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value("userID").(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context.
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value("username").(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}
