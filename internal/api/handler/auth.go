package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/farmdesk/internal/api/response"
	"github.com/kiranshivaraju/farmdesk/internal/store"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// UserStore is the subset of the store the account handlers use.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, time.Time, error)
}

type registerRequest struct {
	Email         string          `json:"email"         validate:"required,email,max=254"`
	Password      string          `json:"password"      validate:"required,min=8,max=72"`
	Name          string          `json:"name"          validate:"required,max=100"`
	Location      models.Location `json:"location"`
	FarmingMethod string          `json:"farmingMethod" validate:"max=60"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// NewRegisterHandler returns an http.HandlerFunc for POST /api/v1/auth/register.
func NewRegisterHandler(users UserStore, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeJSON(w, r, &req) || !validateBody(w, req) {
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			internalError(w, r, err)
			return
		}

		now := time.Now().UTC()
		user := &models.User{
			ID:                   uuid.New(),
			Email:                strings.ToLower(strings.TrimSpace(req.Email)),
			Name:                 strings.TrimSpace(req.Name),
			PasswordHash:         string(hash),
			Location:             req.Location,
			FarmingMethod:        req.FarmingMethod,
			InitializationStatus: models.InitStatusPending,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := users.CreateUser(r.Context(), user); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "EMAIL_TAKEN", "An account with this email already exists", nil)
				return
			}
			internalError(w, r, err)
			return
		}

		token, exp, err := tokens.Issue(user.ID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		response.Created(w, sessionResponse{Token: token, ExpiresAt: exp, User: user})
	}
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/v1/auth/login.
func NewLoginHandler(users UserStore, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) || !validateBody(w, req) {
			return
		}

		user, err := users.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			internalError(w, r, err)
			return
		}
		if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect", nil)
			return
		}

		token, exp, err := tokens.Issue(user.ID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		response.JSON(w, sessionResponse{Token: token, ExpiresAt: exp, User: user})
	}
}

// NewMeHandler returns the caller's profile. Clients read
// initialization_status here to decide whether onboarding is finished.
func NewMeHandler(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		user, err := users.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
				return
			}
			internalError(w, r, err)
			return
		}
		response.JSON(w, user)
	}
}
