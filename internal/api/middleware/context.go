package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey     contextKey = "user_id"
	userHolderKey contextKey = "user_holder"
)

func SetUserID(ctx context.Context, id uuid.UUID) context.Context {
	if h, ok := ctx.Value(userHolderKey).(*userHolder); ok {
		h.id = id.String()
	}
	return context.WithValue(ctx, userIDKey, id)
}

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, userHolderKey, h)
}

func GetUserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return id, ok
}
