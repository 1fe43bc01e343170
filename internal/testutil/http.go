// internal/testutil/http.go
package testutil

import (
	"context"
	"net/http"

	"github.com/gatherhub/gatherhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Repeated calls accumulate parameters on the same route context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AdminSession returns a signed-in admin session user.
func AdminSession() *auth.SessionUser {
	return &auth.SessionUser{
		ID:      primitive.NewObjectID().Hex(),
		Name:    "Test Admin",
		LoginID: "admin@test.com",
		Role:    "admin",
	}
}

// LeaderSession returns a signed-in leader session user.
func LeaderSession() *auth.SessionUser {
	return &auth.SessionUser{
		ID:      primitive.NewObjectID().Hex(),
		Name:    "Test Leader",
		LoginID: "leader@test.com",
		Role:    "leader",
	}
}

// MemberSession returns a signed-in member session user.
func MemberSession() *auth.SessionUser {
	return &auth.SessionUser{
		ID:      primitive.NewObjectID().Hex(),
		Name:    "Test Member",
		LoginID: "member@test.com",
		Role:    "member",
	}
}

// SignedInRequest attaches the session user to the request the way the
// auth middleware would.
func SignedInRequest(r *http.Request, u *auth.SessionUser) *http.Request {
	return auth.WithTestUser(r, u)
}
