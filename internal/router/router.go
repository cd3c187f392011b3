package router

import (
	"net/http"

	"github.com/yieldpro/backend/internal/account"
	"github.com/yieldpro/backend/internal/admin"
	"github.com/yieldpro/backend/internal/auth"
	"github.com/yieldpro/backend/internal/middleware"
)

// New returns an http.Handler that serves the API under /api/v1. Auth
// endpoints are rate limited; everything else requires a bearer token and
// the admin surface additionally requires the admin flag.
func New(authHandler *auth.Handler, accountHandler *account.Handler, adminHandler *admin.Handler, validator middleware.TokenValidator, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	authed := middleware.BearerAuth(validator)
	user := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireAdmin(h))
	}

	mux.Handle(base+"/auth/register", limiter.Middleware(methodPOST(authHandler.Register)))
	mux.Handle(base+"/auth/login", limiter.Middleware(methodPOST(authHandler.Login)))
	mux.Handle(base+"/auth/forgot-password", limiter.Middleware(methodPOST(authHandler.ForgotPassword)))

	mux.Handle(base+"/account/me", user(methodGET(accountHandler.Me)))
	mux.Handle(base+"/account/settings", user(methodPATCH(accountHandler.UpdateSettings)))
	mux.Handle(base+"/transactions", user(methodGET(accountHandler.Transactions)))
	mux.Handle(base+"/claims", user(methodPOST(accountHandler.ClaimDailyTask)))
	mux.Handle(base+"/deposits", user(methodPOST(accountHandler.RequestDeposit)))
	mux.Handle(base+"/withdrawals", user(methodPOST(accountHandler.RequestWithdrawal)))
	mux.Handle(base+"/upgrades", user(methodPOST(accountHandler.RequestUpgrade)))
	mux.Handle(base+"/packages", user(methodGET(accountHandler.Packages)))
	mux.Handle(base+"/insight", user(methodGET(accountHandler.Insight)))

	mux.Handle(base+"/admin/users", adminOnly(methodGET(adminHandler.Users)))
	mux.Handle(base+"/admin/queues", adminOnly(methodGET(adminHandler.PendingQueues)))
	mux.Handle(base+"/admin/approve", adminOnly(methodPOST(adminHandler.Approve)))
	mux.Handle(base+"/admin/reject", adminOnly(methodPOST(adminHandler.Reject)))
	mux.Handle(base+"/admin/password-resets", adminOnly(methodGET(adminHandler.PasswordResets)))
	mux.Handle(base+"/admin/password-resets/complete", adminOnly(methodPOST(adminHandler.CompletePasswordReset)))

	return mux
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPOST(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPATCH(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
