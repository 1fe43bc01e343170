// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	eventsfeature "github.com/gatherhub/gatherhub/internal/app/features/events"
	groupsfeature "github.com/gatherhub/gatherhub/internal/app/features/groups"
	healthfeature "github.com/gatherhub/gatherhub/internal/app/features/health"
	loginfeature "github.com/gatherhub/gatherhub/internal/app/features/login"
	logoutfeature "github.com/gatherhub/gatherhub/internal/app/features/logout"
	membersfeature "github.com/gatherhub/gatherhub/internal/app/features/members"
	organizationsfeature "github.com/gatherhub/gatherhub/internal/app/features/organizations"
	participationfeature "github.com/gatherhub/gatherhub/internal/app/features/participation"
	"github.com/gatherhub/gatherhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and the Startup hook have completed. It creates the session manager,
// applies the session-loading middleware globally, and mounts one
// feature router per application area.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(
		appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication.
	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, sessionMgr, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Organization and group management.
	orgHandler := organizationsfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/organizations", organizationsfeature.Routes(orgHandler, sessionMgr))

	groupsHandler := groupsfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))

	// Accounts and group membership.
	membersHandler := membersfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/members", membersfeature.Routes(membersHandler, sessionMgr))

	// Events.
	eventsHandler := eventsfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/events", eventsfeature.Routes(eventsHandler, sessionMgr))

	// Registration, guest lists, and status lookups. The dispatcher
	// started in Startup receives every status-change notification.
	participationHandler := participationfeature.NewHandler(
		deps.MongoDatabase, dispatcher, logger, appCfg.CapacityStrict)
	r.Mount("/participation", participationfeature.Routes(participationHandler, sessionMgr))

	return r, nil
}
