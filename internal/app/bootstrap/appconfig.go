// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS,
// logging, CORS, body limits). AppConfig is everything specific to
// GatherHub: the MongoDB connection, session cookies, the notification
// dispatcher, and admission behavior.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: gatherhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionTTL    time.Duration // Session lifetime

	// Notification dispatcher configuration
	NotifyDelay     time.Duration // Settle delay before a status notification is sent
	NotifyQueueSize int           // Bounded queue size; overflow is dropped

	// Admission behavior
	CapacityStrict bool // Serialize capacity decisions per event within this process

	// Base URL for links in notifications
	BaseURL string // e.g., "https://gatherhub.example.com"
}
