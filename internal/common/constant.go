package common

// AuthorizationHeaderName is the HTTP header carrying the bearer credential.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the Authorization header.
const BearerPrefix = "Bearer "

// Roles known to the system.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Chat session states.
const (
	SessionActive = "active"
	SessionClosed = "closed"
)
