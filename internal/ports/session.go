package ports

import "golang.org/x/oauth2"

// Session is an authenticated identity consumed from the external auth
// provider. The engine never performs authentication itself.
type Session struct {
	// UserID identifies the user on the remote store.
	UserID string `json:"user_id"`

	// Token is the bearer credential for remote calls.
	Token *oauth2.Token `json:"token"`
}

// Valid reports whether the session can authenticate a remote call.
func (s Session) Valid() bool {
	return s.UserID != "" && s.Token != nil && s.Token.Valid()
}

// SessionSource supplies the current session.
type SessionSource interface {
	// Current returns the session and whether it is usable. Callers must
	// treat a false second value as the "unauthenticated" skip
	// condition, not an error.
	Current() (Session, bool)
}

// ConnectivitySource reports raw network reachability of the remote
// store, independent of realtime-channel health.
type ConnectivitySource interface {
	Online() bool
}
