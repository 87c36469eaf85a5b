package app

import "net/http"

type sessionKey string

const (
	SessionKeyGuest = sessionKey("guest")
)

func (s sessionKey) String() string {
	return string(s)
}

// holderID returns the caller's seat hold identity. It is the scs session
// token, which ensureGuestSession guarantees to exist.
func (app *application) holderID(r *http.Request) string {
	return app.sessionManager.Token(r.Context())
}
