package tokens

type ITokenService interface {
	// Issue returns a short-lived token scoped to one session id. The SDK
	// presents it on proof submission and status watch.
	Issue(sessionID string) (string, error)

	// Verify validates the token and returns the session id it is scoped to.
	Verify(token string) (string, error)
}
