package gateway

// ReauthError is returned by the ChatGPT session transport when the stored
// session token is missing, malformed, or expired. Unlike httpclient's
// TransportError, it is never retryable — the caller needs a human to run
// the login flow again.
type ReauthError struct {
	Reason string
}

func (e *ReauthError) Error() string {
	return "fabrik: ChatGPT session needs re-authentication (" + e.Reason + "); run `fabrik login` to refresh your session"
}
