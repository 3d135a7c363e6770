package common

// AuthorizationHeaderName is the HTTP header that carries the bearer token
// on authenticated requests.
const AuthorizationHeaderName = "Authorization"

// APIKeyHeaderName is the HTTP header used by machine clients that
// authenticate with an API key instead of a bearer token.
const APIKeyHeaderName = "X-Api-Key"
