// Package httpapi exposes the auth component over HTTP: routing, bearer
// token extraction, CORS, and JSON request/response framing. Token
// validation itself happens inside the use cases, which is why this
// package only extracts the bearer string and leaves judging it to the
// component.
package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-kit/kit/log"
)

// JSONAPIHandler handles a request and returns a JSON-encodable
// response body or an error.
type JSONAPIHandler func(w http.ResponseWriter, r *http.Request) (interface{}, error)

type contextKey string

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "
const bearerTokenContextKey contextKey = "bearerToken"

// BearerToken returns the token placed in the request context by
// RequireBearerToken, or an empty string if none was.
func BearerToken(r *http.Request) string {
	token, _ := r.Context().Value(bearerTokenContextKey).(string)
	return token
}

// RequireBearerToken extracts the Authorization header, tolerating a
// "Bearer " prefix or a bare token, and makes it available to
// jsonHandler via BearerToken. It does not validate the token; the
// called use case does that and returns the appropriate AuthError if
// it is missing, malformed, expired, or of the wrong type.
func RequireBearerToken(jsonHandler JSONAPIHandler) JSONAPIHandler {
	return func(w http.ResponseWriter, r *http.Request) (interface{}, error) {
		token := strings.TrimPrefix(r.Header.Get(authorizationHeader), bearerPrefix)
		ctx := context.WithValue(r.Context(), bearerTokenContextKey, token)
		return jsonHandler(w, r.WithContext(ctx))
	}
}

// ErrorLoggingMiddleware logs any error a handler returns before it is
// written to the response.
func ErrorLoggingMiddleware(jsonHandler JSONAPIHandler, source string, logger log.Logger) JSONAPIHandler {
	return func(w http.ResponseWriter, r *http.Request) (interface{}, error) {
		response, err := jsonHandler(w, r)
		if err != nil {
			logger.Log(
				"source", source,
				"error", err.Error(),
			)
		}
		return response, err
	}
}
