package httpapi

import (
	"encoding/json"
	"net/http"

	auth "github.com/apo9666/authcore"
)

// errorResponse is the fixed shape of every non-2xx JSON response.
type errorResponse struct {
	Message string `json:"message"`
}

// statusForCode maps a closed AuthError discriminant to an HTTP status.
// Every code not explicitly listed is a 400; EUserNotFound and
// EInvalidUsernameOrPassword and the token-validation codes are 401,
// matching the illustrative table.
func statusForCode(code auth.ErrorCode) int {
	switch code {
	case auth.EInvalidUsernameOrPassword, auth.EUserNotFound, auth.ETokenValidationFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// writeJSON runs handler and writes its result: 200 with the returned
// body on success, or the status matching the returned AuthError's
// code with a generic {message}. handler's caller is responsible for
// logging; this only shapes the wire response.
func writeJSON(handler JSONAPIHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := handler(w, r)
		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			w.WriteHeader(statusForCode(auth.Code(err)))
			_ = json.NewEncoder(w).Encode(errorResponse{Message: "request could not be completed"})
			return
		}

		if body == nil {
			body = struct{}{}
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeRaw runs handler and writes its string result verbatim; the
// router uses it for the JWKS document, which is already JSON-encoded
// by its producer.
func writeRaw(handler func(w http.ResponseWriter, r *http.Request) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := handler(w, r)
		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			w.WriteHeader(statusForCode(auth.Code(err)))
			_ = json.NewEncoder(w).Encode(errorResponse{Message: "request could not be completed"})
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
