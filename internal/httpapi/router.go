package httpapi

import (
	"io"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	auth "github.com/apo9666/authcore"
)

// Config configures the router's CORS policy. The router trusts
// exactly one origin; it is set independently of the WebAuthn engine's
// request origin.
type Config struct {
	AllowedOrigin string
}

// NewRouter builds the HTTP surface over component, wiring every route
// in the illustrative external-interface table to exactly one
// component method.
func NewRouter(component auth.Component, cfg Config, logger log.Logger) http.Handler {
	h := &handler{component: component, logger: logger}
	r := mux.NewRouter()

	r.HandleFunc("/signup", writeJSON(logged(h.signup, "signup", logger))).Methods(http.MethodPost)
	r.HandleFunc("/login", writeJSON(logged(h.login, "login", logger))).Methods(http.MethodPost)
	r.HandleFunc("/mfa", writeJSON(logged(RequireBearerToken(h.getMFARegistration), "get_mfa_registration", logger))).Methods(http.MethodGet)
	r.HandleFunc("/mfa/registration/totp/start", writeJSON(logged(RequireBearerToken(h.startTOTPRegistration), "start_totp_registration", logger))).Methods(http.MethodPost)
	r.HandleFunc("/mfa/registration/totp/finish", writeJSON(logged(RequireBearerToken(h.finishTOTPRegistration), "finish_totp_registration", logger))).Methods(http.MethodPost)
	r.HandleFunc("/mfa/registration/webauthn/start", writeJSON(logged(RequireBearerToken(h.startPasskeyRegistration), "start_passkey_registration", logger))).Methods(http.MethodPost)
	r.HandleFunc("/mfa/registration/webauthn/finish", writeJSON(logged(RequireBearerToken(h.finishPasskeyRegistration), "finish_passkey_registration", logger))).Methods(http.MethodPost)
	r.HandleFunc("/mfa/verification/webauthn/start", writeJSON(logged(RequireBearerToken(h.startPasskeyAuthentication), "start_passkey_authentication", logger))).Methods(http.MethodPost)
	r.HandleFunc("/mfa/verification/webauthn/finish", writeJSON(logged(RequireBearerToken(h.finishPasskeyAuthentication), "finish_passkey_authentication", logger))).Methods(http.MethodPost)
	r.HandleFunc("/.well-known/jwks.json", writeRaw(h.jwks)).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{cfg.AllowedOrigin}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Authorization", "Accept", "Content-Type"}),
		handlers.MaxAge(3600),
	)

	return cors(r)
}

// logged wraps a JSONAPIHandler with error logging under source.
func logged(h JSONAPIHandler, source string, logger log.Logger) JSONAPIHandler {
	return ErrorLoggingMiddleware(h, source, logger)
}

type handler struct {
	component auth.Component
	logger    log.Logger
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, &auth.AuthError{Code: auth.ESerdeError, Err: err}
	}

	out, err := h.component.Signup(r.Context(), auth.SignupInput{
		Name:     req.Name,
		Username: req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return struct {
		UserID string `json:"user_id"`
	}{UserID: out.UserID.String()}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	MFAVerificationToken string   `json:"mfa_verification_token,omitempty"`
	AllowedMethods       []string `json:"allowed_methods,omitempty"`
	AccessToken          string   `json:"access_token,omitempty"`
	RefreshToken         string   `json:"refresh_token,omitempty"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, &auth.AuthError{Code: auth.ESerdeError, Err: err}
	}

	out, err := h.component.Login(r.Context(), auth.LoginInput{
		Username: req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return loginResponse{
		MFAVerificationToken: out.MFAVerificationToken,
		AllowedMethods:       out.AllowedMethods,
		AccessToken:          out.AccessToken,
		RefreshToken:         out.RefreshToken,
	}, nil
}

type mfaRegistrationResponse struct {
	MFARegistrationToken string   `json:"mfa_registration"`
	AllowedMethods       []string `json:"allowed_methods"`
	ExpiresIn            int      `json:"expires_in"`
}

func (h *handler) getMFARegistration(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	out, err := h.component.GetMFARegistration(r.Context(), auth.MFARegistrationInput{
		AccessToken: BearerToken(r),
	})
	if err != nil {
		return nil, err
	}

	return mfaRegistrationResponse{
		MFARegistrationToken: out.MFARegistrationToken,
		AllowedMethods:       out.AllowedMethods,
		ExpiresIn:            out.ExpiresIn,
	}, nil
}

func (h *handler) startTOTPRegistration(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	out, err := h.component.StartTOTPRegistration(r.Context(), auth.TOTPStartInput{
		MFARegistrationToken: BearerToken(r),
	})
	if err != nil {
		return nil, err
	}

	return struct {
		QRCodeURL string `json:"qr_code_url"`
	}{QRCodeURL: out.AuthURL}, nil
}

type totpFinishRequest struct {
	Code string `json:"code"`
}

func (h *handler) finishTOTPRegistration(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	var req totpFinishRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, &auth.AuthError{Code: auth.ESerdeError, Err: err}
	}

	out, err := h.component.FinishTOTPRegistration(r.Context(), auth.TOTPFinishInput{
		MFARegistrationToken: BearerToken(r),
		Code:                 req.Code,
	})
	if err != nil {
		return nil, err
	}

	return struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

func (h *handler) startPasskeyRegistration(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	out, err := h.component.StartPasskeyRegistration(r.Context(), auth.PasskeyRegistrationStartInput{
		MFARegistrationToken: BearerToken(r),
	})
	if err != nil {
		return nil, err
	}

	return jsonRaw(out.Challenge), nil
}

func (h *handler) finishPasskeyRegistration(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &auth.AuthError{Code: auth.ESerdeError, Err: err}
	}

	err = h.component.FinishPasskeyRegistration(r.Context(), auth.PasskeyRegistrationFinishInput{
		MFARegistrationToken:        BearerToken(r),
		RegisterPublicKeyCredential: body,
	})
	return nil, err
}

func (h *handler) startPasskeyAuthentication(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	out, err := h.component.StartPasskeyAuthentication(r.Context(), auth.PasskeyAuthenticationStartInput{
		MFAVerificationToken: BearerToken(r),
	})
	if err != nil {
		return nil, err
	}

	return jsonRaw(out.Challenge), nil
}

func (h *handler) finishPasskeyAuthentication(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &auth.AuthError{Code: auth.ESerdeError, Err: err}
	}

	err = h.component.FinishPasskeyAuthentication(r.Context(), auth.PasskeyAuthenticationFinishInput{
		MFAVerificationToken: BearerToken(r),
		PublicKeyCredential:  body,
	})
	return nil, err
}

func (h *handler) jwks(w http.ResponseWriter, r *http.Request) (string, error) {
	return h.component.JWKS(r.Context())
}

// jsonRaw marshals to itself: it is already a JSON document produced by
// the WebAuthn engine, and json.Marshal on a json.RawMessage-compatible
// string would double-encode it, so handlers return it through this
// type to signal "write verbatim" to the JSON encoder.
type jsonRaw string

// MarshalJSON satisfies json.Marshaler by emitting the string's bytes
// unchanged, instead of quoting them as a JSON string literal.
func (j jsonRaw) MarshalJSON() ([]byte, error) {
	if j == "" {
		return []byte("null"), nil
	}
	return []byte(j), nil
}
