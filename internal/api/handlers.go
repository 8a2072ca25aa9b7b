// Package api exposes the authentication workflows over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"authgate/internal/auth"
	"authgate/internal/models"
)

const maxBodyBytes = 1 << 20

// Authenticator is the subset of auth.Service the HTTP layer needs.
type Authenticator interface {
	Register(ctx context.Context, in auth.RegisterInput) (models.Summary, error)
	Login(ctx context.Context, in auth.LoginInput) (auth.LoginResult, error)
	ForgetPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in auth.ResetInput) error
	Logout(ctx context.Context) models.Summary
	CheckLogin(ctx context.Context, identity models.Summary) models.Summary
	Authenticate(ctx context.Context, token string) (models.Summary, error)
}

type messageBody struct {
	Message string `json:"message"`
}

type userBody struct {
	Message string         `json:"message,omitempty"`
	User    models.Summary `json:"user"`
	Token   string         `json:"token,omitempty"`
}

// Handlers binds the HTTP endpoints to an Authenticator.
type Handlers struct {
	svc Authenticator
}

// NewHandlers returns the endpoint handlers for svc.
func NewHandlers(svc Authenticator) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if !decode(w, r, &req) {
		return
	}
	user, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userBody{Message: auth.MsgRegistered, User: user})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginInput
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userBody{Message: auth.MsgLoggedIn, User: res.User, Token: res.Token})
}

func (h *Handlers) forgetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ForgetPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageBody{Message: auth.MsgResetMailSent})
}

func (h *Handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetInput
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageBody{Message: auth.MsgPasswordReset})
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, userBody{Message: auth.MsgLoggedOut, User: h.svc.Logout(r.Context())})
}

func (h *Handlers) checkLogin(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody{Message: auth.MsgNoToken})
		return
	}
	writeJSON(w, http.StatusCreated, userBody{User: h.svc.CheckLogin(r.Context(), id)})
}

// decode reads a JSON body into v. It writes a 400 and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "invalid request payload"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, auth.HTTPStatus(err), messageBody{Message: auth.PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
