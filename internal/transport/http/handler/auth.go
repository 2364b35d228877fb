package handler

import (
	"errors"
	"net/http"

	"github.com/quizhub/quiz-api/internal/application/auth"
	"github.com/quizhub/quiz-api/internal/domain"
)

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) SendEmailVerification(w http.ResponseWriter, r *http.Request) {
	var req domain.SendCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SendEmailVerification(r.Context(), req.Email); err != nil {
		writeVerificationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VerificationEnvelope{Success: true, Message: "verification code sent"})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyEmailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req); err != nil {
		writeVerificationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VerificationEnvelope{Success: true, Message: "email verified"})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RegisteredUser{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginEnvelope{
		ID:        res.User.ID,
		Email:     res.User.Email,
		Username:  res.User.Username,
		StudentID: res.User.StudentID,
		Role:      res.User.Role,
		Token:     res.Token,
	})
}

func (h *AuthHandler) SendPasswordResetCode(w http.ResponseWriter, r *http.Request) {
	var req domain.SendCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SendPasswordResetCode(r.Context(), req.Email); err != nil {
		writeVerificationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VerificationEnvelope{Success: true, Message: "password reset code sent"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		writeVerificationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VerificationEnvelope{Success: true, Message: "password updated"})
}

// writeVerificationError answers in the {success,message} shape the code
// endpoints use.
func writeVerificationError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		msg = domain.ErrInvalidCode.Error()
	case status == http.StatusInternalServerError:
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, VerificationEnvelope{Success: false, Message: msg})
}
