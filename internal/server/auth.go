package server

import (
	"errors"
	"net/http"
	"strings"

	"donorbridge/internal/approval"
	"donorbridge/internal/identity"
)

type loginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type confirmForm struct {
	Email string `json:"email" form:"email"`
	Code  string `json:"code" form:"code"`
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	var in loginForm
	if !s.decodeOrReject(w, r, &in) {
		return
	}

	token, err := s.auth.Authenticate(r.Context(), strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			s.logger.WithError(err).Error("failed to authenticate user")
		}
		s.writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	encryptedToken, err := s.cookie.Encode(cookieAccessTokenName, token.AccessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	// Set httpOnly, secure cookie with access token
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessTokenName,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   token.ExpiresIn,
		Path:     "/",
	})

	s.writeJSON(w, http.StatusOK, approval.Result{Success: true})
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessTokenName,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})

	s.writeJSON(w, http.StatusOK, approval.Result{Success: true})
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	var in approval.RegisterInput
	if !s.decodeOrReject(w, r, &in) {
		return
	}

	s.writeResult(w, s.approval.RegisterAccount(r.Context(), in))
}

func (s *Service) handlePostConfirm(w http.ResponseWriter, r *http.Request) {
	var in confirmForm
	if !s.decodeOrReject(w, r, &in) {
		return
	}

	err := s.auth.Confirm(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Code))
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCode) {
			s.writeError(w, http.StatusUnprocessableEntity, "Invalid confirmation code. Please check the code and try again.")
			return
		}
		s.logger.WithError(err).Error("failed to confirm user signup")
		s.writeError(w, http.StatusInternalServerError, "Unable to confirm account. Please try again.")
		return
	}

	s.writeJSON(w, http.StatusOK, approval.Result{Success: true})
}
