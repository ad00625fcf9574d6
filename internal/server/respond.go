package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"donorbridge/internal/approval"
)

const maxJSONBody = 1 << 20

func statusFor(kind approval.Kind) int {
	switch kind {
	case approval.KindUnauthenticated:
		return http.StatusUnauthorized
	case approval.KindUnauthorized:
		return http.StatusForbidden
	case approval.KindNotFound:
		return http.StatusNotFound
	case approval.KindValidation:
		return http.StatusUnprocessableEntity
	case approval.KindInvalidState:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Service) writeResult(w http.ResponseWriter, res approval.Result) {
	status := http.StatusOK
	if !res.Success {
		status = statusFor(res.Kind)
	}
	s.writeJSON(w, status, res)
}

func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, approval.Result{Error: message})
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to write response")
	}
}

// decodeRequest fills dst from a JSON body or from form values, depending on
// the request content type.
func decodeRequest(r *http.Request, dst any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("failed to decode json body: %w", err)
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}

	if err := decoder.Decode(dst, r.Form); err != nil {
		return fmt.Errorf("failed to decode form: %w", err)
	}

	return nil
}

// decodeOrReject decodes the request and answers 400 on failure.
func (s *Service) decodeOrReject(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeRequest(r, dst); err != nil {
		s.logger.WithError(err).WithField("path", r.URL.Path).Info("malformed request")
		s.writeError(w, http.StatusBadRequest, "The request body could not be read.")
		return false
	}
	return true
}
