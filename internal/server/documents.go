package server

import (
	"fmt"
	"net/http"

	"donorbridge/internal/approval"
	"donorbridge/internal/session"
	"donorbridge/internal/utils"
)

var documentExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// handlePostDocument uploads a verification document for the signed-in donor
// or school and records its key. The object is removed again if the record
// cannot be updated.
func (s *Service) handlePostDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := session.IdentityFromContext(ctx)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Sign in to continue.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "Upload a single document no larger than the size limit.")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "A document file is required.")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext, allowed := documentExtensions[contentType]
	if !allowed {
		s.writeError(w, http.StatusUnprocessableEntity, "Documents must be PDF, JPEG or PNG.")
		return
	}

	key := fmt.Sprintf("verification/%s/%s%s", identity.ID, utils.NanoID(), ext)
	if err := s.documents.Upload(ctx, key, file, header.Size, contentType); err != nil {
		s.logger.WithError(err).WithField("user_id", identity.ID).Error("failed to upload verification document")
		s.writeError(w, http.StatusInternalServerError, "The document could not be stored. Please try again.")
		return
	}

	res := s.approval.AttachDocument(ctx, key)
	if !res.Success {
		if err := s.documents.Delete(ctx, key); err != nil {
			s.logger.WithError(err).WithField("storage_key", key).Error("failed to remove orphaned document")
		}
	}

	s.writeResult(w, res)
}

func (s *Service) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res := s.approval.DocumentKey(ctx, r.PathValue("id"))
	if !res.Success {
		s.writeResult(w, res)
		return
	}

	key, _ := res.Data.(string)
	url, err := s.documents.URL(ctx, key, documentURLTTL)
	if err != nil {
		s.logger.WithError(err).WithField("storage_key", key).Error("failed to presign document")
		s.writeError(w, http.StatusInternalServerError, "The document is unavailable right now.")
		return
	}

	s.writeResult(w, approval.Result{Success: true, Data: map[string]string{"url": url}})
}
