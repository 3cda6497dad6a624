package server

import (
	"errors"
	"mime/multipart"
	"net/http"
)

// uploadedFile returns the multipart "file" field. On failure it writes the
// response and returns false.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "upload exceeds 32MB")
			return nil, false
		}
		s.missingField(w, "file")
		return nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.missingField(w, "file")
		return nil, false
	}
	return file, true
}
