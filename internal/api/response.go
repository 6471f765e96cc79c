package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/mwantia/ideascube/pkg/backup"
	"github.com/mwantia/ideascube/pkg/db/store"
)

// Response is the envelope of every JSON answer
type Response struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Error    *APIError `json:"error,omitempty"`
	Metadata Metadata  `json:"metadata"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, response *Response) {
	response.Metadata.Timestamp = time.Now().UTC()

	data, err := json.Marshal(response)
	if err != nil {
		s.log.Error("Failed to marshal JSON response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.log.Warn("Failed to write JSON response: %v", err)
	}
}

func (s *Server) respondData(w http.ResponseWriter, status int, data any) {
	s.respondJSON(w, status, &Response{Status: "success", Data: data})
}

// respondError maps err to its status code and error code
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed: %v", err)
	} else {
		s.log.Debug("Request rejected (%s): %v", code, err)
	}

	s.respondJSON(w, status, &Response{
		Status: "error",
		Error: &APIError{
			Code:    code,
			Message: err.Error(),
		},
	})
}

func classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, backup.ErrInvalidArchiveName):
		return http.StatusBadRequest, "INVALID_ARCHIVE_NAME"
	case errors.Is(err, backup.ErrInvalidArchiveFormat):
		return http.StatusUnsupportedMediaType, "INVALID_ARCHIVE_FORMAT"
	case errors.Is(err, backup.ErrArchiveExists):
		return http.StatusConflict, "ARCHIVE_EXISTS"
	case errors.Is(err, backup.ErrArchiveNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, backup.ErrCorruptArchive):
		return http.StatusUnprocessableEntity, "CORRUPT_ARCHIVE"
	case errors.Is(err, backup.ErrUnsafeArchiveEntry):
		return http.StatusUnprocessableEntity, "UNSAFE_ARCHIVE_ENTRY"
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

var errBadRequest = errors.New("bad request")
