package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mwantia/ideascube/pkg/backup"
)

const uploadField = "upload"

var contentTypes = map[backup.Format]string{
	backup.FormatZip:   "application/zip",
	backup.FormatTar:   "application/x-tar",
	backup.FormatGzTar: "application/gzip",
	backup.FormatBzTar: "application/x-bzip2",
}

// ArchiveResponse describes one archive of the repository
type ArchiveResponse struct {
	Name      string    `json:"name"`
	SourceID  string    `json:"source_id"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Format    string    `json:"format"`
	Size      int64     `json:"size"`
}

func newArchiveResponse(archive *backup.Archive) ArchiveResponse {
	size, _ := archive.Size()
	return ArchiveResponse{
		Name:      archive.Name,
		SourceID:  archive.SourceID,
		Version:   archive.Version,
		CreatedAt: archive.CreatedAt,
		Format:    string(archive.Format),
		Size:      size,
	}
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	archives, err := s.backups.List()
	if err != nil {
		s.respondError(w, err)
		return
	}

	result := make([]ArchiveResponse, 0, len(archives))
	for _, archive := range archives {
		result = append(result, newArchiveResponse(archive))
	}
	s.respondData(w, http.StatusOK, result)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	format := s.backups.Format()
	if value := r.URL.Query().Get("format"); value != "" {
		parsed, err := backup.ParseFormat(value)
		if err != nil {
			s.respondError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		format = parsed
	}

	archive, err := s.backups.CreateFormat(r.Context(), format)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondData(w, http.StatusCreated, newArchiveResponse(archive))
}

// handleUploadBackup streams the multipart field "upload" into the
// repository under the uploaded file name.
func (s *Server) handleUploadBackup(w http.ResponseWriter, r *http.Request) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.respondError(w, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}

		if part.FormName() != uploadField {
			part.Close()
			continue
		}

		archive, err := s.backups.Load(part.FileName(), part)
		part.Close()
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.respondData(w, http.StatusCreated, newArchiveResponse(archive))
		return
	}

	s.respondError(w, fmt.Errorf("%w: missing multipart field '%s'", errBadRequest, uploadField))
}

func (s *Server) handleGetBackup(w http.ResponseWriter, r *http.Request) {
	archive, err := s.backups.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondData(w, http.StatusOK, newArchiveResponse(archive))
}

func (s *Server) handleDownloadBackup(w http.ResponseWriter, r *http.Request) {
	rc, archive, err := s.backups.Open(chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentTypes[archive.Format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Name))

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, archive.Name, archive.CreatedAt, rs)
		return
	}

	if size, err := archive.Size(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Warn("Failed to send '%s': %v", archive.Name, err)
	}
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.backups.Restore(r.Context(), name); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondData(w, http.StatusOK, map[string]string{"restored": name})
}

func (s *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.backups.Delete(name); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondData(w, http.StatusOK, map[string]string{"deleted": name})
}
