package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/filex"
	"github.com/dmitrijs2005/binsync/internal/models"
	smodels "github.com/dmitrijs2005/binsync/internal/server/models"
	"github.com/dmitrijs2005/binsync/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Multipart field names of a sync request.
const (
	FieldAction       = "action"
	FieldChecksum     = "checksum"
	FieldBinaryRecord = "binaryRecord"
	FieldContents     = "contents"

	maxFieldBytes     = 1 << 20
	defaultStaleAfter = 10 * time.Minute
)

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) (int, error) {
	// large payloads must not hit the server-wide deadlines
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	req, staged, err := s.readSyncRequest(r)
	if err != nil {
		removeStaged(staged)
		return statusFor(err), err
	}

	log := s.logger.With("subject", SubjectFromContext(r.Context()), "binary_uid", req.Record.UID)

	rec, err := s.engine.Sync(r.Context(), req)
	if err != nil {
		if errors.Is(err, common.ErrValidation) || errors.Is(err, services.ErrNotLogged) {
			removeStaged(staged)
		} else if staged != "" {
			log.Warn(r.Context(), "keeping staged payload of failed sync", "staged", staged)
		}
		return statusFor(err), err
	}
	removeStaged(staged)

	writeJSON(w, http.StatusOK, rec)
	return http.StatusOK, nil
}

// readSyncRequest streams the multipart body. The contents part goes to a
// staging file whose path is returned even on error so it can be cleaned up.
func (s *Server) readSyncRequest(r *http.Request) (*services.SyncRequest, string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	req := &services.SyncRequest{}
	var staged string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, staged, fmt.Errorf("%w: read multipart: %w", common.ErrTransport, err)
		}

		switch part.FormName() {
		case FieldAction:
			req.Action, err = readField(part)
		case FieldChecksum:
			req.Checksum, err = readField(part)
		case FieldBinaryRecord:
			req.Record, err = readRecord(part)
		case FieldContents:
			if staged != "" {
				err = fmt.Errorf("%w: duplicate %s part", common.ErrValidation, FieldContents)
			} else {
				staged, err = s.stage(part)
			}
		default:
			_, err = io.Copy(io.Discard, part)
		}
		_ = part.Close()
		if err != nil {
			return nil, staged, err
		}
	}

	req.ContentPath = staged
	if req.Record == nil {
		return nil, staged, fmt.Errorf("%w: %s is required", common.ErrValidation, FieldBinaryRecord)
	}
	return req, staged, nil
}

func readField(p *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(p, maxFieldBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrTransport, err)
	}
	if len(b) > maxFieldBytes {
		return "", fmt.Errorf("%w: field %s too large", common.ErrValidation, p.FormName())
	}
	return string(b), nil
}

func readRecord(p *multipart.Part) (*models.BinaryRecord, error) {
	raw, err := readField(p)
	if err != nil {
		return nil, err
	}
	var rec models.BinaryRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrValidation, FieldBinaryRecord, err)
	}
	return &rec, nil
}

func (s *Server) stage(p *multipart.Part) (string, error) {
	dir := s.engine.StagingDir()
	if err := filex.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.NewString())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, p); err != nil {
		_ = f.Close()
		return path, fmt.Errorf("%w: receive contents: %w", common.ErrTransport, err)
	}
	return path, f.Close()
}

func removeStaged(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) (int, error) {
	rec, err := s.engine.Record(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		return statusFor(err), err
	}
	writeJSON(w, http.StatusOK, rec)
	return http.StatusOK, nil
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) (int, error) {
	body, rec, err := s.engine.Content(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		return statusFor(err), err
	}
	defer body.Close()

	ct := rec.MimeType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("X-Checksum", rec.Checksum)
	if rec.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn(r.Context(), "content stream interrupted", "uid", rec.UID, "error", err)
	}
	return http.StatusOK, nil
}

func (s *Server) handleStale(w http.ResponseWriter, r *http.Request) (int, error) {
	olderThan := defaultStaleAfter
	if v := r.URL.Query().Get("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return http.StatusBadRequest, fmt.Errorf("%w: bad older_than %q", common.ErrValidation, v)
		}
		olderThan = d
	}

	entries, err := s.engine.StaleAttempts(r.Context(), olderThan)
	if err != nil {
		return statusFor(err), err
	}
	if entries == nil {
		entries = []*smodels.SyncLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
	return http.StatusOK, nil
}
