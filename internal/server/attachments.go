package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/memoroo/memoroo/internal/auth"
	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
)

// maxAttachmentBytes bounds an attachment upload. Voice notes and photos sit
// well under this; anything larger would blow the OCR/STT context anyway.
const maxAttachmentBytes = 20 << 20

// handleUploadAttachment accepts a multipart upload ("file" part), extracts
// its text (OCR or transcription), and stores the result as a searchable
// attachment unit.
func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	if s.deps.Extractor == nil {
		writeError(w, r, apperr.New(apperr.KindInvalid, "server: attachment uploads are not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, uploadError(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, uploadError(err))
		return
	}

	ownerID := auth.OwnerID(r.Context())
	extraction, err := s.deps.Extractor.Extract(r.Context(), ownerID, data, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	tags := extraction.Metadata.Tags
	if app := extraction.Metadata.SourceApp; app != "" {
		tags = append(tags, app)
	}
	unit, err := s.deps.Units.Create(r.Context(), memory.MemoryUnit{
		OwnerID:    ownerID,
		SourceType: memory.SourceAttachment,
		Title:      extraction.Metadata.Title,
		Content:    extraction.Text,
		Tags:       tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"unit":        toUnitJSON(*unit),
		"corrections": extraction.Corrections,
	})
}

// uploadError classifies multipart/read failures: an overrun body is
// KindInputTooLarge, everything else is malformed input.
func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperr.New(apperr.KindInputTooLarge, "server: attachment exceeds %d bytes", maxErr.Limit)
	}
	return apperr.New(apperr.KindInvalid, "server: malformed attachment upload")
}
