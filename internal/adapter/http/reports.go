package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-playground/form/v4"

	"github.com/couchcryptid/issue-report-service/internal/domain"
	"github.com/couchcryptid/issue-report-service/internal/reports"
)

// multipartMemory is the part of a multipart body kept in memory before
// spilling file parts to disk.
const multipartMemory = 1 << 20

var formDecoder = form.NewDecoder()

type reportResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Report  *domain.Report `json:"report,omitempty"`
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, reportResponse{Message: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, reportResponse{Message: "Invalid form submission"})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only
	}

	var sub reports.Submission
	if err := formDecoder.Decode(&sub, r.Form); err != nil {
		s.logger.WarnContext(ctx, "decode report form failed", "error", err)
		writeJSON(w, http.StatusBadRequest, reportResponse{Message: "Invalid form submission"})
		return
	}

	var upload *reports.Upload
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["image"]; len(files) > 0 {
			f, err := files[0].Open()
			if err != nil {
				s.logger.ErrorContext(ctx, "open uploaded image failed", "error", err)
				writeJSON(w, http.StatusInternalServerError, reportResponse{Message: "Error submitting report"})
				return
			}
			defer f.Close()
			upload = &reports.Upload{Filename: files[0].Filename, Content: f}
		}
	}

	report, err := s.reports.Create(ctx, sub, upload)
	if err != nil {
		s.writeReportError(ctx, w, "submitting report", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"message":   "Report submitted successfully",
		"report_id": report.ID,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	list, err := s.reports.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.writeReportError(r.Context(), w, "fetching reports", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"reports": list,
		"total":   len(list),
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeReportError(r.Context(), w, "fetching report", err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Success: true, Report: &report})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, reportResponse{Message: "Invalid request body"})
		return
	}

	report, err := s.reports.UpdateStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		s.writeReportError(r.Context(), w, "updating report", err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		Success: true,
		Message: "Report status updated successfully",
		Report:  &report,
	})
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.reports.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeReportError(r.Context(), w, "deleting report", err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Success: true, Message: "Report deleted successfully"})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	rc, err := s.reports.Image(r.Context(), name)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, reportResponse{Message: "Image not found"})
		return
	}
	if err != nil {
		s.writeReportError(r.Context(), w, "fetching image", err)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.WarnContext(r.Context(), "stream image failed", "image", name, "error", err)
	}
}

// writeReportError maps store errors onto the report API envelope. action
// completes the "Error <action>" message used for storage failures.
func (s *Server) writeReportError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	status := statusFor(err)
	var msg string
	switch {
	case errors.Is(err, domain.ErrReportNotFound):
		msg = "Report not found"
	case errors.Is(err, domain.ErrInvalidStatus):
		msg = "Invalid status"
	case errors.Is(err, domain.ErrValidation):
		msg = err.Error()
	case errors.Is(err, domain.ErrStorage):
		msg = fmt.Sprintf("Error %s: %v", action, err)
	default:
		s.logger.ErrorContext(ctx, "unclassified report error", "action", action, "error", err)
		msg = "Error " + action
	}
	writeJSON(w, status, reportResponse{Message: msg})
}

// statusFor classifies an error by its domain category.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrResolutionFailed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
