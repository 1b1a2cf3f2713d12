// Package server exposes the operation dispatcher over HTTP. It binds
// multipart uploads and form parameters, maps typed failures to status codes
// and serves stored artifacts for download.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"docforge/internal/common"
	"docforge/internal/database"
	"docforge/internal/engine"
	"docforge/internal/store"
)

// Server is the HTTP edge. All state lives in the wired components.
type Server struct {
	dispatcher *engine.Engine
	artifacts  *store.Store
	db         *database.Database
	tool       interface{ Available() bool }
	maxUpload  int64
	logger     *slog.Logger
}

// New wires the HTTP edge. db may be nil; preference and statistics
// endpoints then respond with 503.
func New(dispatcher *engine.Engine, artifacts *store.Store, db *database.Database, tool interface{ Available() bool }, maxUpload int64, logger *slog.Logger) *Server {
	return &Server{
		dispatcher: dispatcher,
		artifacts:  artifacts,
		db:         db,
		tool:       tool,
		maxUpload:  maxUpload,
		logger:     logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/{op}", s.handleOperation)
	mux.HandleFunc("GET /files/{name}", s.handleDownload)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	mux.HandleFunc("POST /api/preferences", s.handleUpdatePreferences)
	return mux
}

// operationResponse is the wire shape for completed operations.
type operationResponse struct {
	URL          string `json:"url,omitempty"`
	Filename     string `json:"filename,omitempty"`
	Size         int64  `json:"size"`
	OriginalSize *int64 `json:"originalSize,omitempty"`
	PageCount    *int   `json:"pageCount,omitempty"`
	Warning      string `json:"warning,omitempty"`
	Status       string `json:"status,omitempty"`
}

func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	op := engine.Operation(r.PathValue("op"))

	// The upload ceiling is enforced before any component runs.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body is not valid multipart form data or exceeds the upload limit")
		return
	}
	defer r.MultipartForm.RemoveAll()

	inputs, err := s.readInputs(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params, err := bindParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), op, inputs, params)
	if err != nil {
		s.writeOperationError(w, op, err)
		return
	}

	resp := operationResponse{
		Filename:     result.Filename,
		Size:         result.Size,
		OriginalSize: result.OriginalSize,
		PageCount:    result.PageCount,
		Warning:      result.Warning,
	}
	if result.ArtifactName != "" {
		resp.URL = "/files/" + result.ArtifactName
	}
	if result.Validation != nil {
		resp.Status = string(result.Validation.Status)
		pageCount := result.Validation.PageCount
		resp.PageCount = &pageCount
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// readInputs collects the uploaded files in submission order.
func (s *Server) readInputs(r *http.Request) ([]engine.Input, error) {
	files := r.MultipartForm.File["files"]
	inputs := make([]engine.Input, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			return nil, common.NewRequestError("failed to read uploaded file %q", header.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, common.NewRequestError("failed to read uploaded file %q", header.Filename)
		}
		inputs = append(inputs, engine.Input{Filename: header.Filename, Data: data})
	}
	return inputs, nil
}

// bindParams maps form fields to operation parameters. Absent fields stay
// nil so the metadata operation can distinguish "unset" from "empty".
func bindParams(r *http.Request) (engine.Params, error) {
	params := engine.Params{
		Pages:     r.FormValue("pages"),
		PageOrder: r.FormValue("pageOrder"),
		Rotations: r.FormValue("rotations"),
	}

	if v := r.FormValue("targetSize"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, common.NewRequestError("targetSize must be an integer byte count")
		}
		params.TargetSize = &size
	}

	params.Title = formValuePtr(r, "title")
	params.Author = formValuePtr(r, "author")
	params.Subject = formValuePtr(r, "subject")
	params.Keywords = formValuePtr(r, "keywords")

	return params, nil
}

func formValuePtr(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	data, err := s.artifacts.Get(name)
	if err != nil {
		if errors.Is(err, common.ErrArtifactNotFound) {
			s.writeError(w, http.StatusNotFound, "artifact not found or expired")
			return
		}
		s.logger.Error("Artifact retrieval failed", "name", name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "artifact retrieval failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+store.SanitizeName(name)+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":        "ok",
		"toolAvailable": s.tool != nil && s.tool.Available(),
	}
	if s.db != nil {
		if stats, err := s.db.GetStats(); err == nil {
			resp["stats"] = stats
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeError(w, http.StatusServiceUnavailable, "preferences storage is not configured")
		return
	}
	prefs, err := s.db.GetPreferences()
	if err != nil {
		s.logger.Error("Failed to load preferences", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	s.writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeError(w, http.StatusServiceUnavailable, "preferences storage is not configured")
		return
	}

	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	if err := s.db.UpdatePreferences(data); err != nil {
		s.logger.Error("Failed to update preferences", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to update preferences")
		return
	}

	s.handleGetPreferences(w, r)
}

// writeOperationError maps typed failures to status codes. Internal detail
// never leaks into responses.
func (s *Server) writeOperationError(w http.ResponseWriter, op engine.Operation, err error) {
	if common.IsRequestError(err) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var toolErr *common.ToolError
	if errors.As(err, &toolErr) && toolErr.Timeout {
		s.logger.Error("Operation timed out", "operation", string(op), "error", err)
		s.writeError(w, http.StatusGatewayTimeout, "processing timed out")
		return
	}

	s.logger.Error("Operation failed", "operation", string(op), "error", err)
	s.writeError(w, http.StatusInternalServerError, "processing failed")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
