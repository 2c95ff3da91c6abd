package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/lucasnoah/ragdebug/internal/orchestrator"
	"github.com/lucasnoah/ragdebug/internal/pipeline"
	"github.com/lucasnoah/ragdebug/internal/report"
)

// ---- view models ----

type IndexData struct {
	ErrorLog    string
	UserCode    string
	MaxAttempts string
	Error       string
}

type ResultData struct {
	Result   *pipeline.Result
	ErrorLog string
	UserCode string
}

// DebugRequest is the body of POST /api/debug.
type DebugRequest struct {
	ErrorLog        string `json:"error_log"`
	UserCodeSnippet string `json:"user_code_snippet"`
	MaxAttempts     int    `json:"max_attempts"`
}

const maxAttemptsLimit = 50

// ---- handlers ----

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.indexTmpl, IndexData{})
}

func (s *Server) handleDebugForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, s.indexTmpl, IndexData{Error: "could not read form: " + err.Error()})
		return
	}

	data := IndexData{
		ErrorLog:    r.PostFormValue("error_log"),
		UserCode:    r.PostFormValue("user_code"),
		MaxAttempts: strings.TrimSpace(r.PostFormValue("max_attempts")),
	}
	if strings.TrimSpace(data.ErrorLog) == "" {
		data.Error = "Paste an error log or traceback."
		s.render(w, http.StatusBadRequest, s.indexTmpl, data)
		return
	}
	attempts, err := parseAttempts(data.MaxAttempts)
	if err != nil {
		data.Error = err.Error()
		s.render(w, http.StatusBadRequest, s.indexTmpl, data)
		return
	}

	res := s.runner.Run(r.Context(), orchestrator.RunOpts{
		ErrorLog:        data.ErrorLog,
		UserCodeSnippet: data.UserCode,
		MaxAttempts:     attempts,
	})
	s.render(w, http.StatusOK, s.resultTmpl, ResultData{Result: res, ErrorLog: data.ErrorLog, UserCode: data.UserCode})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDebugAPI(w http.ResponseWriter, r *http.Request) {
	var req DebugRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.ErrorLog) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "error_log is required"})
		return
	}
	if req.MaxAttempts < 0 || req.MaxAttempts > maxAttemptsLimit {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "max_attempts must be between 1 and 50"})
		return
	}

	res := s.runner.Run(r.Context(), orchestrator.RunOpts{
		ErrorLog:        req.ErrorLog,
		UserCodeSnippet: req.UserCodeSnippet,
		MaxAttempts:     req.MaxAttempts,
	})
	data, err := report.JSON(res)
	if err != nil {
		s.logger.Error("result failed contract check", "run_id", res.RunID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ---- helpers ----

func parseAttempts(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxAttemptsLimit {
		return 0, errInvalidAttempts
	}
	return n, nil
}

var errInvalidAttempts = errors.New("Max attempts must be a number between 1 and 50.")

// render executes the "base" template into a buffer so a template error
// can still produce a 500.
func (s *Server) render(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		s.logger.Error("template render failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
