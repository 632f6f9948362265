// Package web serves the results of a pipeline run over HTTP: the run
// report, table listings, and table contents as JSON. The server is
// read-only; it never mutates the run it was given.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hospitalmart/internal/output"
	"hospitalmart/internal/pipeline"
	webmw "hospitalmart/internal/web/middleware"
)

// Server exposes one pipeline result over HTTP.
type Server struct {
	result *pipeline.Result
	report *output.RunReport
	router *chi.Mux
	server *http.Server
}

// NewServer creates a report server for the given run.
func NewServer(res *pipeline.Result) *Server {
	s := &Server{
		result: res,
		report: output.NewRunReport(res),
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/report", s.handleReport)
		r.Get("/tables", s.handleListTables)
		r.Get("/tables/{name}", s.handleTable)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string, readTimeout time.Duration) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("report server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "run_id": s.result.RunID})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.report)
}

// tableSummary is one entry in the table listing.
type tableSummary struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	summaries := make([]tableSummary, 0, len(s.result.Tables))
	for _, name := range s.result.TableNames() {
		t := s.result.Tables[name]
		summaries = append(summaries, tableSummary{
			Name:    name,
			Rows:    t.NumRows(),
			Columns: t.ColumnNames(),
		})
	}
	writeJSON(w, summaries)
}

// handleTable returns a table's rows rendered to strings. The optional
// limit query parameter caps the row count; default 100, 0 means all.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := s.result.Tables[name]
	if !ok {
		writeError(w, r, http.StatusNotFound, "no such table: "+name)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid limit: "+raw)
			return
		}
		limit = n
	}

	n := t.NumRows()
	if limit > 0 && limit < n {
		n = limit
	}

	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		record := make([]string, len(t.Columns))
		for j, v := range t.Rows[i] {
			record[j] = v.Render(t.Columns[j].Type)
		}
		rows = append(rows, record)
	}

	writeJSON(w, map[string]any{
		"name":       name,
		"columns":    t.ColumnNames(),
		"rows":       rows,
		"total_rows": t.NumRows(),
	})
}

// writeError writes a JSON error response and logs it with request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	slog.Warn("request failed", "status", status, "message", message, "path", r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
