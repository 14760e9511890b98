// Package server exposes the table operations over a JSON HTTP API.
// It is thin glue: handlers consume only the public registry and table
// operations and never reach into index or cache internals.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zoreu/tabledb/internal/registry"
	"github.com/zoreu/tabledb/internal/table"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

type Server struct {
	registry        *registry.Registry
	defaultCapacity int
}

// New creates a server over the given registry. defaultCapacity is the
// cache capacity used when a create-table request does not specify one.
func New(reg *registry.Registry, defaultCapacity int) *Server {
	return &Server{registry: reg, defaultCapacity: defaultCapacity}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tables", s.createTable)
	mux.HandleFunc("GET /tables", s.listTables)
	mux.HandleFunc("POST /tables/{table}/records", s.insertRecord)
	mux.HandleFunc("GET /tables/{table}/records", s.listRecords)
	mux.HandleFunc("GET /tables/{table}/records/{value}", s.getRecord)
	mux.HandleFunc("PUT /tables/{table}/records/{value}", s.updateRecord)
	mux.HandleFunc("DELETE /tables/{table}/records/{value}", s.deleteRecord)
	mux.HandleFunc("GET /tables/{table}/search", s.searchRecords)
	return mux
}

// Start binds the listener and serves until the process exits.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	slog.Info("http server listening", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

type createTableRequest struct {
	Name          string   `json:"name"`
	Fields        []string `json:"fields"`
	IndexedField  string   `json:"indexed_field"`
	CacheCapacity int      `json:"cache_capacity"`
}

func (s *Server) createTable(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	capacity := req.CacheCapacity
	if capacity == 0 {
		capacity = s.defaultCapacity
	}
	if _, err := s.registry.CreateTable(req.Name, req.Fields, req.IndexedField, capacity); err != nil {
		writeOperationError(w, err)
		return
	}
	slog.Info("table created", "table", req.Name, "indexed_field", req.IndexedField)
	writeJSON(w, http.StatusCreated, map[string]any{"message": fmt.Sprintf("table '%s' created", req.Name)})
}

func (s *Server) listTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tables": s.registry.List()})
}

func (s *Server) insertRecord(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	var rec table.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid record: %v", err))
		return
	}
	if err := t.Insert(rec); err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "record inserted"})
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	page, perPage, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, total, err := t.List(page, perPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writePage(w, page, perPage, total, records)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	value := r.PathValue("value")
	rec, found := t.Search(t.IndexedField(), value)
	if !found {
		writeError(w, http.StatusNotFound, "no match")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	var changes table.Record
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid changes: %v", err))
		return
	}
	if err := t.Update(t.IndexedField(), r.PathValue("value"), changes); err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "record updated"})
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	if err := t.Delete(t.IndexedField(), r.PathValue("value")); err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "record deleted"})
}

func (s *Server) searchRecords(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	field := r.URL.Query().Get("field")
	q := r.URL.Query().Get("q")
	if field == "" {
		writeError(w, http.StatusBadRequest, "missing 'field' query parameter")
		return
	}
	page, perPage, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, total, err := t.Match(field, q, page, perPage)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	writePage(w, page, perPage, total, records)
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) (*table.Table, bool) {
	name := r.PathValue("table")
	t, ok := s.registry.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("table '%s' does not exist", name))
		return nil, false
	}
	return t, true
}

func pagination(r *http.Request) (page, perPage int, err error) {
	page, perPage = 1, defaultPerPage
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("invalid page %q", raw)
		}
	}
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		perPage, err = strconv.Atoi(raw)
		if err != nil || perPage < 1 || perPage > maxPerPage {
			return 0, 0, fmt.Errorf("invalid per_page %q", raw)
		}
	}
	return page, perPage, nil
}

func writePage(w http.ResponseWriter, page, perPage, total int, records []table.Record) {
	if records == nil {
		records = []table.Record{}
	}
	totalPages := (total + perPage - 1) / perPage
	writeJSON(w, http.StatusOK, map[string]any{
		"page":        page,
		"per_page":    perPage,
		"total":       total,
		"total_pages": totalPages,
		"data":        records,
	})
}

// writeOperationError maps the table error kinds onto HTTP status codes.
func writeOperationError(w http.ResponseWriter, err error) {
	var schemaErr *table.SchemaError
	var dupErr *table.DuplicateKeyError
	var notFoundErr *table.NotFoundError
	switch {
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &dupErr):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}
