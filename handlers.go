package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	serviceName    = "Shopping List API"
	serviceVersion = "1.0.0"

	// local time, microseconds, no zone
	isoLayout = "2006-01-02T15:04:05.000000"

	maxBodyBytes = 1 << 20
)

// Server holds the collaborators shared by all handlers.
type Server struct {
	store  ItemStore
	backup *BackupConnector
	ledger BackupLedger
	log    *logrus.Logger
	now    func() time.Time
}

func NewServer(store ItemStore, backup *BackupConnector, ledger BackupLedger, log *logrus.Logger) *Server {
	return &Server{
		store:  store,
		backup: backup,
		ledger: ledger,
		log:    log,
		now:    time.Now,
	}
}

// Routes builds the HTTP router for the service.
func (s *Server) Routes() *mux.Router {
	logged := requestLogger(s.log)

	r := mux.NewRouter()
	// mux skips router middleware when no route matches
	r.NotFoundHandler = logged(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	}))
	r.MethodNotAllowedHandler = logged(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}))
	r.Use(logged)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/list", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/add", s.handleAdd).Methods(http.MethodPost)
	api.HandleFunc("/remove/{item_id}", s.handleRemove).Methods(http.MethodDelete)
	api.HandleFunc("/toggle/{item_id}", s.handleToggle).Methods(http.MethodPut)
	api.HandleFunc("/defaults", s.handleDefaults).Methods(http.MethodGet)
	api.HandleFunc("/backup", s.handleBackup).Methods(http.MethodPost)
	api.HandleFunc("/backups", s.handleBackups).Methods(http.MethodGet)
	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": serviceName,
		"version": serviceVersion,
		"endpoints": map[string]string{
			"get_list":    "/api/list",
			"add_item":    "/api/add",
			"remove_item": "/api/remove/{item_id}",
			"toggle_item": "/api/toggle/{item_id}",
			"defaults":    "/api/defaults",
			"backup":      "/api/backup",
			"backups":     "/api/backups",
			"health":      "/health",
		},
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Load())
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	req, status, detail := decodeAddRequest(w, r)
	if status != 0 {
		writeDetail(w, status, detail)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	items := s.store.Load()
	item := ShoppingItem{
		// count+1, not max+1: ids can repeat after a removal
		ID:       len(items) + 1,
		Name:     req.Name,
		Quantity: defaultQuantity,
		Category: defaultCategory,
		Emoji:    defaultEmoji,
		AddedAt:  s.now().Format(isoLayout),
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Emoji != nil {
		item.Emoji = *req.Emoji
	}

	items = append(items, item)
	s.store.Save(items)
	s.log.WithFields(logrus.Fields{"id": item.ID, "name": item.Name}).Debug("item added")
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	items := s.store.Load()
	kept := make([]ShoppingItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		writeDetail(w, http.StatusNotFound, "Item not found")
		return
	}
	s.store.Save(kept)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Item %d removed successfully", id),
	})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	items := s.store.Load()
	for i := range items {
		if items[i].ID == id {
			items[i].Completed = !items[i].Completed
			s.store.Save(items)
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"message":   fmt.Sprintf("Item %d toggled", id),
				"completed": items[i].Completed,
			})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Item not found")
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DefaultItems())
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	rec, err := s.backup.Backup(r.Context())
	if err != nil {
		s.log.WithError(err).Error("backup failed")
		writeDetail(w, http.StatusInternalServerError, "Backup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Backup completed successfully",
		"key":     rec.Key,
	})
}

func (s *Server) handleBackups(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.List(r.Context())
	if err != nil {
		s.log.WithError(err).Error("list backups failed")
		writeDetail(w, http.StatusInternalServerError, "Failed to load backup history")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().Format(isoLayout),
	})
}

// decodeAddRequest reads one JSON object from the body. Trailing data and
// explicit nulls are rejected; a non-zero status means the request failed.
func decodeAddRequest(w http.ResponseWriter, r *http.Request) (AddItemRequest, int, string) {
	var req AddItemRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return req, http.StatusRequestEntityTooLarge, "request body too large"
		}
		return req, http.StatusBadRequest, "could not read request body"
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return req, http.StatusUnprocessableEntity, "invalid request body"
	}
	for name, v := range fields {
		if string(bytes.TrimSpace(v)) == "null" {
			return req, http.StatusUnprocessableEntity, name + " must not be null"
		}
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, http.StatusUnprocessableEntity, "invalid request body"
	}
	return req, 0, ""
}

// itemID parses the {item_id} route variable, answering 422 when it is not
// an integer.
func itemID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["item_id"])
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "item_id must be an integer")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
