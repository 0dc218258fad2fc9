package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/devotional/internal/dispatcher"
	"github.com/julianstephens/devotional/internal/fetcher"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/utils"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	success(w, map[string]string{"status": "up"}, "devotional engine is running")
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	success(w, s.content.Entries(), "ok")
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		failure(w, http.StatusBadRequest, "Invalid entry id", err.Error())
		return
	}
	e, ok := s.content.Entry(id)
	if !ok {
		failure(w, http.StatusNotFound, "Entry not found", nil)
		return
	}
	success(w, e, "ok")
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	e, ok := s.content.TodayEntry()
	if !ok {
		failure(w, http.StatusNotFound, "No devotional for today", map[string]string{
			"today": utils.Today(s.content.Now()),
		})
		return
	}
	success(w, e, "ok")
}

type nuggetResponse struct {
	EntryID int    `json:"entry_id"`
	Nugget  string `json:"nugget"`
	Text    string `json:"text"`
}

func (s *Server) handleNugget(w http.ResponseWriter, r *http.Request) {
	e, nugget, ok := s.content.TodayNuggetEntry(r.Context())
	if !ok {
		failure(w, http.StatusNotFound, "No nugget for today", nil)
		return
	}
	success(w, nuggetResponse{EntryID: e.ID, Nugget: nugget, Text: utils.PlainText(nugget)}, "ok")
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	entries, err := s.content.Refresh(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		kind := "unknown"
		var fe *fetcher.FetchError
		if errors.As(err, &fe) {
			kind = fe.Kind.String()
			switch fe.Kind {
			case fetcher.NoConnectivity:
				status = http.StatusServiceUnavailable
			case fetcher.Timeout:
				status = http.StatusGatewayTimeout
			}
		}
		s.log.Warn("Refresh failed", "error", err)
		failure(w, status, "Refresh failed", map[string]string{"kind": kind, "error": err.Error()})
		return
	}
	success(w, map[string]int{"count": len(entries)}, "Entries refreshed")
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	success(w, s.store.LoadPreferences(), "ok")
}

// preferencesUpdate carries only the toggles the client sent
type preferencesUpdate struct {
	MasterEnabled  *bool `json:"master_enabled"`
	MorningEnabled *bool `json:"morning_enabled"`
	NuggetEnabled  *bool `json:"nugget_enabled"`
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	prefs := s.store.LoadPreferences()
	if req.MasterEnabled != nil {
		prefs.MasterEnabled = *req.MasterEnabled
	}
	if req.MorningEnabled != nil {
		prefs.MorningEnabled = *req.MorningEnabled
	}
	if req.NuggetEnabled != nil {
		prefs.NuggetEnabled = *req.NuggetEnabled
	}

	if err := s.store.SavePreferences(prefs); err != nil {
		failure(w, http.StatusInternalServerError, "Failed to save preferences", err.Error())
		return
	}
	if err := s.scheduler.RescheduleAllFromPreferences(r.Context()); err != nil {
		s.log.Error("Reschedule after preference change failed", "error", err)
		failure(w, http.StatusInternalServerError, "Preferences saved but rescheduling failed", err.Error())
		return
	}
	success(w, prefs, "Preferences updated")
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	status, err := s.scheduler.Status(r.Context())
	if err != nil {
		failure(w, http.StatusInternalServerError, "Failed to read triggers", err.Error())
		return
	}
	success(w, status, "ok")
}

type openRequest struct {
	Payload string `json:"payload"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}
	p, err := models.DecodePayload(req.Payload)
	if err != nil {
		failure(w, http.StatusBadRequest, "Invalid notification payload", err.Error())
		return
	}
	success(w, dispatcher.Resolve(s.content, p), "ok")
}
