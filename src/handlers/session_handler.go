package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/username/declarab3/src/config"
	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/models"
	"github.com/username/declarab3/src/security/validation"
	"github.com/username/declarab3/src/services"
	"github.com/username/declarab3/src/utils"
)

type SessionHandler struct {
	store services.SessionStore
}

func NewSessionHandler(store services.SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

type createSessionRequest struct {
	Name string `json:"name"`
	Year int    `json:"year"`
}

func (h *SessionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Corpo da requisição inválido", http.StatusBadRequest)
		return
	}
	req.Name = validation.StripUnprintable(req.Name)
	if err := validation.ValidateSessionName(req.Name); err != nil {
		utils.SendJSONError(w, "Nome de sessão inválido", http.StatusBadRequest)
		return
	}
	if req.Year == 0 {
		req.Year = config.Cfg.DefaultTaxYear
	}
	if req.Year < 2000 || req.Year > time.Now().Year() {
		utils.SendJSONError(w, "Ano fiscal inválido", http.StatusBadRequest)
		return
	}

	session, err := h.store.CreateSession(r.Context(), req.Name, req.Year)
	if err != nil {
		ctxLogger.Error("Falha ao criar sessão", "error", err)
		utils.SendJSONError(w, "Falha ao criar sessão", http.StatusInternalServerError)
		return
	}

	ctxLogger.Info("Sessão criada", "sessionID", session.ID, "year", session.Year)
	utils.SendJSON(w, session, http.StatusCreated)
}

func (h *SessionHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Falha ao listar sessões", "error", err)
		utils.SendJSONError(w, "Falha ao listar sessões", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []models.SessionInfo{}
	}
	utils.SendJSON(w, sessions, http.StatusOK)
}

func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := h.store.GetSession(r.Context(), id)
	if errors.Is(err, services.ErrSessionNotFound) {
		utils.SendJSONError(w, "Sessão não encontrada", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Falha ao obter sessão", "sessionID", id, "error", err)
		utils.SendJSONError(w, "Falha ao obter sessão", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, session, http.StatusOK)
}

func (h *SessionHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.store.DeleteSession(r.Context(), id)
	if errors.Is(err, services.ErrSessionNotFound) {
		utils.SendJSONError(w, "Sessão não encontrada", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Falha ao eliminar sessão", "sessionID", id, "error", err)
		utils.SendJSONError(w, "Falha ao eliminar sessão", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
