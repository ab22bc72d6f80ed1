package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/models"
	"github.com/username/declarab3/src/services"
	"github.com/username/declarab3/src/utils"
)

// ProcessHandler expõe o motor de apuração: processamento de uma sessão,
// consulta do último resultado, resumo da declaração e validação isolada.
type ProcessHandler struct {
	processingService  services.ProcessingService
	declarationService *services.DeclarationService
	store              services.SessionStore
}

func NewProcessHandler(processing services.ProcessingService, declaration *services.DeclarationService, store services.SessionStore) *ProcessHandler {
	return &ProcessHandler{
		processingService:  processing,
		declarationService: declaration,
		store:              store,
	}
}

type processRequest struct {
	IncludeInitialPosition bool `json:"includeInitialPosition"`
}

func (h *ProcessHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	// Corpo vazio equivale a includeInitialPosition=true.
	req := processRequest{IncludeInitialPosition: true}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.SendJSONError(w, "Corpo da requisição inválido", http.StatusBadRequest)
		return
	}

	result, err := h.processingService.Process(r.Context(), sessionID, req.IncludeInitialPosition)
	if errors.Is(err, services.ErrSessionNotFound) {
		utils.SendJSONError(w, "Sessão não encontrada", http.StatusNotFound)
		return
	}
	if err != nil {
		ctxLogger.Error("Processamento falhou", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, "Falha ao processar a sessão", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, result, http.StatusOK)
}

func (h *ProcessHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	run, err := h.store.LatestRun(r.Context(), sessionID)
	if errors.Is(err, services.ErrRunNotFound) {
		utils.SendJSONError(w, "A sessão ainda não foi processada", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Falha ao obter resultados", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, "Falha ao obter resultados", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, run, http.StatusOK)
}

func (h *ProcessHandler) HandleGetDeclaration(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	summary, err := h.declarationService.Generate(r.Context(), sessionID)
	if errors.Is(err, services.ErrRunNotFound) {
		utils.SendJSONError(w, "A sessão ainda não foi processada", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Falha ao gerar resumo da declaração", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, "Falha ao gerar resumo da declaração", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, summary, http.StatusOK)
}

type validateRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *ProcessHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		utils.SendJSONError(w, "O campo 'sessionId' é obrigatório", http.StatusBadRequest)
		return
	}

	findings, err := h.processingService.Validate(r.Context(), req.SessionID)
	if errors.Is(err, services.ErrSessionNotFound) {
		utils.SendJSONError(w, "Sessão não encontrada", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Validação falhou", "sessionID", req.SessionID, "error", err)
		utils.SendJSONError(w, "Falha ao validar a sessão", http.StatusInternalServerError)
		return
	}
	if findings == nil {
		findings = []models.Inconsistency{}
	}
	utils.SendJSON(w, findings, http.StatusOK)
}
