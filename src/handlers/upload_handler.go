package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/declarab3/src/config"
	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/parsers"
	"github.com/username/declarab3/src/security/validation"
	"github.com/username/declarab3/src/services"
	"github.com/username/declarab3/src/utils"
)

// UploadHandler recebe os exports CSV da B3 (negociação e movimentação) e
// anexa as linhas parseadas à sessão.
type UploadHandler struct {
	store services.SessionStore
}

func NewUploadHandler(store services.SessionStore) *UploadHandler {
	return &UploadHandler{store: store}
}

type uploadResponse struct {
	SessionID    string `json:"session_id"`
	Kind         string `json:"kind"`
	FileName     string `json:"file_name"`
	RowsImported int    `json:"rows_imported"`
}

func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		ctxLogger.Warn("Falha ao processar multipart form", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Falha ao processar ou o ficheiro é demasiado grande (max %d MB)",
			config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	kind := r.FormValue("kind")
	if kind != "trades" && kind != "events" {
		utils.SendJSONError(w, "O campo 'kind' deve ser 'trades' ou 'events'", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		ctxLogger.Warn("Falha ao obter ficheiro da requisição", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, "Falha ao obter o ficheiro. Use o campo 'file'.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		utils.SendJSONError(w, fmt.Sprintf("Ficheiro demasiado grande, max %d MB",
			config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		ctxLogger.Warn("Content-Type declarado inválido", "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		ctxLogger.Warn("Conteúdo do ficheiro rejeitado", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	parser, err := parsers.GetParser(r.FormValue("source"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var imported int
	switch kind {
	case "trades":
		transactions, err := parser.ParseTrades(file, fileHeader.Filename)
		if err != nil {
			ctxLogger.Error("Falha ao processar ficheiro de negociação", "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "Erro ao processar arquivo de negociação", http.StatusUnprocessableEntity)
			return
		}
		if err := h.store.AppendRows(r.Context(), sessionID, transactions, nil); err != nil {
			h.sendStoreError(w, ctxLogger, sessionID, err)
			return
		}
		imported = len(transactions)
	case "events":
		events, err := parser.ParseEvents(file, fileHeader.Filename)
		if err != nil {
			ctxLogger.Error("Falha ao processar ficheiro de movimentação", "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "Erro ao processar arquivo de movimentação", http.StatusUnprocessableEntity)
			return
		}
		if err := h.store.AppendRows(r.Context(), sessionID, nil, events); err != nil {
			h.sendStoreError(w, ctxLogger, sessionID, err)
			return
		}
		imported = len(events)
	}

	ctxLogger.Info("Ficheiro importado",
		"sessionID", sessionID, "kind", kind, "filename", fileHeader.Filename, "rows", imported)
	utils.SendJSON(w, uploadResponse{
		SessionID:    sessionID,
		Kind:         kind,
		FileName:     fileHeader.Filename,
		RowsImported: imported,
	}, http.StatusOK)
}

func (h *UploadHandler) sendStoreError(w http.ResponseWriter, ctxLogger *slog.Logger, sessionID string, err error) {
	if errors.Is(err, services.ErrSessionNotFound) {
		utils.SendJSONError(w, "Sessão não encontrada", http.StatusNotFound)
		return
	}
	ctxLogger.Error("Falha ao guardar linhas importadas", "sessionID", sessionID, "error", err)
	utils.SendJSONError(w, "Falha ao guardar os dados importados", http.StatusInternalServerError)
}
