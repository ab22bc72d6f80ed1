package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/declarab3/src/services"
)

const sampleTradesCSV = `Data do Negócio,Compra/Venda,Mercado,Instituição,Código de Negociação,Quantidade,Preço,Valor
15/01/2023,Compra,Mercado à Vista,XP INVESTIMENTOS,PETR4,100,"25,50","2.550,00"
16/01/2023,Venda,Mercado à Vista,XP INVESTIMENTOS,PETR4,50,"27,00","1.350,00"
`

func uploadRouter(store services.SessionStore) *chi.Mux {
	h := NewUploadHandler(store)
	r := chi.NewRouter()
	r.Post("/sessions/{id}/upload", h.HandleUpload)
	return r
}

func multipartCSV(t *testing.T, kind, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	require.NoError(t, writer.WriteField("kind", kind))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	header.Set("Content-Type", "text/csv")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)

	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHandleUploadTrades(t *testing.T) {
	store := newFakeStore()
	_, err := store.CreateSession(context.Background(), "x", 2023)
	require.NoError(t, err)
	r := uploadRouter(store)

	body, contentType := multipartCSV(t, "trades", "negociacao.csv", sampleTradesCSV)
	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		SessionID    string `json:"session_id"`
		Kind         string `json:"kind"`
		RowsImported int    `json:"rows_imported"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "trades", resp.Kind)
	assert.Equal(t, 2, resp.RowsImported)

	session := store.sessions["sess-1"]
	require.Len(t, session.Transactions, 2)
	assert.Equal(t, "PETR4", session.Transactions[0].AssetCode)
}

func TestHandleUploadRejectsUnknownKind(t *testing.T) {
	r := uploadRouter(newFakeStore())

	body, contentType := multipartCSV(t, "spreadsheets", "negociacao.csv", sampleTradesCSV)
	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadSessionNotFound(t *testing.T) {
	r := uploadRouter(newFakeStore())

	body, contentType := multipartCSV(t, "trades", "negociacao.csv", sampleTradesCSV)
	req := httptest.NewRequest(http.MethodPost, "/sessions/nope/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUploadRejectsBinaryContent(t *testing.T) {
	r := uploadRouter(newFakeStore())

	body, contentType := multipartCSV(t, "trades", "negociacao.csv", "PK\x03\x04\x00\x00fake")
	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
