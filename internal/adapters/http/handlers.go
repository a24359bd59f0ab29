package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/enzopoeta/i2a2-final/internal/application"
	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxJSONBodyBytes = 10 << 20

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"state": "healthy", "service": h.service.ServiceName()})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "database unavailable")
		return
	}
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Status(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) uploadArchive(w http.ResponseWriter, r *http.Request) {
	data, err := h.readUpload(w, r, ".zip")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp, err := h.service.IngestArchive(r.Context(), data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) uploadXML(w http.ResponseWriter, r *http.Request) {
	data, err := h.readUpload(w, r, ".xml")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp, err := h.service.IngestXML(r.Context(), data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) insertDocument(w http.ResponseWriter, r *http.Request) {
	data, err := h.readUpload(w, r, ".json")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp, err := h.service.InsertDocument(r.Context(), data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

// readUpload returns the multipart "file" field after checking its extension
// and size.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, ext string) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart payload", domain.ErrInvalidInput)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: file is required", domain.ErrInvalidInput)
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ext) {
		return nil, fmt.Errorf("%w: invalid file type, only %s files are allowed", domain.ErrInvalidInput, strings.ToUpper(strings.TrimPrefix(ext, ".")))
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %v", domain.ErrInvalidInput, err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, h.maxUploadBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: uploaded file is empty", domain.ErrInvalidInput)
	}
	return data, nil
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	notas, err := h.service.ListDocuments(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"notas": notas})
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetDocument(r.Context(), chi.URLParam(r, "chave"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, doc)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats)
}

func (h *Handler) getTaxTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.GetTaxTotals(r.Context(), chi.URLParam(r, "chave"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, totals)
}

func (h *Handler) listItemTaxes(w http.ResponseWriter, r *http.Request) {
	taxes, err := h.service.ListItemTaxes(r.Context(), chi.URLParam(r, "chave"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, taxes)
}

func (h *Handler) getCompleteTaxes(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetCompleteTaxes(r.Context(), chi.URLParam(r, "chave"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) clearAll(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ClearAll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) ensureTables(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.EnsureTables(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

type calculateTaxesRequest struct {
	ChaveAcesso string `json:"chave_acesso"`
}

func (h *Handler) calculateTaxes(w http.ResponseWriter, r *http.Request) {
	var req calculateTaxesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	resp, err := h.service.RequestTaxCalculation(r.Context(), req.ChaveAcesso)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

type saveAnalysisRequest struct {
	Texto string `json:"texto"`
}

func (h *Handler) saveAnalysis(w http.ResponseWriter, r *http.Request) {
	var req saveAnalysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	resp, err := h.service.SaveAnalysisText(r.Context(), req.Texto)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) setAnalysisProcessing(w http.ResponseWriter, r *http.Request) {
	var req application.SetProcessingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	resp, err := h.service.SetAnalysisProcessing(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetAnalysis(r.Context(), chi.URLParam(r, "chave"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}
