// File: internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/asolfandco/dispatcher/internal/dispatch"
	"github.com/asolfandco/dispatcher/internal/media"
)

// dispatchService is the slice of the dispatcher the handlers invoke.
type dispatchService interface {
	Send(ctx context.Context, req dispatch.SendRequest, uploads []string) dispatch.SendResult
	SendAll(ctx context.Context, req dispatch.BatchRequest, uploads []string) ([]dispatch.SendResult, error)
	Open(ctx context.Context) error
}

// Handlers hosts the HTTP surface. Business-level failures are reported with
// HTTP 200 and an error payload; only a failed open_whatsapp uses 500.
type Handlers struct {
	logger         *zap.Logger
	service        dispatchService
	fetcher        *media.Fetcher
	maxUploadBytes int64
}

func NewHandlers(logger *zap.Logger, service dispatchService, fetcher *media.Fetcher, maxUploadBytes int64) *Handlers {
	return &Handlers{
		logger:         logger.Named("api"),
		service:        service,
		fetcher:        fetcher,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes mounts the caller-facing endpoints.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/send", h.HandleSend)
	r.Post("/send_all", h.HandleSendAll)
	r.Post("/open_whatsapp", h.HandleOpenWhatsApp)
	r.Get("/health", h.HandleHealth)
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{"status": "OK"})
}

func (h *Handlers) HandleSend(w http.ResponseWriter, r *http.Request) {
	var payload sendPayload
	uploads := h.parsePayload(r, &payload)
	defer h.fetcher.Cleanup(uploads)

	req := dispatch.SendRequest{
		Phone:       payload.Phone,
		Message:     payload.Message,
		Name:        payload.Name,
		CountryCode: payload.CountryCode,
		FileLinks:   payload.fileLinkList(),
		RowIndex:    payload.RowIndex,
	}
	result := h.service.Send(r.Context(), req, uploads)

	if result.Status == dispatch.StatusSent {
		h.respondJSON(w, http.StatusOK, map[string]any{
			"status":    "Message sent",
			"row_index": result.RowIndex,
		})
		return
	}
	resp := map[string]any{
		"error":     result.Error,
		"row_index": result.RowIndex,
	}
	if result.ErrorCode != "" {
		resp["error_code"] = result.ErrorCode
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleSendAll(w http.ResponseWriter, r *http.Request) {
	var payload batchPayload
	uploads := h.parsePayload(r, &payload)
	defer h.fetcher.Cleanup(uploads)

	entries := payload.Contacts
	if entries == nil {
		entries = payload.Messages
	}
	req := dispatch.BatchRequest{
		Entries:     toBatchEntries(entries),
		Message:     payload.Message,
		FileLinks:   payload.fileLinkList(),
		MinInterval: secondsToDuration(payload.MinInterval),
		MaxInterval: secondsToDuration(payload.MaxInterval),
	}

	results, err := h.service.SendAll(r.Context(), req, uploads)
	if err != nil {
		resp := map[string]any{"error": err.Error()}
		if code, ok := dispatch.CodeOf(err); ok {
			resp["error_code"] = code
		}
		h.respondJSON(w, http.StatusOK, resp)
		return
	}
	if results == nil {
		results = []dispatch.SendResult{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":  summaryLine(len(req.Entries)),
		"results": results,
	})
}

func (h *Handlers) HandleOpenWhatsApp(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Open(r.Context()); err != nil {
		h.logger.Error("Opening the WhatsApp session failed.", zap.Error(err))
		h.respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":      "Could not open WhatsApp session",
			"error_code": dispatch.CodeOpenFailed,
		})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"status": "opened"})
}

// parsePayload decodes the request into out and spools any multipart file
// parts to temp files, returning their paths. Malformed bodies degrade to an
// empty payload rather than a transport error, preserving the contract that
// validation failures are reported in the response body.
func (h *Handlers) parsePayload(r *http.Request, out any) []string {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			h.logger.Warn("Multipart parse failed.", zap.Error(err))
			return nil
		}
		if raw := r.FormValue("payload"); raw != "" {
			if err := json.Unmarshal([]byte(raw), out); err != nil {
				h.logger.Warn("Payload field is not valid JSON.", zap.Error(err))
			}
		}
		var uploads []string
		if r.MultipartForm != nil {
			for _, fh := range r.MultipartForm.File["files"] {
				if fh.Filename == "" {
					continue
				}
				part, err := fh.Open()
				if err != nil {
					h.logger.Warn("Uploaded file part unreadable.",
						zap.String("filename", fh.Filename), zap.Error(err))
					continue
				}
				path, saveErr := h.fetcher.SaveUpload(fh.Filename, part)
				part.Close()
				if saveErr != nil {
					h.logger.Warn("Uploaded file could not be spooled.",
						zap.String("filename", fh.Filename), zap.Error(saveErr))
					continue
				}
				uploads = append(uploads, path)
			}
		}
		return uploads
	}

	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		h.logger.Debug("Request body is not valid JSON.", zap.Error(err))
	}
	return nil
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to write JSON response.", zap.Error(err))
	}
}
