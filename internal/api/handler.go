package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"filesrus/internal/files"
	"filesrus/internal/logging"
	"filesrus/internal/preview"
	"filesrus/internal/store"
)

// Handler handles HTTP requests.
type Handler struct {
	files    *files.Service
	previews *preview.Manager
	mux      *http.ServeMux
}

// NewHandler creates a new HTTP handler.
func NewHandler(filesSvc *files.Service, previews *preview.Manager) *Handler {
	h := &Handler{
		files:    filesSvc,
		previews: previews,
		mux:      http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /api/files", h.handleListFiles)
	h.mux.HandleFunc("DELETE /api/files/{id}", h.handleDeleteFile)
	h.mux.HandleFunc("GET /api/files/{id}/content", h.handleFileContent)
	h.mux.HandleFunc("HEAD /api/files/{id}/content", h.handleFileContent)
	h.mux.HandleFunc("POST /api/upload", h.handleUpload)
	h.mux.HandleFunc("GET /api/settings", h.handleSettings)
	h.mux.HandleFunc("GET /api/media/{name}", h.handleMedia)
	h.mux.HandleFunc("POST /api/preview", h.handleOpenPreview)
	h.mux.HandleFunc("POST /api/preview/{id}/mode", h.handleSetPlaybackMode)
	h.mux.HandleFunc("POST /api/preview/{id}/frozen", h.handleToggleFrozen)
	h.mux.HandleFunc("POST /api/preview/{id}/stream", h.handleStreamEvent)
	h.mux.HandleFunc("DELETE /api/preview/{id}", h.handleClosePreview)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.HTTP.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// FilesResponse is the listing payload.
type FilesResponse struct {
	Files []*store.FileRecord `json:"files"`
	Total int                 `json:"total"`
}

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.files.Refresh(r.Context())
	if err != nil {
		logging.Internal.Printf("failed to fetch files: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch files")
		return
	}

	order := r.URL.Query().Get("sort")
	if order == "" {
		order = files.SortNameAsc
		if settings, err := h.files.Settings(r.Context()); err == nil && settings.DefaultSortOrder != "" {
			order = settings.DefaultSortOrder
		}
	}

	sorted := files.SortRecords(records, order)
	if sorted == nil {
		sorted = []*store.FileRecord{}
	}
	writeJSON(w, http.StatusOK, FilesResponse{Files: sorted, Total: len(sorted)})
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Success bool              `json:"success"`
	File    *store.FileRecord `json:"file"`
	Media   *store.MediaRef   `json:"media"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	payload, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer payload.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	rec, err := h.files.UploadWithProgress(r.Context(), payload, header.Filename, mimeType, header.Size, nil)
	if errors.Is(err, files.ErrValidation) {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	if err != nil {
		logging.Internal.Printf("upload failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	logging.Internal.Printf("upload complete: id=%s name=%s type=%s size=%d", rec.ID, rec.EpochName, rec.FileType, rec.SizeBytes)

	// Refresh the listing and the advisory usage counter. Failures here do
	// not invalidate the upload itself.
	if _, err := h.files.Refresh(r.Context()); err != nil {
		logging.Internal.Printf("listing refresh after upload failed: %v", err)
	}
	h.files.SyncStorageUsed(r.Context())

	writeJSON(w, http.StatusOK, UploadResponse{Success: true, File: rec, Media: rec.Media})
}

func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "File ID required")
		return
	}

	err := h.files.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		logging.Internal.Printf("delete failed for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}

	h.files.SyncStorageUsed(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SettingsResponse wraps the settings payload. Settings is null when none
// are configured.
type SettingsResponse struct {
	Settings *store.StorageSettings `json:"settings"`
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.files.Settings(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, SettingsResponse{Settings: nil})
		return
	}
	if err != nil {
		logging.Internal.Printf("failed to fetch settings: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch settings")
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
}

func (h *Handler) handleFileContent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, reader, err := h.files.Download(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, files.ErrNotFound) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		logging.Internal.Printf("download failed for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to download file")
		return
	}
	defer reader.Close()

	serveBlob(w, r, rec.OriginalName, time.UnixMilli(rec.UploadedAt), rec.SizeBytes, reader)
}

func (h *Handler) handleMedia(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	reader, err := h.files.OpenBlob(r.Context(), name)
	if errors.Is(err, files.ErrInvalidName) {
		writeError(w, http.StatusBadRequest, "Invalid blob name")
		return
	}
	if errors.Is(err, files.ErrNotFound) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		logging.Internal.Printf("media fetch failed for %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch media")
		return
	}
	defer reader.Close()

	serveBlob(w, r, name, time.Time{}, -1, reader)
}

// serveBlob streams a blob, with Range support when the reader can seek.
func serveBlob(w http.ResponseWriter, r *http.Request, name string, modTime time.Time, size int64, reader io.Reader) {
	if rs, ok := reader.(io.ReadSeeker); ok {
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeContent(w, r, name, modTime, rs)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, reader); err != nil {
		logging.HTTP.Printf("streaming %s aborted: %v", name, err)
	}
}

// OpenPreviewRequest asks for a preview session on a stored file.
type OpenPreviewRequest struct {
	FileID string `json:"file_id"`
}

// PreviewResponse describes an open preview session.
type PreviewResponse struct {
	SessionID   string `json:"session_id"`
	FileID      string `json:"file_id"`
	Player      string `json:"player"`
	Mode        string `json:"mode,omitempty"`
	NativeLoop  bool   `json:"native_loop"`
	Frozen      bool   `json:"frozen,omitempty"`
	StreamState string `json:"stream_state,omitempty"`
	StreamError string `json:"stream_error,omitempty"`
}

func previewResponse(sess *preview.Session) PreviewResponse {
	resp := PreviewResponse{
		SessionID: sess.ID(),
		FileID:    sess.FileID(),
		Player:    sess.Player().String(),
	}
	if sess.Player().Playable() {
		resp.Mode = string(sess.Mode())
		resp.NativeLoop = sess.Mode().NativeLoop()
	}
	if sess.Player() == preview.PlayerAnimatedImage {
		resp.Frozen = sess.Frozen()
	}
	if sess.Player() == preview.PlayerAdaptiveStream {
		resp.StreamState = sess.Stream().String()
		resp.StreamError = sess.StreamError()
	}
	return resp
}

func (h *Handler) handleOpenPreview(w http.ResponseWriter, r *http.Request) {
	var req OpenPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == "" {
		writeError(w, http.StatusBadRequest, "file_id required")
		return
	}

	rec, err := h.files.Record(r.Context(), req.FileID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		logging.Internal.Printf("preview open failed for %s: %v", req.FileID, err)
		writeError(w, http.StatusInternalServerError, "Failed to open preview")
		return
	}

	sess := h.previews.Open(extractIP(r), rec)
	writeJSON(w, http.StatusOK, previewResponse(sess))
}

// SetModeRequest selects a playback mode for an open preview.
type SetModeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handler) handleSetPlaybackMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.previews.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Preview session not found")
		return
	}

	var req SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, ok := preview.ParseMode(req.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playback mode")
		return
	}

	sess.SetMode(mode)
	writeJSON(w, http.StatusOK, previewResponse(sess))
}

func (h *Handler) handleToggleFrozen(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.previews.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Preview session not found")
		return
	}

	sess.ToggleFrozen()
	writeJSON(w, http.StatusOK, previewResponse(sess))
}

// StreamEventRequest reports an adaptive-stream lifecycle event from the
// player mount.
type StreamEventRequest struct {
	Event   string `json:"event"` // "ready" or "error"
	Message string `json:"message,omitempty"`
}

func (h *Handler) handleStreamEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.previews.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Preview session not found")
		return
	}
	if sess.Player() != preview.PlayerAdaptiveStream {
		writeError(w, http.StatusBadRequest, "not an adaptive stream preview")
		return
	}

	var req StreamEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Event {
	case "ready":
		sess.MarkStreamReady()
	case "error":
		msg := req.Message
		if msg == "" {
			msg = "Failed to load M3U8 playlist"
		}
		sess.FailStream(msg)
	default:
		writeError(w, http.StatusBadRequest, "unknown stream event")
		return
	}

	writeJSON(w, http.StatusOK, previewResponse(sess))
}

func (h *Handler) handleClosePreview(w http.ResponseWriter, r *http.Request) {
	if !h.previews.Close(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "Preview session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
