package handlers

import (
	"net/http"

	"skillswap-gateway/internal/services"

	"github.com/rs/zerolog/log"
)

const maxPhotoSize = 10 << 20

// PhotoHandler handles profile photo uploads
type PhotoHandler struct {
	photoService *services.PhotoService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
	}
}

// CompleteUploadRequest names a staged photo
type CompleteUploadRequest struct {
	Key string `json:"key"`
}

// UploadURL handles POST /api/v1/photos/upload-url
func (h *PhotoHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	var req services.UploadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	res, err := h.photoService.UploadURL(r.Context(), uid, req.Filename, req.ContentType)
	if err != nil {
		log.Error().Err(err).Int64("user_id", uid).Msg("Failed to create upload URL")
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// Complete handles POST /api/v1/photos/complete
func (h *PhotoHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	if req.Key == "" {
		respondError(w, "key is required", http.StatusBadRequest)
		return
	}

	photo, err := h.photoService.CompleteUpload(r.Context(), userID(r), req.Key)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, photo)
}

// Upload handles POST /api/v1/photos with a multipart "file" field
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		respondError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	photo, err := h.photoService.Upload(r.Context(), userID(r), hdr.Filename, file)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, photo)
}
