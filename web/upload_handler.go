package web

import (
	"io"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"imagerelay/imagegen"
	"imagerelay/logging"
	"imagerelay/storage"
)

// DefaultMaxUploadSize caps multipart upload bodies at 10 MB.
const DefaultMaxUploadSize = 10 << 20

// uploadFieldName is the multipart form field carrying the file.
const uploadFieldName = "image"

// uploadResponse is the body returned by the upload endpoint.
type uploadResponse struct {
	Status  string `json:"status"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UploadHandler serves POST /upload-image: it accepts a multipart file,
// forwards it to the configured uploader and returns the public URL.
type UploadHandler struct {
	uploader storage.Uploader
	logger   *logging.Logger
	maxSize  int64
}

// NewUploadHandler creates an UploadHandler. A maxSize of zero or less
// falls back to DefaultMaxUploadSize.
func NewUploadHandler(uploader storage.Uploader, logger *logging.Logger, maxSize int64) *UploadHandler {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &UploadHandler{
		uploader: uploader,
		logger:   logger.Named("upload"),
		maxSize:  maxSize,
	}
}

// ServeHTTP handles one upload request.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, uploadResponse{
			Status:  imagegen.StatusError,
			Message: "Method not allowed",
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Status:  imagegen.StatusError,
			Message: "No file uploaded!",
		})
		return
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Status:  imagegen.StatusError,
			Message: "No file uploaded!",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read upload body",
			zap.String("filename", header.Filename),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, uploadResponse{
			Status:  imagegen.StatusError,
			Message: "Image upload failed",
			Error:   err.Error(),
		})
		return
	}

	url, err := h.uploader.Upload(r.Context(), storage.UploadParams{
		Filename:    header.Filename,
		Data:        data,
		ContentType: contentTypeForUpload(header.Filename, header.Header.Get("Content-Type")),
	})
	if err != nil {
		h.logger.Error("Upload failed",
			zap.String("filename", header.Filename),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, uploadResponse{
			Status:  imagegen.StatusError,
			Message: "Image upload failed",
			Error:   err.Error(),
		})
		return
	}

	h.logger.Info("Upload complete",
		zap.String("filename", header.Filename),
		zap.Int("size_bytes", len(data)),
		zap.String("url", url))
	writeJSON(w, http.StatusOK, uploadResponse{
		Status: imagegen.StatusSuccess,
		URL:    url,
	})
}

// contentTypeForUpload prefers the client-declared content type, falling
// back to a guess from the file extension.
func contentTypeForUpload(filename, declared string) string {
	if declared != "" {
		return declared
	}
	switch filepath.Ext(filename) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
