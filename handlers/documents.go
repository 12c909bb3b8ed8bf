package handlers

import (
	"net/http"

	"p9e.in/crusher/utils"
)

const maxDocumentSize = 50 << 20

// UploadDocument attaches a multipart "file" field to a dispatch
func (h *DispatchHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, "UploadDocument", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize+(1<<20))
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		writeError(w, r, h.logger, "UploadDocument",
			utils.ValidationError("bad multipart form", map[string]string{"file": err.Error()}))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.logger, "UploadDocument",
			utils.ValidationError("missing file field", map[string]string{"file": "is required"}))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	d, err := h.dispatches.AttachDocument(r.Context(), id, header.Filename, contentType, file)
	if err != nil {
		writeError(w, r, h.logger, "UploadDocument", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}
