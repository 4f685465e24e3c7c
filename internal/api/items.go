package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/medshelf/medshelf/internal/cache"
	"github.com/medshelf/medshelf/internal/filter"
	"github.com/medshelf/medshelf/internal/form"
	"github.com/medshelf/medshelf/internal/gateway"
	"github.com/medshelf/medshelf/internal/model"
)

// maxItemFormBytes caps the whole multipart submit: the 5 MiB photo limit
// plus headroom for the text fields.
const maxItemFormBytes = form.MaxUploadBytes + (1 << 20)

// ItemsHandler handles supply item CRUD endpoints.
type ItemsHandler struct {
	Gateway    *gateway.Supply
	Items      *cache.Collection
	Controller *form.Controller
}

// List handles GET /api/items. The collection is loaded wholesale on first
// use and served from the shared cache afterwards; q, expiry, and category
// parameters narrow the result through the filter engine.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.Items.Loaded() || r.URL.Query().Get("refresh") == "1" {
		items, err := h.Gateway.ListItems(r.Context())
		if err != nil {
			slog.Error("failed to list items", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to list items")
			return
		}
		h.Items.Reset(items)
	}

	q := r.URL.Query()
	filtered := filter.Apply(h.Items.Items(), q.Get("q"), q.Get("expiry"), q.Get("category"))
	if filtered == nil {
		filtered = []model.SupplyItem{}
	}
	jsonResponse(w, http.StatusOK, filtered)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Gateway.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items (multipart form, optional image file).
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	draft, upload, ok := h.parseItemForm(w, r)
	if !ok {
		return
	}

	item, err := h.Controller.Submit(r.Context(), draft, upload, nil)
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/items/{id} (multipart form, optional image file).
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.Gateway.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	draft, upload, ok := h.parseItemForm(w, r)
	if !ok {
		return
	}

	item, err := h.Controller.Submit(r.Context(), draft, upload, existing)
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// PatchImage handles PUT /api/items/{id}/image. The body is a multipart
// form whose image part replaces the item's photo without touching any
// other field.
func (h *ItemsHandler) PatchImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.Gateway.GetItem(r.Context(), id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxItemFormBytes)
	if err := r.ParseMultipartForm(maxItemFormBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read image")
		return
	}

	upload := &form.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}

	item, err := h.Controller.SubmitImage(r.Context(), id, upload)
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Controller.SubmitDelete(r.Context(), r.PathValue("id")); err != nil {
		slog.Error("failed to delete item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// parseItemForm reads a multipart submit into a draft plus an optional
// pending image. It writes the error response itself and reports success.
func (h *ItemsHandler) parseItemForm(w http.ResponseWriter, r *http.Request) (*form.Draft, *form.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxItemFormBytes)

	if err := r.ParseMultipartForm(maxItemFormBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return nil, nil, false
	}

	draft := &form.Draft{}
	for name, values := range r.MultipartForm.Value {
		if len(values) == 0 {
			continue
		}
		if err := draft.SetField(name, values[0]); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return nil, nil, false
		}
	}

	var upload *form.Upload
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to read image")
			return nil, nil, false
		}
		upload = &form.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}

	return draft, upload, true
}

// writeSubmitError maps controller failures to responses: validation and
// upload precondition failures are 400s with the reason, persistence
// failures are 500s.
func writeSubmitError(w http.ResponseWriter, err error) {
	var missing *form.MissingFieldsError
	if errors.As(err, &missing) {
		jsonError(w, http.StatusBadRequest, missing.Error())
		return
	}
	var upload *form.UploadError
	if errors.As(err, &upload) {
		jsonError(w, http.StatusBadRequest, upload.Error())
		return
	}
	slog.Error("item submit failed", "error", err)
	jsonError(w, http.StatusInternalServerError, "failed to save item")
}
