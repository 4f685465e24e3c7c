package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/medshelf/medshelf/internal/filter"
	"github.com/medshelf/medshelf/internal/form"
	"github.com/medshelf/medshelf/internal/model"
)

// Dashboard handles GET /: the inventory table with its filter controls.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	caps := s.Gateway.CapabilitiesFor(r.Context(), claims.UserID)

	if !s.Items.Loaded() {
		items, err := s.Gateway.ListItems(r.Context())
		if err != nil {
			slog.Error("failed to list items", "error", err)
		} else {
			s.Items.Reset(items)
		}
	}

	q := r.URL.Query()
	query := q.Get("q")
	expiry := q.Get("expiry")
	category := q.Get("category")
	filtered := filter.Apply(s.Items.Items(), query, expiry, category)

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		Items    []model.SupplyItem
		Query    string
		Expiry   string
		Category string
	}{
		PageData: PageData{
			Title:   "Inventory",
			User:    claims,
			Caps:    caps,
			Error:   q.Get("error"),
			Success: q.Get("success"),
		},
		Items:    filtered,
		Query:    query,
		Expiry:   expiry,
		Category: category,
	})
}

// ItemCreateSubmit handles POST /items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	s.submitItem(w, r, nil)
}

// ItemUpdateSubmit handles POST /items/{id}.
func (s *Server) ItemUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	existing, err := s.Gateway.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get item", "error", err)
		redirectNotice(w, r, "error", "Failed to load the item.")
		return
	}
	if existing == nil {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	s.submitItem(w, r, existing)
}

// ItemDeleteSubmit handles POST /items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !s.Gateway.CapabilitiesFor(r.Context(), claims.UserID).CanManage {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := s.Controller.SubmitDelete(r.Context(), r.PathValue("id")); err != nil {
		slog.Error("failed to delete item", "error", err)
		redirectNotice(w, r, "error", "Failed to delete the item.")
		return
	}
	redirectNotice(w, r, "success", "Item deleted.")
}

// itemFormFields are the draft fields read from the item modal form.
var itemFormFields = []string{
	"name", "description", "lot_number", "expires_on", "quantity", "is_expired",
	"category", "location", "company", "boxes_per_pallet", "cartons_per_pallet",
	"unit_boxes_per_carton", "units_per_box", "weight_kg", "dimensions",
	"unit_cost", "carton_cost", "external_link", "notes",
}

// submitItem runs a dashboard modal submit through the form controller. The
// record keeps its place in the shared collection; failures redirect back
// with a notice and leave local state untouched.
func (s *Server) submitItem(w http.ResponseWriter, r *http.Request, existing *model.SupplyItem) {
	claims := GetWebClaims(r.Context())
	if !s.Gateway.CapabilitiesFor(r.Context(), claims.UserID).CanManage {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, form.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(form.MaxUploadBytes + (1 << 20)); err != nil {
		redirectNotice(w, r, "error", "The submitted form was too large or malformed.")
		return
	}

	draft := &form.Draft{}
	for _, name := range itemFormFields {
		if values, ok := r.MultipartForm.Value[name]; ok && len(values) > 0 {
			if err := draft.SetField(name, values[0]); err != nil {
				redirectNotice(w, r, "error", err.Error())
				return
			}
		}
	}
	// An unticked checkbox is simply absent from the form.
	if existing != nil && draft.IsExpired == nil {
		off := false
		draft.IsExpired = &off
	}

	var upload *form.Upload
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			redirectNotice(w, r, "error", "Failed to read the attached image.")
			return
		}
		if len(data) > 0 {
			upload = &form.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			}
		}
	}

	if _, err := s.Controller.Submit(r.Context(), draft, upload, existing); err != nil {
		slog.Error("item submit failed", "user", claims.Email, "error", err)
		redirectNotice(w, r, "error", submitNotice(err))
		return
	}

	if existing != nil {
		redirectNotice(w, r, "success", "Item updated.")
	} else {
		redirectNotice(w, r, "success", "Item added.")
	}
}

// submitNotice maps a submit failure to a short user-facing notice.
func submitNotice(err error) string {
	switch err.(type) {
	case *form.MissingFieldsError, *form.UploadError:
		return err.Error()
	default:
		return "Failed to save the item, please try again."
	}
}

// redirectNotice redirects back to the dashboard with a notice parameter.
func redirectNotice(w http.ResponseWriter, r *http.Request, kind, message string) {
	http.Redirect(w, r, "/?"+kind+"="+url.QueryEscape(message), http.StatusSeeOther)
}
