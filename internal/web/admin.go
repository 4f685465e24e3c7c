package web

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/medshelf/medshelf/internal/model"
)

// adminUserRow is one row of the user management table.
type adminUserRow struct {
	model.UserRoleAssignment
	CurrentRole string
}

// AdminUsersPage handles GET /admin/users.
func (s *Server) AdminUsersPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	caps := s.Gateway.CapabilitiesFor(r.Context(), claims.UserID)

	users, err := s.Gateway.ListUsersWithRoles(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
	}

	rows := make([]adminUserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, adminUserRow{UserRoleAssignment: u, CurrentRole: u.CurrentRole()})
	}

	q := r.URL.Query()
	s.Templates.Render(w, "admin_users.html", &struct {
		PageData
		Users []adminUserRow
	}{
		PageData: PageData{
			Title:   "User management",
			User:    claims,
			Caps:    caps,
			Error:   q.Get("error"),
			Success: q.Get("success"),
		},
		Users: rows,
	})
}

// AdminSetRoleSubmit handles POST /admin/users/{id}/role.
func (s *Server) AdminSetRoleSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	userID := r.PathValue("id")
	role := r.FormValue("role")

	if !model.ValidRole(role) {
		s.redirectAdmin(w, r, "error", "Invalid role.")
		return
	}

	if err := s.Gateway.SetSingleRole(r.Context(), userID, role); err != nil {
		slog.Error("failed to set role", "admin", claims.Email, "user", userID, "error", err)
		s.redirectAdmin(w, r, "error", "Failed to change the role.")
		return
	}

	slog.Info("role replaced", "admin", claims.Email, "user", userID, "role", role)
	s.redirectAdmin(w, r, "success", "Role updated.")
}

func (s *Server) redirectAdmin(w http.ResponseWriter, r *http.Request, kind, message string) {
	http.Redirect(w, r, "/admin/users?"+kind+"="+url.QueryEscape(message), http.StatusSeeOther)
}
