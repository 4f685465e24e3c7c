package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/medshelf/medshelf/internal/gateway"
	"github.com/medshelf/medshelf/internal/model"
	"github.com/medshelf/medshelf/internal/store"
)

// AdminHandler handles the user / role management endpoints (admin only).
type AdminHandler struct {
	DB      *sql.DB
	Gateway *gateway.Supply
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// userWithRole augments an assignment with its resolved current role.
type userWithRole struct {
	model.UserRoleAssignment
	CurrentRole string `json:"current_role"`
}

// ListUsers handles GET /api/admin/users: every user with their aggregated
// role set and the precedence-resolved current role.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Gateway.ListUsersWithRoles(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	out := make([]userWithRole, 0, len(users))
	for _, u := range users {
		out = append(out, userWithRole{UserRoleAssignment: u, CurrentRole: u.CurrentRole()})
	}
	jsonResponse(w, http.StatusOK, out)
}

// SetRole handles PUT /api/admin/users/{id}/role: an atomic replace of the
// user's entire role set with the single chosen role.
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	var req setRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, userID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.Gateway.SetSingleRole(r.Context(), userID, req.Role); err != nil {
		slog.Error("failed to set role", "user", userID, "role", req.Role, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to set role")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("role replaced", "admin", claims.Email, "user", user.Email, "role", req.Role)
	jsonResponse(w, http.StatusOK, userWithRole{
		UserRoleAssignment: model.UserRoleAssignment{
			UserID: userID,
			Email:  user.Email,
			Roles:  []string{req.Role},
		},
		CurrentRole: req.Role,
	})
}

// ListRoles handles GET /api/admin/roles: the role catalog for selection
// controls.
func (h *AdminHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Gateway.ListRoles(r.Context())
	if err != nil {
		slog.Error("failed to list roles", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list roles")
		return
	}
	if roles == nil {
		roles = []model.Role{}
	}
	jsonResponse(w, http.StatusOK, roles)
}

// CreateUser handles POST /api/admin/users.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || req.Role == "" {
		jsonError(w, http.StatusBadRequest, "email, password, and role required")
		return
	}

	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Email, string(hash), req.Role)
	if err != nil {
		jsonError(w, http.StatusConflict, "email already exists")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("user created", "admin", claims.Email, "user", user.Email, "role", req.Role)
	jsonResponse(w, http.StatusCreated, user)
}
