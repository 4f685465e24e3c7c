package api

import (
	"database/sql"
	"net/http"

	"github.com/medshelf/medshelf/internal/cache"
	"github.com/medshelf/medshelf/internal/form"
	"github.com/medshelf/medshelf/internal/gateway"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, gw *gateway.Supply, items *cache.Collection, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	controller := form.NewController(gw, items)

	authHandler := &AuthHandler{DB: db, Gateway: gw, JWTSecret: jwtSecret}
	itemsHandler := &ItemsHandler{Gateway: gw, Items: items, Controller: controller}
	adminHandler := &AdminHandler{DB: db, Gateway: gw}

	authMW := AuthMiddleware(jwtSecret, db)
	requireManage := RequireManage(gw)
	requireAdmin := RequireAdmin(gw)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated session routes.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("GET /api/session", authMW(http.HandlerFunc(authHandler.Session)))

	// Items: read (any authenticated role), write (admin or volunteer).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireManage(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireManage(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("PUT /api/items/{id}/image", authMW(requireManage(http.HandlerFunc(itemsHandler.PatchImage))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireManage(http.HandlerFunc(itemsHandler.Delete))))

	// Admin: user and role management.
	mux.Handle("GET /api/admin/users", authMW(requireAdmin(http.HandlerFunc(adminHandler.ListUsers))))
	mux.Handle("POST /api/admin/users", authMW(requireAdmin(http.HandlerFunc(adminHandler.CreateUser))))
	mux.Handle("PUT /api/admin/users/{id}/role", authMW(requireAdmin(http.HandlerFunc(adminHandler.SetRole))))
	mux.Handle("GET /api/admin/roles", authMW(requireAdmin(http.HandlerFunc(adminHandler.ListRoles))))

	return mux
}
