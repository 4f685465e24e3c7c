package web

import (
	"database/sql"
	"net/http"

	"github.com/medshelf/medshelf/internal/cache"
	"github.com/medshelf/medshelf/internal/form"
	"github.com/medshelf/medshelf/internal/gateway"
	webembed "github.com/medshelf/medshelf/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(db *sql.DB, gw *gateway.Supply, items *cache.Collection, jwtSecret string) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:         db,
		Gateway:    gw,
		Items:      items,
		Controller: form.NewController(gw, items),
		Templates:  templates,
		JWTSecret:  jwtSecret,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(jwtSecret, db)
	adminPage := RequireAdminPage(gw)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Inventory dashboard (default page).
	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.Dashboard)))
	mux.Handle("POST /items", cookieAuth(http.HandlerFunc(s.ItemCreateSubmit)))
	mux.Handle("POST /items/{id}", cookieAuth(http.HandlerFunc(s.ItemUpdateSubmit)))
	mux.Handle("POST /items/{id}/delete", cookieAuth(http.HandlerFunc(s.ItemDeleteSubmit)))

	// Admin user management (admin only).
	mux.Handle("GET /admin/users", cookieAuth(adminPage(http.HandlerFunc(s.AdminUsersPage))))
	mux.Handle("POST /admin/users/{id}/role", cookieAuth(adminPage(http.HandlerFunc(s.AdminSetRoleSubmit))))

	return mux, nil
}
