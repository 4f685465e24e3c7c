package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/crypto/bcrypt"

	"github.com/medshelf/medshelf/internal/auth"
	"github.com/medshelf/medshelf/internal/cache"
	"github.com/medshelf/medshelf/internal/db"
	"github.com/medshelf/medshelf/internal/gateway"
	"github.com/medshelf/medshelf/internal/model"
	"github.com/medshelf/medshelf/internal/objectstore"
	"github.com/medshelf/medshelf/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)
	gw := gateway.New(database, nil)
	items := &cache.Collection{}
	router := NewRouter(database, gw, items, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin@example.org", string(hash), model.RoleAdmin)

	// Get token.
	body, _ := json.Marshal(map[string]string{"email": "admin@example.org", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}

	return server, token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// itemForm builds the multipart submit the item endpoints expect.
func itemForm(method, url, token string, fields map[string]string) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		w.WriteField(name, value)
	}
	w.Close()

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

func validItemFields() map[string]string {
	return map[string]string{
		"name":       "Nitrile Gloves",
		"quantity":   "100",
		"category":   model.CategoryPPE,
		"expires_on": "2027-05-01",
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"email": "admin@example.org", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestItemsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	// Create item.
	req, _ := itemForm("POST", server.URL+"/api/items", token, validItemFields())
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created model.SupplyItem
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.ID == "" {
		t.Fatal("expected assigned identity")
	}
	if created.ImageURL != model.PlaceholderImageURL {
		t.Errorf("expected placeholder image without upload, got %q", created.ImageURL)
	}

	// List items.
	req, _ = authRequest("GET", server.URL+"/api/items", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var items []model.SupplyItem
	json.NewDecoder(resp.Body).Decode(&items)
	resp.Body.Close()
	if len(items) != 1 || items[0].ID != created.ID {
		t.Errorf("expected created item in list, got %+v", items)
	}

	// Update item.
	fields := validItemFields()
	fields["quantity"] = "42"
	req, _ = itemForm("PUT", server.URL+"/api/items/"+created.ID, token, fields)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for update, got %d", resp.StatusCode)
	}
	var updated model.SupplyItem
	json.NewDecoder(resp.Body).Decode(&updated)
	resp.Body.Close()
	if updated.Quantity != 42 {
		t.Errorf("expected quantity 42, got %d", updated.Quantity)
	}

	// Get item.
	req, _ = authRequest("GET", server.URL+"/api/items/"+created.ID, token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for get, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Delete item.
	req, _ = authRequest("DELETE", server.URL+"/api/items/"+created.ID, token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/items/"+created.ID, token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateItemValidation(t *testing.T) {
	server, token := setupTestServer(t)

	// Missing required fields, including a quantity of exactly zero.
	req, _ := itemForm("POST", server.URL+"/api/items", token, map[string]string{
		"name":     "Gloves",
		"quantity": "0",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid submit, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestListItemsFilters(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := itemForm("POST", server.URL+"/api/items", token, validItemFields())
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()

	fields := map[string]string{
		"name":       "Expired Gauze",
		"quantity":   "5",
		"category":   model.CategoryWoundCare,
		"expires_on": "2020-01-01",
		"is_expired": "on",
	}
	req, _ = itemForm("POST", server.URL+"/api/items", token, fields)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()

	var items []model.SupplyItem

	req, _ = authRequest("GET", server.URL+"/api/items?expiry=expired", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	json.NewDecoder(resp.Body).Decode(&items)
	resp.Body.Close()
	if len(items) != 1 || items[0].Name != "Expired Gauze" {
		t.Errorf("expected only the expired item, got %+v", items)
	}

	req, _ = authRequest("GET", server.URL+"/api/items?q=gloves&category="+model.CategoryPPE, token, nil)
	resp, _ = http.DefaultClient.Do(req)
	json.NewDecoder(resp.Body).Decode(&items)
	resp.Body.Close()
	if len(items) != 1 || items[0].Name != "Nitrile Gloves" {
		t.Errorf("expected only the gloves, got %+v", items)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, gateway.New(database, nil), &cache.Collection{}, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	database := db.NewTestDB(t)
	gw := gateway.New(database, nil)
	items := &cache.Collection{}
	router := NewRouter(database, gw, items, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	visitor, _ := store.CreateUser(ctx, database, "visitor@example.org", string(hash), model.RoleVisitor)
	volunteer, _ := store.CreateUser(ctx, database, "vol@example.org", string(hash), model.RoleVolunteer)

	visitorToken, _ := auth.GenerateToken(testJWTSecret, visitor.ID, visitor.Email, []string{model.RoleVisitor})
	volunteerToken, _ := auth.GenerateToken(testJWTSecret, volunteer.ID, volunteer.Email, []string{model.RoleVolunteer})

	// Visitors can read but not write.
	req, _ := authRequest("GET", server.URL+"/api/items", visitorToken, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for visitor read, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = itemForm("POST", server.URL+"/api/items", visitorToken, validItemFields())
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for visitor creating item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Volunteers manage items but never see the admin surface.
	req, _ = itemForm("POST", server.URL+"/api/items", volunteerToken, validItemFields())
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201 for volunteer creating item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/admin/users", volunteerToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for volunteer accessing admin, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSessionEndpoint(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := authRequest("GET", server.URL+"/api/session", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var session struct {
		Email        string             `json:"email"`
		Capabilities model.Capabilities `json:"capabilities"`
	}
	json.NewDecoder(resp.Body).Decode(&session)
	resp.Body.Close()

	if session.Email != "admin@example.org" {
		t.Errorf("expected admin email, got %q", session.Email)
	}
	if !session.Capabilities.IsAdmin || !session.Capabilities.CanManage {
		t.Errorf("expected full capabilities for admin, got %+v", session.Capabilities)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The revoked token no longer works.
	req, _ = authRequest("GET", server.URL+"/api/items", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminUserManagement(t *testing.T) {
	server, token := setupTestServer(t)

	// Create a volunteer.
	req, _ := authRequest("POST", server.URL+"/api/admin/users", token, map[string]string{
		"email":    "new@example.org",
		"password": "password123",
		"role":     model.RoleVolunteer,
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created model.User
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// Promote to admin: the whole role set is replaced with one role.
	req, _ = authRequest("PUT", server.URL+"/api/admin/users/"+created.ID+"/role", token, map[string]string{
		"role": model.RoleAdmin,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for role set, got %d", resp.StatusCode)
	}
	var withRole struct {
		Roles       []string `json:"roles"`
		CurrentRole string   `json:"current_role"`
	}
	json.NewDecoder(resp.Body).Decode(&withRole)
	resp.Body.Close()
	if len(withRole.Roles) != 1 || withRole.Roles[0] != model.RoleAdmin || withRole.CurrentRole != model.RoleAdmin {
		t.Errorf("expected single admin role, got %+v", withRole)
	}

	// Unknown role is rejected up front.
	req, _ = authRequest("PUT", server.URL+"/api/admin/users/"+created.ID+"/role", token, map[string]string{
		"role": "superuser",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing user is a 404.
	req, _ = authRequest("PUT", server.URL+"/api/admin/users/no-such-id/role", token, map[string]string{
		"role": model.RoleVisitor,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing user, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Listing shows both users with resolved roles.
	req, _ = authRequest("GET", server.URL+"/api/admin/users", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var users []struct {
		Email       string `json:"email"`
		CurrentRole string `json:"current_role"`
	}
	json.NewDecoder(resp.Body).Decode(&users)
	resp.Body.Close()
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestRoleChangeTakesEffectImmediately(t *testing.T) {
	database := db.NewTestDB(t)
	gw := gateway.New(database, nil)
	router := NewRouter(database, gw, &cache.Collection{}, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	volunteer, _ := store.CreateUser(ctx, database, "vol@example.org", string(hash), model.RoleVolunteer)
	token, _ := auth.GenerateToken(testJWTSecret, volunteer.ID, volunteer.Email, []string{model.RoleVolunteer})

	req, _ := itemForm("POST", server.URL+"/api/items", token, validItemFields())
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for volunteer creating item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Demote the volunteer. The token still carries the old role, but the
	// very next request must already be refused.
	if err := store.SetSingleRole(ctx, database, volunteer.ID, model.RoleVisitor); err != nil {
		t.Fatalf("SetSingleRole: %v", err)
	}

	req, _ = itemForm("POST", server.URL+"/api/items", token, validItemFields())
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 after demotion, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Reads stay available to the demoted user.
	req, _ = authRequest("GET", server.URL+"/api/items", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for demoted read, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// apiFakeS3 captures the last PutObject for endpoint tests.
type apiFakeS3 struct {
	putKey  string
	putType string
}

func (f *apiFakeS3) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putKey = *input.Key
	f.putType = *input.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *apiFakeS3) DeleteObject(_ context.Context, _ *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, nil
}

// imageForm builds a multipart body with a single typed image part.
func imageForm(method, url, token, filename, contentType string, data []byte) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, err
	}
	part.Write(data)
	w.Close()

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

func TestItemImageEndpoint(t *testing.T) {
	database := db.NewTestDB(t)
	fake := &apiFakeS3{}
	objects := objectstore.NewWithClient(fake, objectstore.Config{
		Bucket:   "supplies",
		Endpoint: "https://minio.local",
	})
	gw := gateway.New(database, objects)
	router := NewRouter(database, gw, &cache.Collection{}, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	admin, _ := store.CreateUser(ctx, database, "admin@example.org", string(hash), model.RoleAdmin)
	token, _ := auth.GenerateToken(testJWTSecret, admin.ID, admin.Email, []string{model.RoleAdmin})

	req, _ := itemForm("POST", server.URL+"/api/items", token, validItemFields())
	resp, _ := http.DefaultClient.Do(req)
	var created model.SupplyItem
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	var pngBuf bytes.Buffer
	png.Encode(&pngBuf, img)

	req, _ = imageForm("PUT", server.URL+"/api/items/"+created.ID+"/image", token, "photo.png", "image/png", pngBuf.Bytes())
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for image replace, got %d", resp.StatusCode)
	}
	var patched model.SupplyItem
	json.NewDecoder(resp.Body).Decode(&patched)
	resp.Body.Close()

	if !strings.HasSuffix(fake.putKey, ".jpg") {
		t.Errorf("expected stored key with .jpg suffix, got %q", fake.putKey)
	}
	if fake.putType != "image/jpeg" {
		t.Errorf("expected image/jpeg upload, got %q", fake.putType)
	}
	if patched.ImageURL == model.PlaceholderImageURL || !strings.HasSuffix(patched.ImageURL, ".jpg") {
		t.Errorf("expected uploaded image url, got %q", patched.ImageURL)
	}

	// The change is persisted, not just echoed.
	req, _ = authRequest("GET", server.URL+"/api/items/"+created.ID, token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var fetched model.SupplyItem
	json.NewDecoder(resp.Body).Decode(&fetched)
	resp.Body.Close()
	if fetched.ImageURL != patched.ImageURL {
		t.Errorf("expected persisted image url %q, got %q", patched.ImageURL, fetched.ImageURL)
	}

	// A missing file part is rejected up front.
	req, _ = itemForm("PUT", server.URL+"/api/items/"+created.ID+"/image", token, map[string]string{})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without a file, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown items are a 404 before any upload work.
	req, _ = imageForm("PUT", server.URL+"/api/items/no-such-id/image", token, "photo.png", "image/png", pngBuf.Bytes())
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown item, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminRolesCatalog(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := authRequest("GET", server.URL+"/api/admin/roles", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var roles []model.Role
	json.NewDecoder(resp.Body).Decode(&roles)
	resp.Body.Close()
	if len(roles) != 3 {
		t.Errorf("expected 3 roles, got %d", len(roles))
	}
}
