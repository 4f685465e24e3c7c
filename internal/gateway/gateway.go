// Package gateway is the typed facade over the relational store and the
// object store. It is the sole writer of persisted state; everything above
// it works with fully defaulted SupplyItems.
package gateway

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/medshelf/medshelf/internal/form"
	"github.com/medshelf/medshelf/internal/imaging"
	"github.com/medshelf/medshelf/internal/model"
	"github.com/medshelf/medshelf/internal/objectstore"
	"github.com/medshelf/medshelf/internal/store"
)

// Supply implements the data gateway over SQLite and S3-compatible storage.
type Supply struct {
	db      *sql.DB
	objects *objectstore.Store
}

// New creates a gateway. objects may be nil when object storage is not
// configured; uploads then fail with a clear error and records keep their
// current image.
func New(db *sql.DB, objects *objectstore.Store) *Supply {
	return &Supply{db: db, objects: objects}
}

// ListItems fetches the whole collection (full scan, no pagination).
func (g *Supply) ListItems(ctx context.Context) ([]model.SupplyItem, error) {
	return store.ListItems(ctx, g.db)
}

// GetItem fetches one item by identity.
func (g *Supply) GetItem(ctx context.Context, id string) (*model.SupplyItem, error) {
	return store.GetItem(ctx, g.db, id)
}

// CreateItem persists a new record and returns it with its assigned identity.
func (g *Supply) CreateItem(ctx context.Context, item model.SupplyItem) (*model.SupplyItem, error) {
	return store.CreateItem(ctx, g.db, item)
}

// UpdateItem replaces a record in place and returns the reconciled row.
func (g *Supply) UpdateItem(ctx context.Context, item model.SupplyItem) (*model.SupplyItem, error) {
	return store.UpdateItem(ctx, g.db, item)
}

// PatchItemImage updates only the image reference and returns the fresh row.
func (g *Supply) PatchItemImage(ctx context.Context, id, imageURL string) (*model.SupplyItem, error) {
	if err := store.SetItemImageURL(ctx, g.db, id, imageURL); err != nil {
		return nil, err
	}
	return store.GetItem(ctx, g.db, id)
}

// DeleteItem removes a record.
func (g *Supply) DeleteItem(ctx context.Context, id string) error {
	return store.DeleteItem(ctx, g.db, id)
}

// UploadImage normalizes and uploads a photo, keyed by the item identity
// (or a temp name when the identity is not yet known), and returns the
// public URL.
func (g *Supply) UploadImage(ctx context.Context, itemID string, upload *form.Upload) (string, error) {
	if g.objects == nil {
		return "", fmt.Errorf("object storage not configured")
	}

	processed, err := imaging.Process(bytes.NewReader(upload.Data))
	if err != nil {
		return "", fmt.Errorf("processing image: %w", err)
	}

	// The key extension follows the re-encoded bytes, not the original
	// filename: a .png upload is stored as JPEG.
	var key string
	if itemID != "" {
		key = objectstore.ObjectKey(itemID, processed.Ext)
	} else {
		key = objectstore.TempObjectKey(processed.Ext)
	}

	return g.objects.Upload(ctx, key, processed.MIME, processed.Data)
}

// ListUsersWithRoles returns every user with their aggregated role set.
func (g *Supply) ListUsersWithRoles(ctx context.Context) ([]model.UserRoleAssignment, error) {
	return store.ListUsersWithRoles(ctx, g.db)
}

// SetSingleRole atomically replaces a user's role set with one role.
func (g *Supply) SetSingleRole(ctx context.Context, userID, roleName string) error {
	return store.SetSingleRole(ctx, g.db, userID, roleName)
}

// ListRoles returns the role catalog.
func (g *Supply) ListRoles(ctx context.Context) ([]model.Role, error) {
	return store.ListRoles(ctx, g.db)
}

// CapabilitiesFor resolves a user's capability set. Any failure, including
// an empty identity, degrades to the empty set: no accidental elevation.
func (g *Supply) CapabilitiesFor(ctx context.Context, userID string) model.Capabilities {
	if userID == "" {
		return model.Capabilities{}
	}
	roles, err := store.GetUserRoles(ctx, g.db, userID)
	if err != nil {
		slog.Error("failed to resolve roles, failing closed", "user", userID, "error", err)
		return model.Capabilities{}
	}
	return model.CapabilitiesFor(roles)
}
