package form

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medshelf/medshelf/internal/cache"
	"github.com/medshelf/medshelf/internal/model"
)

// Gateway is the slice of the data gateway the controller needs.
type Gateway interface {
	CreateItem(ctx context.Context, item model.SupplyItem) (*model.SupplyItem, error)
	UpdateItem(ctx context.Context, item model.SupplyItem) (*model.SupplyItem, error)
	PatchItemImage(ctx context.Context, id, imageURL string) (*model.SupplyItem, error)
	DeleteItem(ctx context.Context, id string) error
	UploadImage(ctx context.Context, itemID string, upload *Upload) (string, error)
}

// SubmitError wraps a persistence failure so callers can tell it apart from
// validation failures. The collection is never patched when one is returned.
type SubmitError struct {
	Op  string
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Controller orchestrates draft persistence against the gateway and keeps
// the shared collection consistent after each successful mutation.
type Controller struct {
	gw    Gateway
	items *cache.Collection
}

// NewController creates a form controller.
func NewController(gw Gateway, items *cache.Collection) *Controller {
	return &Controller{gw: gw, items: items}
}

// Submit validates and persists a draft. With an existing item it updates in
// place; otherwise it creates a new record. An attached image is validated
// locally first and uploaded around the persistence call as follows:
//
//   - edit: upload keyed by the existing identity before the update; if the
//     upload fails the record keeps its current image and the update still
//     proceeds;
//   - create: the record is created with the placeholder image, the image is
//     uploaded keyed by the newly assigned identity, and the record is then
//     patched with the uploaded URL. The identity does not exist before the
//     create, so the upload cannot come first.
func (c *Controller) Submit(ctx context.Context, draft *Draft, pendingImage *Upload, existing *model.SupplyItem) (*model.SupplyItem, error) {
	if pendingImage != nil {
		if err := pendingImage.Validate(); err != nil {
			return nil, err
		}
	}

	if existing != nil {
		return c.submitUpdate(ctx, draft, pendingImage, *existing)
	}
	return c.submitCreate(ctx, draft, pendingImage)
}

func (c *Controller) submitUpdate(ctx context.Context, draft *Draft, pendingImage *Upload, existing model.SupplyItem) (*model.SupplyItem, error) {
	merged := draft.Apply(existing)
	if err := ValidateForSubmit(merged); err != nil {
		return nil, err
	}

	if pendingImage != nil {
		url, err := c.gw.UploadImage(ctx, existing.ID, pendingImage)
		if err != nil {
			// Non-fatal: keep the record's current image and continue.
			slog.Warn("image upload failed, keeping existing image",
				"item", existing.ID, "error", err)
			merged.ImageURL = existing.ImageURL
		} else {
			merged.ImageURL = url
		}
	}

	updated, err := c.gw.UpdateItem(ctx, merged)
	if err != nil {
		return nil, &SubmitError{Op: "updating item", Err: err}
	}

	c.items.ApplyReplace(*updated)
	return updated, nil
}

func (c *Controller) submitCreate(ctx context.Context, draft *Draft, pendingImage *Upload) (*model.SupplyItem, error) {
	merged := draft.Apply(model.SupplyItem{})
	if err := ValidateForSubmit(merged); err != nil {
		return nil, err
	}

	// Phase one: persist with the placeholder image so the store assigns an
	// identity to key the upload by.
	merged.ImageURL = model.PlaceholderImageURL
	created, err := c.gw.CreateItem(ctx, merged)
	if err != nil {
		return nil, &SubmitError{Op: "creating item", Err: err}
	}

	if pendingImage != nil {
		url, err := c.gw.UploadImage(ctx, created.ID, pendingImage)
		if err != nil {
			slog.Warn("image upload failed, keeping placeholder image",
				"item", created.ID, "error", err)
		} else {
			// Phase two: patch the record with the uploaded URL.
			patched, err := c.gw.PatchItemImage(ctx, created.ID, url)
			if err != nil {
				slog.Warn("image patch failed, record keeps placeholder image",
					"item", created.ID, "error", err)
			} else {
				created = patched
			}
		}
	}

	c.items.ApplyPrepend(*created)
	return created, nil
}

// SubmitImage replaces only an existing record's photo: upload keyed by the
// identity, then patch the image reference. Unlike the saga inside Submit
// there is no field edit to protect, so failures surface instead of
// degrading.
func (c *Controller) SubmitImage(ctx context.Context, id string, upload *Upload) (*model.SupplyItem, error) {
	if err := upload.Validate(); err != nil {
		return nil, err
	}

	url, err := c.gw.UploadImage(ctx, id, upload)
	if err != nil {
		return nil, &SubmitError{Op: "uploading image", Err: err}
	}

	patched, err := c.gw.PatchItemImage(ctx, id, url)
	if err != nil {
		return nil, &SubmitError{Op: "patching item image", Err: err}
	}

	c.items.ApplyReplace(*patched)
	return patched, nil
}

// SubmitDelete removes the record through the gateway and patches the
// collection only after the remote call resolves.
func (c *Controller) SubmitDelete(ctx context.Context, id string) error {
	if err := c.gw.DeleteItem(ctx, id); err != nil {
		return &SubmitError{Op: "deleting item", Err: err}
	}
	c.items.ApplyRemove(id)
	return nil
}
