package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/medshelf/medshelf/internal/model"
)

const itemColumns = `id, name, description, lot_number, expires_on, quantity,
	image_url, is_expired, category, location, company, boxes_per_pallet,
	cartons_per_pallet, unit_boxes_per_carton, units_per_box, weight_kg,
	dimensions, unit_cost, carton_cost, external_link, notes, created_at, updated_at`

// CreateItem inserts a new supply item and assigns its identity.
func CreateItem(ctx context.Context, db *sql.DB, item model.SupplyItem) (*model.SupplyItem, error) {
	item.ID = uuid.NewString()
	row := item.Row()

	_, err := db.ExecContext(ctx,
		`INSERT INTO supply_items (id, name, description, lot_number, expires_on, quantity,
		 image_url, is_expired, category, location, company, boxes_per_pallet,
		 cartons_per_pallet, unit_boxes_per_carton, units_per_box, weight_kg,
		 dimensions, unit_cost, carton_cost, external_link, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Name, row.Description, row.LotNumber, row.ExpiresOn, row.Quantity,
		row.ImageURL, row.IsExpired, row.Category, row.Location, row.Company, row.BoxesPerPallet,
		row.CartonsPerPallet, row.UnitBoxesPerCarton, row.UnitsPerBox, row.WeightKg,
		row.Dimensions, row.UnitCost, row.CartonCost, row.ExternalLink, row.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, item.ID)
}

// GetItem returns a supply item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.SupplyItem, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM supply_items WHERE id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all supply items, newest first.
func ListItems(ctx context.Context, db *sql.DB) ([]model.SupplyItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM supply_items ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.SupplyItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem replaces a supply item's stored fields and returns the fresh row.
func UpdateItem(ctx context.Context, db *sql.DB, item model.SupplyItem) (*model.SupplyItem, error) {
	row := item.Row()

	_, err := db.ExecContext(ctx,
		`UPDATE supply_items SET name = ?, description = ?, lot_number = ?, expires_on = ?,
		 quantity = ?, image_url = ?, is_expired = ?, category = ?, location = ?, company = ?,
		 boxes_per_pallet = ?, cartons_per_pallet = ?, unit_boxes_per_carton = ?, units_per_box = ?,
		 weight_kg = ?, dimensions = ?, unit_cost = ?, carton_cost = ?, external_link = ?,
		 notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		row.Name, row.Description, row.LotNumber, row.ExpiresOn,
		row.Quantity, row.ImageURL, row.IsExpired, row.Category, row.Location, row.Company,
		row.BoxesPerPallet, row.CartonsPerPallet, row.UnitBoxesPerCarton, row.UnitsPerBox,
		row.WeightKg, row.Dimensions, row.UnitCost, row.CartonCost, row.ExternalLink,
		row.Notes, row.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	return GetItem(ctx, db, item.ID)
}

// SetItemImageURL patches only an item's image reference.
func SetItemImageURL(ctx context.Context, db *sql.DB, id, imageURL string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE supply_items SET image_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		imageURL, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image url: %w", err)
	}
	return nil
}

// DeleteItem removes a supply item.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM supply_items WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.SupplyItem, error) {
	var row model.ItemRow
	err := s.Scan(
		&row.ID, &row.Name, &row.Description, &row.LotNumber, &row.ExpiresOn, &row.Quantity,
		&row.ImageURL, &row.IsExpired, &row.Category, &row.Location, &row.Company, &row.BoxesPerPallet,
		&row.CartonsPerPallet, &row.UnitBoxesPerCarton, &row.UnitsPerBox, &row.WeightKg,
		&row.Dimensions, &row.UnitCost, &row.CartonCost, &row.ExternalLink, &row.Notes,
		&row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item := model.ItemFromRow(row)
	return &item, nil
}
