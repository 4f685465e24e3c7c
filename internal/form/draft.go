// Package form manages a partially filled supply item draft and orchestrates
// its persistence, including the optional photo upload.
package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/medshelf/medshelf/internal/model"
)

// Draft is a partial supply item. Only fields that have been set through
// SetField are non-nil; everything else keeps the base record's value when
// the draft is applied.
type Draft struct {
	Name               *string
	Description        *string
	LotNumber          *string
	ExpiresOn          *string
	Quantity           *int
	IsExpired          *bool
	Category           *string
	Location           *string
	Company            *string
	BoxesPerPallet     *int
	CartonsPerPallet   *int
	UnitBoxesPerCarton *int
	UnitsPerBox        *int
	WeightKg           *float64
	Dimensions         *string
	UnitCost           *float64
	CartonCost         *float64
	ExternalLink       *string
	Notes              *string
}

// SetField merges one field value into the draft. Values arrive as form
// strings and are parsed per field; no business validation happens here.
func (d *Draft) SetField(name, value string) error {
	switch name {
	case "name":
		d.Name = &value
	case "description":
		d.Description = &value
	case "lot_number":
		d.LotNumber = &value
	case "expires_on":
		d.ExpiresOn = &value
	case "quantity":
		return setInt(&d.Quantity, name, value)
	case "is_expired":
		b := value == "on" || value == "true" || value == "1"
		d.IsExpired = &b
	case "category":
		d.Category = &value
	case "location":
		d.Location = &value
	case "company":
		d.Company = &value
	case "boxes_per_pallet":
		return setInt(&d.BoxesPerPallet, name, value)
	case "cartons_per_pallet":
		return setInt(&d.CartonsPerPallet, name, value)
	case "unit_boxes_per_carton":
		return setInt(&d.UnitBoxesPerCarton, name, value)
	case "units_per_box":
		return setInt(&d.UnitsPerBox, name, value)
	case "weight_kg":
		return setFloat(&d.WeightKg, name, value)
	case "dimensions":
		d.Dimensions = &value
	case "unit_cost":
		return setFloat(&d.UnitCost, name, value)
	case "carton_cost":
		return setFloat(&d.CartonCost, name, value)
	case "external_link":
		d.ExternalLink = &value
	case "notes":
		d.Notes = &value
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	return nil
}

// Apply merges the draft onto a base record. Fields never set stay at the
// base's value, so an edit draft only needs the fields that changed.
func (d *Draft) Apply(base model.SupplyItem) model.SupplyItem {
	item := base
	if d.Name != nil {
		item.Name = *d.Name
	}
	if d.Description != nil {
		item.Description = *d.Description
	}
	if d.LotNumber != nil {
		item.LotNumber = *d.LotNumber
	}
	if d.ExpiresOn != nil {
		item.ExpiresOn = *d.ExpiresOn
	}
	if d.Quantity != nil {
		item.Quantity = *d.Quantity
	}
	if d.IsExpired != nil {
		item.IsExpired = *d.IsExpired
	}
	if d.Category != nil {
		item.Category = *d.Category
	}
	if d.Location != nil {
		item.Location = *d.Location
	}
	if d.Company != nil {
		item.Company = *d.Company
	}
	if d.BoxesPerPallet != nil {
		item.BoxesPerPallet = *d.BoxesPerPallet
	}
	if d.CartonsPerPallet != nil {
		item.CartonsPerPallet = *d.CartonsPerPallet
	}
	if d.UnitBoxesPerCarton != nil {
		item.UnitBoxesPerCarton = *d.UnitBoxesPerCarton
	}
	if d.UnitsPerBox != nil {
		item.UnitsPerBox = *d.UnitsPerBox
	}
	if d.WeightKg != nil {
		item.WeightKg = *d.WeightKg
	}
	if d.Dimensions != nil {
		item.Dimensions = *d.Dimensions
	}
	if d.UnitCost != nil {
		item.UnitCost = *d.UnitCost
	}
	if d.CartonCost != nil {
		item.CartonCost = *d.CartonCost
	}
	if d.ExternalLink != nil {
		item.ExternalLink = *d.ExternalLink
	}
	if d.Notes != nil {
		item.Notes = *d.Notes
	}
	return item
}

// MissingFieldsError reports which required fields failed submit validation.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// ValidateForSubmit checks the merged record for required fields: name,
// quantity, category, and expiration date. A quantity of exactly zero is
// treated as missing, matching the historical behavior of the form, and
// negative quantities are rejected the same way.
func ValidateForSubmit(item model.SupplyItem) error {
	var missing []string
	if strings.TrimSpace(item.Name) == "" {
		missing = append(missing, "name")
	}
	if item.Quantity <= 0 {
		missing = append(missing, "quantity")
	}
	if strings.TrimSpace(item.Category) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(item.ExpiresOn) == "" {
		missing = append(missing, "expires_on")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

func setInt(dst **int, name, value string) error {
	if value == "" {
		zero := 0
		*dst = &zero
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("field %q: invalid integer %q", name, value)
	}
	*dst = &n
	return nil
}

func setFloat(dst **float64, name, value string) error {
	if value == "" {
		zero := 0.0
		*dst = &zero
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("field %q: invalid number %q", name, value)
	}
	*dst = &f
	return nil
}
