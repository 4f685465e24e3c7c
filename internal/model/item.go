package model

import (
	"database/sql"
	"time"
)

// Defaults substituted for absent stored fields.
const (
	DefaultExpiresOn    = "2025-12-31"
	PlaceholderImageURL = "/static/placeholder.svg"
)

// SupplyItem represents one medical supply record, fully defaulted.
type SupplyItem struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	LotNumber          string    `json:"lot_number,omitempty"`
	ExpiresOn          string    `json:"expires_on"`
	Quantity           int       `json:"quantity"`
	ImageURL           string    `json:"image_url"`
	IsExpired          bool      `json:"is_expired"`
	Category           string    `json:"category"`
	Location           string    `json:"location,omitempty"`
	Company            string    `json:"company,omitempty"`
	BoxesPerPallet     int       `json:"boxes_per_pallet"`
	CartonsPerPallet   int       `json:"cartons_per_pallet"`
	UnitBoxesPerCarton int       `json:"unit_boxes_per_carton"`
	UnitsPerBox        int       `json:"units_per_box"`
	WeightKg           float64   `json:"weight_kg"`
	Dimensions         string    `json:"dimensions,omitempty"`
	UnitCost           float64   `json:"unit_cost"`
	CartonCost         float64   `json:"carton_cost"`
	ExternalLink       string    `json:"external_link,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Supply categories.
const (
	CategoryPPE         = "PPE"
	CategoryWoundCare   = "Wound Care"
	CategoryMedication  = "Medication"
	CategorySyringes    = "Syringes & Needles"
	CategoryDiagnostics = "Diagnostics"
	CategoryEquipment   = "Equipment"
	CategoryHygiene     = "Hygiene"
	CategoryOther       = "Other"
)

// Categories lists all valid supply categories in display order.
var Categories = []string{
	CategoryPPE,
	CategoryWoundCare,
	CategoryMedication,
	CategorySyringes,
	CategoryDiagnostics,
	CategoryEquipment,
	CategoryHygiene,
	CategoryOther,
}

// ValidCategory reports whether c is one of the known supply categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ItemRow is the stored shape of a supply item: every field except the
// identity may be absent.
type ItemRow struct {
	ID                 string
	Name               sql.NullString
	Description        sql.NullString
	LotNumber          sql.NullString
	ExpiresOn          sql.NullString
	Quantity           sql.NullInt64
	ImageURL           sql.NullString
	IsExpired          sql.NullBool
	Category           sql.NullString
	Location           sql.NullString
	Company            sql.NullString
	BoxesPerPallet     sql.NullInt64
	CartonsPerPallet   sql.NullInt64
	UnitBoxesPerCarton sql.NullInt64
	UnitsPerBox        sql.NullInt64
	WeightKg           sql.NullFloat64
	Dimensions         sql.NullString
	UnitCost           sql.NullFloat64
	CartonCost         sql.NullFloat64
	ExternalLink       sql.NullString
	Notes              sql.NullString
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ItemFromRow converts a stored row into a fully defaulted SupplyItem.
// It never fails: absent fields degrade to their documented defaults.
func ItemFromRow(r ItemRow) SupplyItem {
	item := SupplyItem{
		ID:                 r.ID,
		Name:               r.Name.String,
		Description:        r.Description.String,
		LotNumber:          r.LotNumber.String,
		ExpiresOn:          DefaultExpiresOn,
		Quantity:           int(r.Quantity.Int64),
		ImageURL:           PlaceholderImageURL,
		IsExpired:          r.IsExpired.Valid && r.IsExpired.Bool,
		Category:           r.Category.String,
		Location:           r.Location.String,
		Company:            r.Company.String,
		BoxesPerPallet:     int(r.BoxesPerPallet.Int64),
		CartonsPerPallet:   int(r.CartonsPerPallet.Int64),
		UnitBoxesPerCarton: int(r.UnitBoxesPerCarton.Int64),
		UnitsPerBox:        int(r.UnitsPerBox.Int64),
		WeightKg:           r.WeightKg.Float64,
		Dimensions:         r.Dimensions.String,
		UnitCost:           r.UnitCost.Float64,
		CartonCost:         r.CartonCost.Float64,
		ExternalLink:       r.ExternalLink.String,
		Notes:              r.Notes.String,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.ExpiresOn.Valid && r.ExpiresOn.String != "" {
		item.ExpiresOn = r.ExpiresOn.String
	}
	if r.ImageURL.Valid && r.ImageURL.String != "" {
		item.ImageURL = r.ImageURL.String
	}
	return item
}

// Row converts a SupplyItem back into its stored shape, writing the same
// default literals used on read so conversion round-trips stably.
func (i SupplyItem) Row() ItemRow {
	expiresOn := i.ExpiresOn
	if expiresOn == "" {
		expiresOn = DefaultExpiresOn
	}
	imageURL := i.ImageURL
	if imageURL == "" {
		imageURL = PlaceholderImageURL
	}
	return ItemRow{
		ID:                 i.ID,
		Name:               nullString(i.Name),
		Description:        nullString(i.Description),
		LotNumber:          nullString(i.LotNumber),
		ExpiresOn:          sql.NullString{String: expiresOn, Valid: true},
		Quantity:           sql.NullInt64{Int64: int64(i.Quantity), Valid: true},
		ImageURL:           sql.NullString{String: imageURL, Valid: true},
		IsExpired:          sql.NullBool{Bool: i.IsExpired, Valid: true},
		Category:           nullString(i.Category),
		Location:           nullString(i.Location),
		Company:            nullString(i.Company),
		BoxesPerPallet:     sql.NullInt64{Int64: int64(i.BoxesPerPallet), Valid: true},
		CartonsPerPallet:   sql.NullInt64{Int64: int64(i.CartonsPerPallet), Valid: true},
		UnitBoxesPerCarton: sql.NullInt64{Int64: int64(i.UnitBoxesPerCarton), Valid: true},
		UnitsPerBox:        sql.NullInt64{Int64: int64(i.UnitsPerBox), Valid: true},
		WeightKg:           sql.NullFloat64{Float64: i.WeightKg, Valid: true},
		Dimensions:         nullString(i.Dimensions),
		UnitCost:           sql.NullFloat64{Float64: i.UnitCost, Valid: true},
		CartonCost:         sql.NullFloat64{Float64: i.CartonCost, Valid: true},
		ExternalLink:       nullString(i.ExternalLink),
		Notes:              nullString(i.Notes),
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

// nullString maps "" to an absent value so optional text columns stay NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
