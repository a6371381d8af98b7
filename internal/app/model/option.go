package model

import (
	"time"

	"github.com/lib/pq"
)

type OptionKind string // customization attribute

const (
	OptionKindScent OptionKind = "scent"
	OptionKindColor OptionKind = "color"
	OptionKindSize  OptionKind = "size"
)

// OptionKinds is the fixed evaluation order for validation and snapshots.
var OptionKinds = []OptionKind{OptionKindScent, OptionKindColor, OptionKindSize}

func (k OptionKind) Valid() bool {
	switch k {
	case OptionKindScent, OptionKindColor, OptionKindSize:
		return true
	}
	return false
}

// CustomizationOption is one selectable scent, color or size. Orders keep a
// snapshot, never a live reference, so editing an option never rewrites history.
type CustomizationOption struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	Kind            OptionKind     `gorm:"type:varchar(10);not null;index" json:"kind"`
	Name            string         `gorm:"not null" json:"name"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	HexCode         string         `gorm:"type:varchar(7)" json:"hex_code,omitempty"`  // colors
	BurnTimeHours   int            `json:"burn_time_hours,omitempty"`                  // sizes
	Notes           pq.StringArray `gorm:"type:text" json:"notes,omitempty"`           // scents, e.g. {"top: bergamot"}
	Available       bool           `gorm:"not null" json:"available"`                  // offered at all
	InStock         bool           `gorm:"not null" json:"in_stock"`                   // raw material on hand
	AdditionalPrice float64        `gorm:"not null;default:0" json:"additional_price"` // added to the product base price
	SortOrder       int            `gorm:"default:0" json:"sort_order"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (CustomizationOption) TableName() string {
	return "customization_options"
}

// Selectable reports whether a shopper may pick this option right now.
func (o *CustomizationOption) Selectable() bool {
	return o.Available && o.InStock
}
