package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategoryJar     ProductCategory = "jar"
	CategoryPillar  ProductCategory = "pillar"
	CategoryTaper   ProductCategory = "taper"
	CategoryTin     ProductCategory = "tin"
	CategoryGiftSet ProductCategory = "gift_set"
)

var ProductCategories = []ProductCategory{CategoryJar, CategoryPillar, CategoryTaper, CategoryTin, CategoryGiftSet}

func (c ProductCategory) Valid() bool {
	for _, known := range ProductCategories {
		if c == known {
			return true
		}
	}
	return false
}

type Product struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Name          string          `gorm:"not null" json:"name"`
	Slug          string          `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Description   string          `gorm:"type:text" json:"description"`
	BasePrice     float64         `gorm:"not null" json:"base_price"`
	StockQuantity int             `gorm:"default:0" json:"stock_quantity"`
	Category      ProductCategory `gorm:"type:varchar(50);index" json:"category"`
	ImageURL      string          `json:"image_url"`
	Tags          pq.StringArray  `gorm:"type:text" json:"tags"`
	IsActive      bool            `gorm:"not null;index" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	// Allowed customization options across all kinds. An empty set for a kind
	// means that attribute is not customizable for this product.
	Options []CustomizationOption `gorm:"many2many:product_options;" json:"options,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// OptionsOfKind returns the product's allowed options of one kind, in catalog order.
func (p *Product) OptionsOfKind(kind OptionKind) []CustomizationOption {
	var out []CustomizationOption
	for _, opt := range p.Options {
		if opt.Kind == kind {
			out = append(out, opt)
		}
	}
	return out
}

func (p *Product) AllowedOptionIDs(kind OptionKind) []uint {
	var ids []uint
	for _, opt := range p.Options {
		if opt.Kind == kind {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// Allows reports whether id is in the product's allowed set for kind.
func (p *Product) Allows(kind OptionKind, id uint) bool {
	for _, opt := range p.Options {
		if opt.Kind == kind && opt.ID == id {
			return true
		}
	}
	return false
}

func (p *Product) Customizable(kind OptionKind) bool {
	return len(p.AllowedOptionIDs(kind)) > 0
}
