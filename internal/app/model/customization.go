package model

import "strings"

// Customization is a shopper's selection of at most one option per kind.
// It is only meaningful relative to a product.
type Customization struct {
	ScentID *uint `gorm:"index" json:"scent_id,omitempty"`
	ColorID *uint `gorm:"index" json:"color_id,omitempty"`
	SizeID  *uint `gorm:"index" json:"size_id,omitempty"`
}

// Selection is one supplied option id tagged with its kind.
type Selection struct {
	Kind OptionKind
	ID   uint
}

func (c Customization) IDFor(kind OptionKind) *uint {
	switch kind {
	case OptionKindScent:
		return c.ScentID
	case OptionKindColor:
		return c.ColorID
	case OptionKindSize:
		return c.SizeID
	}
	return nil
}

// Selections lists the supplied ids in scent, color, size order.
func (c Customization) Selections() []Selection {
	var out []Selection
	for _, kind := range OptionKinds {
		if id := c.IDFor(kind); id != nil {
			out = append(out, Selection{Kind: kind, ID: *id})
		}
	}
	return out
}

func (c Customization) IsEmpty() bool {
	return c.ScentID == nil && c.ColorID == nil && c.SizeID == nil
}

// Equal compares by value so two cart lines with the same picks merge.
func (c Customization) Equal(other Customization) bool {
	return sameID(c.ScentID, other.ScentID) &&
		sameID(c.ColorID, other.ColorID) &&
		sameID(c.SizeID, other.SizeID)
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SelectedOption is the frozen copy of an option kept on cart lines and orders.
type SelectedOption struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	AdditionalPrice float64 `json:"additional_price"`
}

// CustomizationSnapshot records names and price deltas as they were when chosen.
type CustomizationSnapshot struct {
	Scent *SelectedOption `json:"scent,omitempty"`
	Color *SelectedOption `json:"color,omitempty"`
	Size  *SelectedOption `json:"size,omitempty"`
}

func (s *CustomizationSnapshot) Set(opt *CustomizationOption) {
	selected := &SelectedOption{ID: opt.ID, Name: opt.Name, AdditionalPrice: opt.AdditionalPrice}
	switch opt.Kind {
	case OptionKindScent:
		s.Scent = selected
	case OptionKindColor:
		s.Color = selected
	case OptionKindSize:
		s.Size = selected
	}
}

// Label renders "Lavender / Ivory / Large", skipping kinds that were not chosen.
func (s CustomizationSnapshot) Label() string {
	var parts []string
	for _, opt := range []*SelectedOption{s.Scent, s.Color, s.Size} {
		if opt != nil {
			parts = append(parts, opt.Name)
		}
	}
	return strings.Join(parts, " / ")
}
