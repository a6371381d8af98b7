package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/service"
	"github.com/xuri/excelize/v2"
)

const (
	optionsSheet  = "options"
	productsSheet = "products"
)

// Column order of the options sheet:
// kind | name | description | hex_code | burn_time_hours | notes | additional_price | sort_order
var optionHeaders = []string{"kind", "name", "description", "hex_code", "burn_time_hours", "notes", "additional_price", "sort_order"}

// Column order of the products sheet. options holds kind:name references,
// e.g. "scent:Lavender Fields, size:Large (16 oz)".
var productHeaders = []string{"name", "slug", "category", "base_price", "stock_quantity", "description", "image_url", "tags", "options"}

// OptionRef points at an option by kind and name, since ids are not known
// until the options sheet is imported.
type OptionRef struct {
	Kind model.OptionKind
	Name string
}

func (r OptionRef) key() string {
	return string(r.Kind) + ":" + strings.ToLower(r.Name)
}

type ProductRow struct {
	Input   service.ProductInput
	Options []OptionRef
}

type Catalog struct {
	Options  []service.OptionInput
	Products []ProductRow
	Skipped  []string
}

func readCatalog(f *excelize.File) (*Catalog, error) {
	catalog := &Catalog{}

	optionRows, err := sheetRows(f, optionsSheet)
	if err != nil {
		return nil, err
	}
	for i, row := range optionRows {
		input, err := parseOptionRow(row)
		if err != nil {
			catalog.Skipped = append(catalog.Skipped, fmt.Sprintf("%s row %d: %v", optionsSheet, i+2, err))
			continue
		}
		catalog.Options = append(catalog.Options, input)
	}

	productRows, err := sheetRows(f, productsSheet)
	if err != nil {
		return nil, err
	}
	for i, row := range productRows {
		product, err := parseProductRow(row)
		if err != nil {
			catalog.Skipped = append(catalog.Skipped, fmt.Sprintf("%s row %d: %v", productsSheet, i+2, err))
			continue
		}
		catalog.Products = append(catalog.Products, product)
	}

	return catalog, nil
}

// sheetRows returns the data rows of a sheet, without its header row. A
// missing sheet is not an error.
func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", sheet, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

// cell returns the trimmed value at col, or "" for short rows.
func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func parseFloat(row []string, col int, name string) (float64, error) {
	raw := cell(row, col)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", name, raw)
	}
	return v, nil
}

func parseInt(row []string, col int, name string) (int, error) {
	raw := cell(row, col)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a whole number", name, raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOptionRow(row []string) (service.OptionInput, error) {
	input := service.OptionInput{
		Kind:        model.OptionKind(strings.ToLower(cell(row, 0))),
		Name:        cell(row, 1),
		Description: cell(row, 2),
		HexCode:     cell(row, 3),
		Notes:       splitList(cell(row, 5)),
	}
	if !input.Kind.Valid() {
		return input, fmt.Errorf("unknown kind %q", cell(row, 0))
	}
	if input.Name == "" {
		return input, fmt.Errorf("name is empty")
	}

	var err error
	if input.BurnTimeHours, err = parseInt(row, 4, "burn_time_hours"); err != nil {
		return input, err
	}
	if input.AdditionalPrice, err = parseFloat(row, 6, "additional_price"); err != nil {
		return input, err
	}
	if input.SortOrder, err = parseInt(row, 7, "sort_order"); err != nil {
		return input, err
	}
	return input, nil
}

func parseProductRow(row []string) (ProductRow, error) {
	product := ProductRow{
		Input: service.ProductInput{
			Name:        cell(row, 0),
			Slug:        cell(row, 1),
			Category:    model.ProductCategory(strings.ToLower(cell(row, 2))),
			Description: cell(row, 5),
			ImageURL:    cell(row, 6),
			Tags:        splitList(cell(row, 7)),
		},
	}
	if product.Input.Name == "" {
		return product, fmt.Errorf("name is empty")
	}

	var err error
	if product.Input.BasePrice, err = parseFloat(row, 3, "base_price"); err != nil {
		return product, err
	}
	if product.Input.StockQuantity, err = parseInt(row, 4, "stock_quantity"); err != nil {
		return product, err
	}

	for _, ref := range splitList(cell(row, 8)) {
		kind, name, ok := strings.Cut(ref, ":")
		if !ok {
			return product, fmt.Errorf("option %q must look like kind:name", ref)
		}
		optRef := OptionRef{Kind: model.OptionKind(strings.ToLower(strings.TrimSpace(kind))), Name: strings.TrimSpace(name)}
		if !optRef.Kind.Valid() {
			return product, fmt.Errorf("option %q has unknown kind", ref)
		}
		product.Options = append(product.Options, optRef)
	}
	return product, nil
}
