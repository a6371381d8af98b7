package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/internal/app/repository"
	"github.com/ikkim/candle-backend/internal/app/service"
	"github.com/ikkim/candle-backend/internal/db"
	"github.com/ikkim/candle-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

func main() {
	file := flag.String("file", "", "XLSX workbook with options and products sheets")
	template := flag.String("template", "", "write an empty workbook with the expected headers to this path and exit")
	adminEmail := flag.String("admin-email", os.Getenv("ADMIN_EMAIL"), "admin account to create or promote")
	adminPassword := flag.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "password for a newly created admin")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	if *template != "" {
		if err := writeTemplate(*template); err != nil {
			log.Fatal("Failed to write template:", err)
		}
		fmt.Printf("Template written to %s\n", *template)
		return
	}

	if *file == "" && *adminEmail == "" {
		log.Fatal("Usage: go run ./cmd/seed -file catalog.xlsx [-admin-email a@b.c -admin-password secret] [-yes]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	gdb, err := db.Open(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	productRepo := repository.NewProductRepository(gdb)
	optionRepo := repository.NewOptionRepository(gdb)
	customizationService := service.NewCustomizationService(productRepo, optionRepo, nil)
	importer := &Importer{
		Options:  service.NewOptionService(optionRepo, nil),
		Products: service.NewProductService(productRepo, optionRepo, customizationService, nil),
	}

	if *adminEmail != "" {
		authService := service.NewAuthService(repository.NewUserRepository(gdb), nil, nil, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
		admin, err := authService.EnsureAdmin(strings.ToLower(strings.TrimSpace(*adminEmail)), *adminPassword, "Administrator")
		if err != nil {
			log.Fatal("Failed to ensure admin account:", err)
		}
		fmt.Printf("Admin account ready: %s (id %d)\n", admin.Email, admin.ID)
	}

	if *file == "" {
		return
	}

	fmt.Printf("Reading XLSX file: %s\n", *file)
	f, err := excelize.OpenFile(*file)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer f.Close()

	catalog, err := readCatalog(f)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	for _, skipped := range catalog.Skipped {
		fmt.Printf("  skipped %s\n", skipped)
	}
	fmt.Printf("Options to import: %d, products to import: %d\n", len(catalog.Options), len(catalog.Products))

	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	result, err := importer.Import(context.Background(), catalog)
	if err != nil {
		log.Fatal("Import failed:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("  Options created: %d (existing: %d)\n", result.OptionsCreated, result.OptionsExisting)
	fmt.Printf("  Products created: %d (existing: %d)\n", result.ProductsCreated, result.ProductsExisting)
	for _, warning := range result.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
}

func writeTemplate(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", optionsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(productsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(optionsSheet, "A1", &optionHeaders); err != nil {
		return err
	}
	if err := f.SetSheetRow(productsSheet, "A1", &productHeaders); err != nil {
		return err
	}
	return f.SaveAs(path)
}

type ImportResult struct {
	OptionsCreated   int
	OptionsExisting  int
	ProductsCreated  int
	ProductsExisting int
	Warnings         []string
}

// Importer writes a parsed catalog through the catalog services so every row
// passes the same validation as the admin API. Rows that already exist are
// left untouched.
type Importer struct {
	Options  service.OptionService
	Products service.ProductService
}

func (im *Importer) Import(ctx context.Context, catalog *Catalog) (*ImportResult, error) {
	result := &ImportResult{}

	existing, err := im.Options.ListOptions(nil)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(existing))
	for _, opt := range existing {
		ids[OptionRef{Kind: opt.Kind, Name: opt.Name}.key()] = opt.ID
	}

	for _, input := range catalog.Options {
		key := OptionRef{Kind: input.Kind, Name: input.Name}.key()
		if _, ok := ids[key]; ok {
			result.OptionsExisting++
			continue
		}
		created, err := im.Options.CreateOption(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", key, err)
		}
		ids[key] = created.ID
		result.OptionsCreated++
	}

	for _, row := range catalog.Products {
		input := row.Input
		input.OptionIDs = nil
		for _, ref := range row.Options {
			id, ok := ids[ref.key()]
			if !ok {
				return nil, fmt.Errorf("product %q references unknown option %s", input.Name, ref.key())
			}
			input.OptionIDs = append(input.OptionIDs, id)
		}

		detail, err := im.Products.CreateProduct(ctx, input)
		if errors.Is(err, service.ErrSlugTaken) {
			result.ProductsExisting++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", input.Name, err)
		}
		result.ProductsCreated++
		for _, warning := range detail.Warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", detail.Slug, warning))
		}
	}

	return result, nil
}
