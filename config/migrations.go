package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"p9e.in/crusher/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "02032025_create_catalog_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Material{}, &models.Customer{}, &models.Vendor{})
			},
		},
		{
			ID: "02032025_create_order_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.SalesOrder{}, &models.PurchaseOrder{})
			},
		},
		{
			ID: "05032025_create_crusher_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.ProductionRun{}, &models.Dispatch{})
			},
		},
		{
			// documents and cancellation arrived after the first dispatch release
			ID: "21042025_add_dispatch_documents_and_cancellation",
			Migrate: func(tx *gorm.DB) error {
				for _, col := range []string{"Documents", "CancelledAt", "CancelReason"} {
					if tx.Migrator().HasColumn(&models.Dispatch{}, col) {
						continue
					}
					if err := tx.Migrator().AddColumn(&models.Dispatch{}, col); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID: "21042025_seed_material_catalog",
			Migrate: func(tx *gorm.DB) error {
				return SeedMaterials(tx)
			},
		},
	})
	return m.Migrate()
}
