package config

import (
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"p9e.in/crusher/models"
)

// DefaultMaterials is the product list every crusher yard starts with.
var DefaultMaterials = []string{"M.SAND", "P.SAND", "20MM", "40MM", "6MM", "DUST", "GSB", "WMM"}

// DefaultUnit is the unit of measure for seeded materials (metric tonnes).
const DefaultUnit = "MT"

// SeedMaterials inserts the default catalog, skipping names that already exist.
func SeedMaterials(db *gorm.DB) error {
	materials := make([]models.Material, 0, len(DefaultMaterials))
	for _, name := range DefaultMaterials {
		materials = append(materials, models.Material{Name: name, UnitOfMeasure: DefaultUnit})
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&materials)
	if res.Error != nil {
		return res.Error
	}
	log.Printf("[SEED] material catalog: %d inserted", res.RowsAffected)
	return nil
}
