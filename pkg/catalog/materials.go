// Package catalog owns the reference data every ledger points at:
// materials, customers and vendors.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"p9e.in/crusher/models"
	"p9e.in/crusher/utils"
)

type NewMaterial struct {
	Name          string `json:"name" validate:"required,max=100"`
	UnitOfMeasure string `json:"unitOfMeasure" validate:"required,max=20"`
}

type MaterialService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewMaterialService(db *gorm.DB, logger *logrus.Logger) *MaterialService {
	return &MaterialService{db: db, logger: logger}
}

// Create adds a material. Names are trimmed and upper-cased so "m.sand"
// and "M.SAND " are the same product.
func (s *MaterialService) Create(ctx context.Context, in NewMaterial) (*models.Material, error) {
	in.Name = strings.ToUpper(strings.TrimSpace(in.Name))
	in.UnitOfMeasure = strings.ToUpper(strings.TrimSpace(in.UnitOfMeasure))
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if exists, err := s.nameTaken(db, in.Name); err != nil {
		return nil, utils.Internal("check material name", err)
	} else if exists {
		return nil, utils.Conflict("material " + in.Name + " already exists")
	}

	m := models.Material{Name: in.Name, UnitOfMeasure: in.UnitOfMeasure}
	if err := db.Create(&m).Error; err != nil {
		// lost a race against a concurrent create of the same name
		if exists, _ := s.nameTaken(db, in.Name); exists {
			return nil, utils.Conflict("material " + in.Name + " already exists")
		}
		return nil, utils.Internal("create material", err)
	}

	s.logger.WithFields(logrus.Fields{"materialId": m.ID, "name": m.Name}).Info("material created")
	return &m, nil
}

func (s *MaterialService) nameTaken(db *gorm.DB, name string) (bool, error) {
	var count int64
	err := db.Model(&models.Material{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

func (s *MaterialService) Get(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	var m models.Material
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("material")
		}
		return nil, utils.Internal("get material", err)
	}
	return &m, nil
}

func (s *MaterialService) List(ctx context.Context) ([]models.Material, error) {
	var materials []models.Material
	if err := s.db.WithContext(ctx).Order("name").Find(&materials).Error; err != nil {
		return nil, utils.Internal("list materials", err)
	}
	return materials, nil
}
