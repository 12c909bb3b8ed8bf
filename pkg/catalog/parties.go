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

// NewParty is the create payload shared by customers and vendors.
type NewParty struct {
	Name    string  `json:"name" validate:"required,max=150"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	GSTIN   *string `json:"gstin,omitempty" validate:"omitempty,len=15,alphanum"`
}

type PartyService struct {
	db     *gorm.DB
	logger *logrus.Logger
	region string
}

// NewPartyService parses phone numbers without a country code as region.
func NewPartyService(db *gorm.DB, logger *logrus.Logger, region string) *PartyService {
	if region == "" {
		region = "IN"
	}
	return &PartyService{db: db, logger: logger, region: region}
}

func (s *PartyService) normalize(in *NewParty) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.GSTIN != nil {
		g := strings.ToUpper(strings.TrimSpace(*in.GSTIN))
		in.GSTIN = &g
		if g == "" {
			in.GSTIN = nil
		}
	}
	if err := utils.ValidateStruct(*in); err != nil {
		return err
	}
	if in.Phone != nil && strings.TrimSpace(*in.Phone) != "" {
		phone, err := utils.NormalizePhone(*in.Phone, s.region)
		if err != nil {
			return err
		}
		in.Phone = &phone
	} else {
		in.Phone = nil
	}
	return nil
}

func (s *PartyService) CreateCustomer(ctx context.Context, in NewParty) (*models.Customer, error) {
	if err := s.normalize(&in); err != nil {
		return nil, err
	}
	c := models.Customer{Name: in.Name, Phone: in.Phone, Address: in.Address, GSTIN: in.GSTIN}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, utils.Internal("create customer", err)
	}
	s.logger.WithFields(logrus.Fields{"customerId": c.ID}).Info("customer created")
	return &c, nil
}

func (s *PartyService) CreateVendor(ctx context.Context, in NewParty) (*models.Vendor, error) {
	if err := s.normalize(&in); err != nil {
		return nil, err
	}
	v := models.Vendor{Name: in.Name, Phone: in.Phone, Address: in.Address, GSTIN: in.GSTIN}
	if err := s.db.WithContext(ctx).Create(&v).Error; err != nil {
		return nil, utils.Internal("create vendor", err)
	}
	s.logger.WithFields(logrus.Fields{"vendorId": v.ID}).Info("vendor created")
	return &v, nil
}

func (s *PartyService) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("customer")
		}
		return nil, utils.Internal("get customer", err)
	}
	return &c, nil
}

func (s *PartyService) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var v models.Vendor
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("vendor")
		}
		return nil, utils.Internal("get vendor", err)
	}
	return &v, nil
}

func (s *PartyService) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var out []models.Customer
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, utils.Internal("list customers", err)
	}
	return out, nil
}

func (s *PartyService) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	var out []models.Vendor
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, utils.Internal("list vendors", err)
	}
	return out, nil
}
