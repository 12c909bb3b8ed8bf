package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"p9e.in/crusher/pkg/testutil"
	"p9e.in/crusher/utils"
)

func strPtr(s string) *string { return &s }

func TestMaterialCreate(t *testing.T) {
	ctx := context.Background()
	svc := NewMaterialService(testutil.NewDB(t), testutil.NewLogger())

	m, err := svc.Create(ctx, NewMaterial{Name: " crushed stone ", UnitOfMeasure: "mt"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Name != "CRUSHED STONE" || m.UnitOfMeasure != "MT" {
		t.Errorf("not normalized: %+v", m)
	}

	tests := []struct {
		name string
		in   NewMaterial
		kind utils.ErrorKind
	}{
		{"duplicate name", NewMaterial{Name: "Crushed Stone", UnitOfMeasure: "MT"}, utils.KindConflict},
		{"seeded duplicate", NewMaterial{Name: "m.sand", UnitOfMeasure: "MT"}, utils.KindConflict},
		{"missing name", NewMaterial{Name: "  ", UnitOfMeasure: "MT"}, utils.KindValidation},
		{"missing unit", NewMaterial{Name: "BOULDER"}, utils.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			if !utils.IsKind(err, tt.kind) {
				t.Errorf("err = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestMaterialGetAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewMaterialService(testutil.NewDB(t), testutil.NewLogger())

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 8 {
		t.Fatalf("seeded catalog has %d materials", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name > list[i].Name {
			t.Errorf("list not ordered: %s before %s", list[i-1].Name, list[i].Name)
		}
	}

	got, err := svc.Get(ctx, list[0].ID)
	if err != nil || got.Name != list[0].Name {
		t.Errorf("get = %+v, %v", got, err)
	}
	if _, err := svc.Get(ctx, uuid.New()); !utils.IsKind(err, utils.KindNotFound) {
		t.Errorf("missing material err = %v", err)
	}
}

func TestPartyPhoneNormalization(t *testing.T) {
	ctx := context.Background()
	svc := NewPartyService(testutil.NewDB(t), testutil.NewLogger(), "IN")

	c, err := svc.CreateCustomer(ctx, NewParty{Name: "Sri Balaji Constructions", Phone: strPtr("98480 22338"), GSTIN: strPtr("36aabcs1429b1z1")})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if c.Phone == nil || *c.Phone != "+919848022338" {
		t.Errorf("phone = %v", c.Phone)
	}
	if c.GSTIN == nil || *c.GSTIN != "36AABCS1429B1Z1" {
		t.Errorf("gstin = %v", c.GSTIN)
	}

	if _, err := svc.CreateVendor(ctx, NewParty{Name: "Quarry Supplies", Phone: strPtr("123")}); !utils.IsKind(err, utils.KindValidation) {
		t.Errorf("invalid phone err = %v", err)
	}
	if _, err := svc.CreateVendor(ctx, NewParty{Name: "Quarry Supplies", GSTIN: strPtr("SHORT")}); !utils.IsKind(err, utils.KindValidation) {
		t.Errorf("invalid gstin err = %v", err)
	}

	v, err := svc.CreateVendor(ctx, NewParty{Name: "Quarry Supplies", Phone: strPtr("")})
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	if v.Phone != nil {
		t.Errorf("blank phone should be dropped, got %q", *v.Phone)
	}
	if _, err := svc.GetVendor(ctx, v.ID); err != nil {
		t.Errorf("get vendor: %v", err)
	}
	if _, err := svc.GetCustomer(ctx, v.ID); !utils.IsKind(err, utils.KindNotFound) {
		t.Errorf("vendor id as customer err = %v", err)
	}

	customers, _ := svc.ListCustomers(ctx)
	vendors, _ := svc.ListVendors(ctx)
	if len(customers) != 1 || len(vendors) != 1 {
		t.Errorf("customers=%d vendors=%d", len(customers), len(vendors))
	}
}
