package utils

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Column shapes of stored decimals: quantities are numeric(14,3) and
// rates numeric(20,4).
const (
	QuantityScale  = 3
	QuantityDigits = 11
	MoneyScale     = 4
	MoneyDigits    = 16
)

// Validator returns the shared validator instance. Decimal fields are
// validated as float64 so numeric rules like gt=0 apply to them, and
// errors are reported under their JSON names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		v.RegisterValidation("qty", decimalFits(QuantityScale, QuantityDigits))
		v.RegisterValidation("money", decimalFits(MoneyScale, MoneyDigits))
		validate = v
	})
	return validate
}

// ValidateStruct runs struct validation and converts failures into a
// validation AppError carrying one entry per failed field.
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Internal("validation setup failed", err)
	}
	return ValidationError("validation failed", ProcessValidationErrors(verrs))
}

// ProcessValidationErrors maps each failed field to a readable rule.
func ProcessValidationErrors(verrs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = describeRule(fe)
	}
	return details
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "qty":
		return "must have at most 3 decimal places and at most 11 integer digits"
	case "money":
		return "must have at most 4 decimal places and at most 16 integer digits"
	default:
		return "failed " + fe.Tag()
	}
}

// decimalFits accepts a decimal that a numeric column with scale fractional
// digits and digits integer digits stores without rounding or overflow.
func decimalFits(scale int32, digits int32) validator.Func {
	limit := decimal.New(1, digits)
	return func(fl validator.FieldLevel) bool {
		d, ok := fieldDecimal(fl)
		if !ok {
			return true
		}
		if !d.Equal(d.Truncate(scale)) {
			return false
		}
		return d.Abs().LessThan(limit)
	}
}

// fieldDecimal reads the decimal behind fl from its parent struct. The
// registered type func hands rules a float64, which has lost the scale.
func fieldDecimal(fl validator.FieldLevel) (decimal.Decimal, bool) {
	parent := fl.Parent()
	for parent.Kind() == reflect.Ptr {
		if parent.IsNil() {
			return decimal.Decimal{}, false
		}
		parent = parent.Elem()
	}
	if parent.Kind() != reflect.Struct {
		return decimal.Decimal{}, false
	}
	field := parent.FieldByName(fl.StructFieldName())
	for field.IsValid() && field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return decimal.Decimal{}, false
		}
		field = field.Elem()
	}
	if !field.IsValid() || !field.CanInterface() {
		return decimal.Decimal{}, false
	}
	d, ok := field.Interface().(decimal.Decimal)
	return d, ok
}
