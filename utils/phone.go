package utils

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// NormalizePhone parses a phone number for the given default region and
// returns it in E.164 form.
func NormalizePhone(number, region string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", ValidationError("invalid phone number", map[string]string{"phone": "is required"})
	}
	p, err := libphonenumber.Parse(number, region)
	if err != nil {
		return "", ValidationError("invalid phone number", map[string]string{"phone": err.Error()})
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", ValidationError("invalid phone number", map[string]string{"phone": "is not a valid number"})
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}
