package model

import (
	"errors"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// ErrEmptyPhone is returned for blank phone numbers.
var ErrEmptyPhone = errors.New("phone number required")

// NormalizePhone trims a phone number and, when it parses as a valid number
// for region, rewrites it in E.164 form so that differently formatted
// entries of the same number collide on the unique index. Short internal
// extensions (e.g. "001") are kept as entered.
func NormalizePhone(raw, region string) (string, error) {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return "", ErrEmptyPhone
	}

	digits := 0
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	if digits < 7 {
		return phone, nil
	}

	num, err := libphonenumber.Parse(phone, region)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return phone, nil
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}
