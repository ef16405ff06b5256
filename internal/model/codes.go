package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxSequence is the highest sequence number per company and device type.
const MaxSequence = 9999

var (
	companyCodeRe     = regexp.MustCompile(`^[A-Z]{3}$`)
	deviceTypeCodeRe  = regexp.MustCompile(`^[0-9]{2}$`)
	inventoryNumberRe = regexp.MustCompile(`^[A-Z]{3}-[0-9]{2}/[0-9]{4}$`)
)

// ValidCompanyCode reports whether code is exactly three uppercase letters.
func ValidCompanyCode(code string) bool {
	return companyCodeRe.MatchString(code)
}

// ValidDeviceTypeCode reports whether code is exactly two digits.
func ValidDeviceTypeCode(code string) bool {
	return deviceTypeCodeRe.MatchString(code)
}

// ValidInventoryNumber reports whether s has the CCC-DD/NNNN form.
func ValidInventoryNumber(s string) bool {
	return inventoryNumberRe.MatchString(s)
}

// InventoryPrefix returns the "CCC-DD/" prefix shared by all inventory
// numbers of a company and device type.
func InventoryPrefix(companyCode, deviceTypeCode string) string {
	return companyCode + "-" + deviceTypeCode + "/"
}

// FormatInventoryNumber formats a sequence number, e.g. WWP-01/0031.
func FormatInventoryNumber(companyCode, deviceTypeCode string, seq int) string {
	return fmt.Sprintf("%s%04d", InventoryPrefix(companyCode, deviceTypeCode), seq)
}

// ParseSequence returns the trailing sequence of an inventory number that
// starts with prefix. ok is false when the suffix is not exactly four digits.
func ParseSequence(number, prefix string) (seq int, ok bool) {
	suffix, found := strings.CutPrefix(number, prefix)
	if !found || len(suffix) != 4 {
		return 0, false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return n, true
}
