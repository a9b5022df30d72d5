package access

import (
	"fmt"
	"strings"
)

// DataCategory is the coarse classification of the kind of resource being
// accessed.
type DataCategory string

const (
	CategoryPurchaseOrder DataCategory = "PURCHASE_ORDER"
	CategoryTraceability  DataCategory = "TRACEABILITY"
	CategoryQualityData   DataCategory = "QUALITY_DATA"
	CategoryLocationData  DataCategory = "LOCATION_DATA"
)

func (c DataCategory) Valid() bool {
	switch c {
	case CategoryPurchaseOrder, CategoryTraceability, CategoryQualityData, CategoryLocationData:
		return true
	default:
		return false
	}
}

func (c DataCategory) String() string {
	return string(c)
}

func ParseDataCategory(s string) (DataCategory, error) {
	c := DataCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown data category %q", s)
	}
	return c, nil
}
