package semaforo

import (
	"fmt"
	"strings"
)

// Category is one of the fixed organizational documents ("herramientas") an
// organization must file.
type Category string

const (
	CategoryOrgChart         Category = "organigrama"
	CategoryBylaws           Category = "reglamento"
	CategoryOrgManual        Category = "manual_organizacion"
	CategoryProceduresManual Category = "manual_procedimientos"
	CategoryServicesManual   Category = "manual_servicios"
)

// Categories lists every category in evaluation order. Aggregate results
// report per-category statuses in this order.
var Categories = []Category{
	CategoryOrgChart,
	CategoryBylaws,
	CategoryOrgManual,
	CategoryProceduresManual,
	CategoryServicesManual,
}

var categoryLabels = map[Category]string{
	CategoryOrgChart:         "Organigrama",
	CategoryBylaws:           "Reglamento interior",
	CategoryOrgManual:        "Manual de organización",
	CategoryProceduresManual: "Manual de procedimientos",
	CategoryServicesManual:   "Manual de servicios",
}

// ParseCategory validates a category coming from outside the engine.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown document category %q", s)
	}
	return c, nil
}

func (c Category) IsValid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// IsSingleton reports whether at most one active document of this category
// may exist per organization.
func (c Category) IsSingleton() bool {
	return c == CategoryOrgChart || c == CategoryBylaws
}

// IsOptional reports whether absence of the category is ignored rather than
// counted as Red.
func (c Category) IsOptional() bool {
	return c == CategoryServicesManual
}

// Label is the display name used in reports.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) String() string {
	return string(c)
}
