package health

import (
	"encoding/json"
	"time"
)

// HealthStatus represents the health state of an item.
type HealthStatus string

const (
	StatusOK      HealthStatus = "ok"
	StatusWarning HealthStatus = "warning"
	StatusError   HealthStatus = "error"
)

// HealthCategory groups health items for display.
type HealthCategory string

const (
	CategoryMetadata HealthCategory = "metadata"
	CategoryRealtime HealthCategory = "realtime"
	CategoryStorage  HealthCategory = "storage"
)

// AllCategories returns all health categories in display order.
func AllCategories() []HealthCategory {
	return []HealthCategory{
		CategoryMetadata,
		CategoryRealtime,
		CategoryStorage,
	}
}

// ParseCategory validates a category name.
func ParseCategory(s string) (HealthCategory, bool) {
	for _, cat := range AllCategories() {
		if string(cat) == s {
			return cat, true
		}
	}
	return "", false
}

// HealthItem represents a single health-tracked item.
type HealthItem struct {
	ID        string         `json:"id"`
	Category  HealthCategory `json:"category"`
	Name      string         `json:"name"`
	Status    HealthStatus   `json:"status"`
	Message   string         `json:"message,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
}

// MarshalJSON omits the message and timestamp for OK items.
func (h HealthItem) MarshalJSON() ([]byte, error) {
	type Alias HealthItem
	alias := Alias(h)

	if h.Status == StatusOK {
		alias.Timestamp = nil
		alias.Message = ""
	}

	return json.Marshal(alias)
}

// CategorySummary provides counts for a health category.
type CategorySummary struct {
	Category HealthCategory `json:"category"`
	OK       int            `json:"ok"`
	Warning  int            `json:"warning"`
	Error    int            `json:"error"`
}

// Total returns the total number of items in the category.
func (c CategorySummary) Total() int {
	return c.OK + c.Warning + c.Error
}

// HasIssues returns true if there are any warning or error items.
func (c CategorySummary) HasIssues() bool {
	return c.Warning > 0 || c.Error > 0
}

// HealthSummary provides an overview of system health.
type HealthSummary struct {
	Categories []CategorySummary `json:"categories"`
	HasIssues  bool              `json:"hasIssues"`
}
