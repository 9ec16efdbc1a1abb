package core

import (
	"strings"
)

// =============================================================================
// Risk Levels
// =============================================================================

// RiskLevel is the assessed risk of a single indicator
type RiskLevel string

const (
	RiskLevelHigh    RiskLevel = "high"
	RiskLevelMedium  RiskLevel = "medium"
	RiskLevelLow     RiskLevel = "low"
	RiskLevelUnknown RiskLevel = "unknown"
)

// AllRiskLevels lists the accepted risk levels, highest first
var AllRiskLevels = []RiskLevel{
	RiskLevelHigh, RiskLevelMedium, RiskLevelLow, RiskLevelUnknown,
}

// IsValid checks if the risk level is one of the accepted values
func (r RiskLevel) IsValid() bool {
	for _, valid := range AllRiskLevels {
		if r == valid {
			return true
		}
	}
	return false
}

// rank orders risk levels; anything unrecognised ranks with unknown
func (r RiskLevel) rank() int {
	switch r {
	case RiskLevelHigh:
		return 3
	case RiskLevelMedium:
		return 2
	case RiskLevelLow:
		return 1
	default:
		return 0
	}
}

// =============================================================================
// Categories
// =============================================================================

// KnownCategories is the advisory allow-list of indicator categories.
// Values outside the list are accepted and reported through the logger.
var KnownCategories = []string{
	"ip", "domain", "url", "hash", "email", "file",
	"cve", "registry", "process", "path", "command", "user-agent", "script",
}

// IsKnownCategory reports whether name is on the allow-list, ignoring case
func IsKnownCategory(name string) bool {
	lower := strings.ToLower(name)
	for _, known := range KnownCategories {
		if lower == known {
			return true
		}
	}
	return false
}

// =============================================================================
// Indicator Types
// =============================================================================

// Indicator is a single IOC extracted from page content
type Indicator struct {
	Value       string    `json:"value" validate:"required" example:"203.0.113.7"`
	Category    string    `json:"category" validate:"required" example:"ip"`
	RiskLevel   RiskLevel `json:"riskLevel" validate:"required,oneof=high medium low unknown" example:"high"`
	Description string    `json:"description" example:"C2 server referenced in the report"`
}

// Category groups indicators under a category name
type Category struct {
	Name       string      `json:"name" example:"ip"`
	Count      int         `json:"count" example:"1"`
	Indicators []Indicator `json:"indicators"`
}

// NewCategory builds a category whose count matches its indicators
func NewCategory(name string, indicators []Indicator) Category {
	return Category{
		Name:       name,
		Count:      len(indicators),
		Indicators: indicators,
	}
}

// IOCResult is the validated extraction output for one page
type IOCResult struct {
	Indicators []Indicator `json:"indicators"`
	Categories []Category  `json:"categories"`
}

// QueryPair is a named SIEM query
type QueryPair struct {
	Name  string `json:"name" example:"Outbound connections to C2"`
	Query string `json:"query" example:"SELECT * FROM events WHERE destinationip = '203.0.113.7'"`
}

// SearchQueryResult holds generated queries per SIEM platform
type SearchQueryResult struct {
	QRadar   []QueryPair `json:"qradar"`
	Sentinel []QueryPair `json:"sentinel"`
}
