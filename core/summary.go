package core

// CategoryCount is a category name with the number of indicators in it
type CategoryCount struct {
	Name  string `json:"name" example:"ip"`
	Count int    `json:"count" example:"3"`
}

// RecordSummary is the compact description of a record shown in history listings
type RecordSummary struct {
	TotalIndicators  int             `json:"totalIndicators" example:"5"`
	Categories       []CategoryCount `json:"categories"`
	HighestRiskLevel RiskLevel       `json:"highestRiskLevel" example:"high"`
}

// HistorySummary is one entry of a user's analysis history
type HistorySummary struct {
	ID        int64         `json:"id" example:"42"`
	URL       string        `json:"url" example:"https://example.com/report"`
	CreatedAt string        `json:"createdAt" example:"2024-05-13T10:00:00Z"`
	Summary   RecordSummary `json:"summary"`
}

// HighestRiskLevel returns the highest risk level among indicators.
// The scan stops at the first high indicator; an empty list yields unknown.
func HighestRiskLevel(indicators []Indicator) RiskLevel {
	highest := RiskLevelUnknown
	for _, ind := range indicators {
		if ind.RiskLevel == RiskLevelHigh {
			return RiskLevelHigh
		}
		if ind.RiskLevel.rank() > highest.rank() {
			highest = ind.RiskLevel
		}
	}
	return highest
}

// Summarize derives the history view of a record. It does not modify the record.
func Summarize(record *AnalysisRecord) HistorySummary {
	categories := make([]CategoryCount, 0, len(record.Indicators.Categories))
	for _, cat := range record.Indicators.Categories {
		categories = append(categories, CategoryCount{Name: cat.Name, Count: cat.Count})
	}

	return HistorySummary{
		ID:        record.ID,
		URL:       record.URL,
		CreatedAt: record.CreatedAt,
		Summary: RecordSummary{
			TotalIndicators:  len(record.Indicators.Indicators),
			Categories:       categories,
			HighestRiskLevel: HighestRiskLevel(record.Indicators.Indicators),
		},
	}
}

// SummarizeAll maps Summarize over records, preserving order
func SummarizeAll(records []*AnalysisRecord) []HistorySummary {
	out := make([]HistorySummary, 0, len(records))
	for _, r := range records {
		out = append(out, Summarize(r))
	}
	return out
}
