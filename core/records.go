package core

// Origin tells the caller whether an analysis ran or came from an existing record
type Origin string

const (
	OriginFresh Origin = "fresh"
	OriginCache Origin = "cache"
)

// AnalysisRecord is a persisted analysis of one URL
type AnalysisRecord struct {
	ID         int64     `json:"id" example:"42"`
	URL        string    `json:"url" example:"https://example.com/report"`
	RawContent *string   `json:"rawContent,omitempty"`
	Indicators IOCResult `json:"indicators"`
	UserID     *int64    `json:"userId,omitempty"`
	CreatedAt  string    `json:"createdAt" example:"2024-05-13T10:00:00Z"`
}

// OwnedBy reports whether the record belongs to userID.
// Records without an owner belong to nobody.
func (r *AnalysisRecord) OwnedBy(userID int64) bool {
	return r.UserID != nil && *r.UserID == userID
}

// SearchQueryRecord is a persisted set of generated queries for an analysis record
type SearchQueryRecord struct {
	ID              int64       `json:"id"`
	IOCID           int64       `json:"iocId"`
	QRadarQueries   []QueryPair `json:"qradarQueries"`
	SentinelQueries []QueryPair `json:"sentinelQueries"`
	CreatedAt       string      `json:"createdAt"`
}

// User is an account created from an external identity
type User struct {
	ID       int64   `json:"id"`
	Email    string  `json:"email"`
	Username *string `json:"username,omitempty"`
	GoogleID *string `json:"googleId,omitempty"`
}
