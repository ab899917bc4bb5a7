package models

import "time"

type ReviewType string

const (
	ReviewTypeBug          ReviewType = "bug"
	ReviewTypeOptimization ReviewType = "optimization"
	ReviewTypeReadability  ReviewType = "readability"
)

type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusCompleted ReviewStatus = "completed"
	ReviewStatusFailed    ReviewStatus = "failed"
)

var ReviewLanguages = map[string]struct{}{
	"javascript": {},
	"python":     {},
	"java":       {},
	"cpp":        {},
}

type Review struct {
	ID        string
	UserID    string
	Code      string
	Type      ReviewType
	Language  string
	Review    string
	Status    ReviewStatus
	ObjectKey string
	CreatedAt time.Time
	UpdatedAt time.Time
}
