package domain

type MonthlyTrend struct {
	Month         string  `json:"month"` // YYYY-MM
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
}

type ReviewStats struct {
	TotalReviews       int                  `json:"totalReviews"`
	AverageRating      float64              `json:"averageRating"`
	RatingDistribution map[int]int          `json:"ratingDistribution"`
	CategoryAverages   map[Category]float64 `json:"categoryAverages"`
	ChannelBreakdown   map[Channel]int      `json:"channelBreakdown"`
	MonthlyTrends      []MonthlyTrend       `json:"monthlyTrends"`
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Issue struct {
	PropertyID   string   `json:"propertyId"`
	PropertyName string   `json:"propertyName"`
	Issue        string   `json:"issue"`
	Count        int      `json:"count"`
	Severity     Severity `json:"severity"`
}

type Dashboard struct {
	TotalReviews            int         `json:"totalReviews"`
	TotalProperties         int         `json:"totalProperties"`
	AverageRating           float64     `json:"averageRating"`
	Properties              []Property  `json:"properties"`
	RecentReviews           []Review    `json:"recentReviews"`
	TopPerformingProperties []Property  `json:"topPerformingProperties"`
	IssuesToAddress         []Issue     `json:"issuesToAddress"`
	Stats                   ReviewStats `json:"stats"`
}

type SyncResult struct {
	Count   int    `json:"count"`
	Message string `json:"-"`
}
