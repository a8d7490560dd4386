package types

import "time"

// AdminStats aggregates account and assessment counts for the admin dashboard.
// Averages are 0 when no rows exist.
type AdminStats struct {
	TotalUsers int64 `json:"totalUsers"`

	BurnoutTotal    int64   `json:"burnoutTotal"`
	BurnoutLow      int64   `json:"burnoutLow"`
	BurnoutMedium   int64   `json:"burnoutMedium"`
	BurnoutHigh     int64   `json:"burnoutHigh"`
	AvgBurnoutScore float64 `json:"avgBurnoutScore"`

	FatigueTotal       int64   `json:"fatigueTotal"`
	FatigueAlert       int64   `json:"fatigueAlert"`
	FatigueNonVigilant int64   `json:"fatigueNonVigilant"`
	FatigueTired       int64   `json:"fatigueTired"`
	AvgFatigueScore    float64 `json:"avgFatigueScore"`
}

// SnapshotRef locates a stored statistics snapshot.
type SnapshotRef struct {
	Key     string    `json:"key"`
	Bucket  string    `json:"bucket"`
	TakenAt time.Time `json:"takenAt"`
}
