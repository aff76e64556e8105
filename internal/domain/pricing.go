/**
 * @description
 * Derived, non-persisted models produced by the performance analyzer, the
 * pricing recommendation engine, and the competitive pricing estimator. These
 * are advisory read models: nothing in this file mutates mission state.
 */

package domain

import "github.com/google/uuid"

// PerformanceRating buckets a mission's completion rate.
type PerformanceRating string

const (
	RatingExcellent PerformanceRating = "EXCELLENT"
	RatingGood      PerformanceRating = "GOOD"
	RatingFair      PerformanceRating = "FAIR"
	RatingPoor      PerformanceRating = "POOR"
)

// MissionPerformance is the analyzer's output for a single mission.
// EstimatedViews is a heuristic (participants x views-per-participant, floored
// when there is no participation data at all); ViewsEstimated stays true until
// real view telemetry replaces the formula, so consumers can tell the number
// is an approximation rather than a measurement.
type MissionPerformance struct {
	MissionID            uuid.UUID         `json:"mission_id"`
	CurrentPoints        int               `json:"current_points"`
	TotalParticipants    int               `json:"total_participants"`
	CompletedCount       int               `json:"completed_count"`
	EstimatedViews       int               `json:"estimated_views"`
	ViewsEstimated       bool              `json:"views_estimated"`
	CompletionRate       float64           `json:"completion_rate"`  // completed / estimated views, percent
	ConversionRate       float64           `json:"conversion_rate"`  // completed / participants, percent
	AvgTimeToCompleteMin float64           `json:"avg_time_to_complete_min"`
	CostPerAcquisition   float64           `json:"cost_per_acquisition"`
	ROI                  float64           `json:"roi"` // percent
	Rating               PerformanceRating `json:"performance_rating"`
	SuggestedPoints      int               `json:"suggested_points"`
	Reasoning            string            `json:"reasoning"`
}

// PricingAction is the recommendation engine's verdict for one mission.
type PricingAction string

const (
	ActionIncrease PricingAction = "INCREASE"
	ActionDecrease PricingAction = "DECREASE"
	ActionKeep     PricingAction = "KEEP"
	ActionPause    PricingAction = "PAUSE"
)

// PricingRecommendation is advisory output; a human or external automation
// applies it. The engine never writes mission state.
type PricingRecommendation struct {
	MissionID       uuid.UUID     `json:"mission_id"`
	CurrentPoints   int           `json:"current_points"`
	SuggestedPoints int           `json:"suggested_points"`
	Action          PricingAction `json:"action"`
	Confidence      int           `json:"confidence"` // 0-100
	ExpectedImpact  string        `json:"expected_impact"`
}

// PricingEstimate is the competitive estimator's output for a new mission.
type PricingEstimate struct {
	SuggestedPoints int     `json:"suggested_points"`
	BasePoints      int     `json:"base_points"`
	CompetitorCount int     `json:"competitor_count"`
	MarketAverage   float64 `json:"market_average,omitempty"`
}
