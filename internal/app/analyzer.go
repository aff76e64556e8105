/**
 * @description
 * Performance analyzer: computes completion-rate and ROI metrics for a single
 * mission from its participation history. This is an advisory, best-effort
 * computation: missing or sparse data degrades to documented defaults instead
 * of raising errors, because nothing downstream mutates state based on it.
 *
 * @notes
 * - Estimated views are a placeholder heuristic (participants x a configurable
 *   factor, with a floor used only when no participation data exists). Real
 *   view telemetry should replace it; until then ViewsEstimated is always true
 *   in the output.
 * - Two completion metrics exist on purpose. CompletionRate is measured against
 *   estimated views and drives the rating and the raise branches; it can never
 *   exceed 100/ViewsPerParticipant percent, which is why the decrease branch
 *   keys on ConversionRate (completed over participants) instead.
 */

package app

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/fluzio/mission-service/internal/domain"
)

// AnalyzerConfig holds the tunable constants behind the performance metrics.
// Every threshold the decision table uses lives here, not in the code.
type AnalyzerConfig struct {
	ValuePerCompletionEUR    float64 // assumed business value of one completion
	PointsPerEuro            float64 // point-to-currency exchange constant
	ViewsPerParticipant      int     // estimated views per participant
	MinEstimatedViews        int     // floor applied when there is no participation data
	DefaultTimeToCompleteMin float64 // reported when no participation was ever approved

	RatingExcellent float64 // completion-rate thresholds, percent
	RatingGood      float64
	RatingFair      float64

	VeryLowCompletion  float64 // raise-strongly branch, percent of estimated views
	LowCompletion      float64 // raise-moderately branch
	SweetSpotLow       float64 // keep branch bounds
	SweetSpotHigh      float64
	VeryHighConversion float64 // decrease branch, percent of participants
	StrongROI          float64 // decrease branch, percent

	LargeSampleParticipants int // sample size above which confidence scales up
	SmallSampleParticipants int // sample size for the moderate-raise branch
}

// DefaultAnalyzerConfig returns the production defaults.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		ValuePerCompletionEUR:    7.5,
		PointsPerEuro:            100,
		ViewsPerParticipant:      3,
		MinEstimatedViews:        100,
		DefaultTimeToCompleteMin: 30,
		RatingExcellent:          40,
		RatingGood:               25,
		RatingFair:               15,
		VeryLowCompletion:        10,
		LowCompletion:            20,
		SweetSpotLow:             30,
		SweetSpotHigh:            50,
		VeryHighConversion:       60,
		StrongROI:                200,
		LargeSampleParticipants:  20,
		SmallSampleParticipants:  10,
	}
}

// AnalyzeMission computes the performance read model for one mission. The reads
// go straight to the authoritative store; the cache mirror plays no part in
// pricing decisions.
func (s *Service) AnalyzeMission(ctx context.Context, missionID uuid.UUID) (*domain.MissionPerformance, error) {
	mission, err := s.repo.FindMissionByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	participations, err := s.repo.FindParticipationsByMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	perf := computePerformance(mission, participations, s.analyzerCfg)
	return &perf, nil
}

// computePerformance is the pure core of the analyzer.
func computePerformance(mission *domain.Mission, participations []domain.Participation, cfg AnalyzerConfig) domain.MissionPerformance {
	total := len(participations)
	completed := 0
	var completionMinutes float64
	for i := range participations {
		p := &participations[i]
		if p.Status != domain.ParticipationApproved {
			continue
		}
		completed++
		if p.ApprovedAt != nil && p.ApprovedAt.After(p.AppliedAt) {
			completionMinutes += p.ApprovedAt.Sub(p.AppliedAt).Minutes()
		}
	}

	estimatedViews := total * cfg.ViewsPerParticipant
	if estimatedViews <= 0 {
		estimatedViews = cfg.MinEstimatedViews
	}

	completionRate := 0.0
	if estimatedViews > 0 {
		completionRate = float64(completed) / float64(estimatedViews) * 100
	}
	conversionRate := 0.0
	if total > 0 {
		conversionRate = float64(completed) / float64(total) * 100
	}

	avgTime := cfg.DefaultTimeToCompleteMin
	if completed > 0 {
		avgTime = completionMinutes / float64(completed)
	}

	// Kept as the explicit per-completion formula for future variable rewards;
	// with a uniform reward it reduces to the mission's current points.
	cpa := float64(mission.RewardPoints)
	if completed > 0 {
		cpa = float64(completed*mission.RewardPoints) / float64(completed)
	}

	roi := 0.0
	if mission.RewardPoints > 0 && cfg.PointsPerEuro > 0 {
		costEUR := float64(mission.RewardPoints) / cfg.PointsPerEuro
		roi = cfg.ValuePerCompletionEUR / costEUR * 100
	}

	suggested, reasoning := suggestPoints(mission.RewardPoints, total, completionRate, conversionRate, roi, cfg)

	return domain.MissionPerformance{
		MissionID:            mission.ID,
		CurrentPoints:        mission.RewardPoints,
		TotalParticipants:    total,
		CompletedCount:       completed,
		EstimatedViews:       estimatedViews,
		ViewsEstimated:       true,
		CompletionRate:       completionRate,
		ConversionRate:       conversionRate,
		AvgTimeToCompleteMin: avgTime,
		CostPerAcquisition:   cpa,
		ROI:                  roi,
		Rating:               rate(completionRate, cfg),
		SuggestedPoints:      suggested,
		Reasoning:            reasoning,
	}
}

func rate(completionRate float64, cfg AnalyzerConfig) domain.PerformanceRating {
	switch {
	case completionRate >= cfg.RatingExcellent:
		return domain.RatingExcellent
	case completionRate >= cfg.RatingGood:
		return domain.RatingGood
	case completionRate >= cfg.RatingFair:
		return domain.RatingFair
	default:
		return domain.RatingPoor
	}
}

// suggestPoints is the reward decision table. Branch order matters: the strong
// raise wins over the moderate one, and the keep band only applies when no
// raise or decrease condition fired.
func suggestPoints(current, participants int, completionRate, conversionRate, roi float64, cfg AnalyzerConfig) (int, string) {
	switch {
	case participants > cfg.LargeSampleParticipants && completionRate < cfg.VeryLowCompletion:
		return int(math.Round(float64(current) * 1.5)),
			fmt.Sprintf("High participation (%d) but completion under %.0f%% of estimated views; the reward is likely too low for the effort asked", participants, cfg.VeryLowCompletion)
	case participants > cfg.SmallSampleParticipants && completionRate < cfg.LowCompletion:
		return int(math.Round(float64(current) * 1.25)),
			fmt.Sprintf("Completion (%.1f%%) lags participation; a moderate raise should improve conversion", completionRate)
	case conversionRate > cfg.VeryHighConversion && roi > cfg.StrongROI:
		return int(math.Round(float64(current) * 0.9)),
			fmt.Sprintf("Very high completion (%.0f%% of participants) with strong ROI (%.0f%%); a slight reduction keeps margin without hurting uptake", conversionRate, roi)
	case completionRate >= cfg.SweetSpotLow && completionRate <= cfg.SweetSpotHigh:
		return current, "Completion rate is in the healthy band; keep the current reward"
	default:
		return current, "No clear pricing signal yet; keep the current reward"
	}
}
