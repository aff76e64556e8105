/**
 * @description
 * Pricing recommendation engine: runs the performance analyzer over every
 * ACTIVE mission a business owns and maps each result to a pricing action.
 * Strictly advisory and read-only; per-mission analysis fans out concurrently
 * because there is no shared mutable state between missions.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/fluzio/mission-service/internal/domain"
)

const (
	pauseCompletionThreshold = 5.0 // percent of estimated views
	pauseMinEstimatedViews   = 50
	increaseTrigger          = 1.15
	decreaseTrigger          = 0.95
)

// BusinessRecommendations produces one pricing recommendation per ACTIVE
// mission owned by the business. Missions whose participation history cannot
// be read are skipped with a warning rather than failing the whole dashboard.
func (s *Service) BusinessRecommendations(ctx context.Context, businessID uuid.UUID) ([]domain.PricingRecommendation, error) {
	missions, err := s.repo.FindActiveMissionsByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	recommendations := make([]domain.PricingRecommendation, len(missions))
	ok := make([]bool, len(missions))

	var wg sync.WaitGroup
	for i := range missions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mission := &missions[i]
			participations, err := s.repo.FindParticipationsByMission(ctx, mission.ID)
			if err != nil {
				log.Printf("level=warn component=pricing msg=\"participation read failed; skipping mission\" mission_id=%s err=%v", mission.ID, err)
				return
			}
			perf := computePerformance(mission, participations, s.analyzerCfg)
			recommendations[i] = recommend(perf)
			ok[i] = true
		}(i)
	}
	wg.Wait()

	result := make([]domain.PricingRecommendation, 0, len(missions))
	for i := range recommendations {
		if ok[i] {
			result = append(result, recommendations[i])
		}
	}
	return result, nil
}

// recommend maps one mission's performance to a pricing action. The pause rule
// overrides the delta rules: a mission nobody completes despite visibility is
// not fixed by price alone.
func recommend(perf domain.MissionPerformance) domain.PricingRecommendation {
	rec := domain.PricingRecommendation{
		MissionID:       perf.MissionID,
		CurrentPoints:   perf.CurrentPoints,
		SuggestedPoints: perf.SuggestedPoints,
	}

	largeSample := perf.TotalParticipants > 20
	current := float64(perf.CurrentPoints)
	suggested := float64(perf.SuggestedPoints)

	switch {
	case perf.CompletionRate < pauseCompletionThreshold && perf.EstimatedViews > pauseMinEstimatedViews:
		rec.Action = domain.ActionPause
		rec.Confidence = 75
		rec.ExpectedImpact = fmt.Sprintf("Completion is %.1f%% despite an estimated %d views; pausing avoids spending points on a mission that is not converting", perf.CompletionRate, perf.EstimatedViews)
	case suggested > current*increaseTrigger:
		rec.Action = domain.ActionIncrease
		rec.Confidence = 60
		if largeSample {
			rec.Confidence = 80
		}
		rec.ExpectedImpact = fmt.Sprintf("Raising the reward to %d points should lift the %.1f%% completion rate", perf.SuggestedPoints, perf.CompletionRate)
	case suggested < current*decreaseTrigger:
		rec.Action = domain.ActionDecrease
		rec.Confidence = 65
		if largeSample {
			rec.Confidence = 85
		}
		rec.ExpectedImpact = fmt.Sprintf("Lowering the reward to %d points preserves margin; performance is strong enough to absorb it", perf.SuggestedPoints)
	default:
		rec.Action = domain.ActionKeep
		rec.Confidence = 70
		rec.ExpectedImpact = "Current reward is performing adequately; no change recommended"
	}
	return rec
}
