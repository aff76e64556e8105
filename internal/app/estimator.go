/**
 * @description
 * Competitive pricing estimator: suggests a starting reward for a *new* mission
 * from its complexity, mission type, and what competing businesses in the same
 * city and category currently pay. Never fails the caller: when the business
 * profile or its city cannot be resolved, it falls back to the base complexity
 * value.
 */

package app

import (
	"context"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/fluzio/mission-service/internal/domain"
)

// EstimatorConfig holds the pricing table behind the estimator.
type EstimatorConfig struct {
	BasePoints        map[domain.Complexity]int
	TypeMultipliers   map[domain.MissionType]float64
	CompetitorPremium float64 // applied on top of the market average
	MinPoints         int
	MaxPoints         int
}

// DefaultEstimatorConfig returns the production pricing table.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		BasePoints: map[domain.Complexity]int{
			domain.ComplexityEasy:   50,
			domain.ComplexityMedium: 100,
			domain.ComplexityHard:   200,
		},
		TypeMultipliers: map[domain.MissionType]float64{
			domain.TypeFollow:      0.8,
			domain.TypeTextReview:  1.2,
			domain.TypePhotoReview: 1.5,
			domain.TypePhotoShare:  1.3,
			domain.TypeInPerson:    1.0,
			domain.TypeCustom:      1.1,
		},
		CompetitorPremium: 1.10,
		MinPoints:         25,
		MaxPoints:         500,
	}
}

// EstimateStartingPoints computes a suggested starting reward. The competitor
// query only considers ACTIVE missions of *other* businesses; when any exist
// the suggestion starts slightly above their average to stay competitive.
func (s *Service) EstimateStartingPoints(ctx context.Context, businessID uuid.UUID, missionType domain.MissionType, category string, complexity domain.Complexity) domain.PricingEstimate {
	cfg := s.estimatorCfg
	base := cfg.BasePoints[complexity]
	estimate := domain.PricingEstimate{
		SuggestedPoints: base,
		BasePoints:      base,
	}

	city := ""
	if s.businesses != nil {
		resolved, err := s.businesses.GetBusinessCity(ctx, businessID)
		if err != nil {
			log.Printf("level=warn component=estimator msg=\"business profile unresolved; using base pricing\" business_id=%s err=%v", businessID, err)
			return estimate
		}
		city = strings.TrimSpace(resolved)
	}
	if city == "" {
		return estimate
	}

	suggested := float64(base)
	competitors, err := s.repo.FindCompetitorMissions(ctx, city, category, businessID)
	if err != nil {
		log.Printf("level=warn component=estimator msg=\"competitor query failed; using base pricing\" business_id=%s city=%s err=%v", businessID, city, err)
	} else if len(competitors) > 0 {
		var sum int
		for i := range competitors {
			sum += competitors[i].RewardPoints
		}
		avg := float64(sum) / float64(len(competitors))
		estimate.CompetitorCount = len(competitors)
		estimate.MarketAverage = avg
		suggested = avg * cfg.CompetitorPremium
	}

	multiplier, ok := cfg.TypeMultipliers[missionType]
	if !ok {
		multiplier = 1.0
	}
	suggested *= multiplier

	points := int(math.Round(suggested))
	if points < cfg.MinPoints {
		points = cfg.MinPoints
	}
	if points > cfg.MaxPoints {
		points = cfg.MaxPoints
	}
	estimate.SuggestedPoints = points
	return estimate
}
