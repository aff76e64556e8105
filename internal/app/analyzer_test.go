package app

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fluzio/mission-service/internal/domain"
)

func approvedParticipation(minutesToApprove float64) domain.Participation {
	applied := time.Now().UTC().Add(-2 * time.Hour)
	approved := applied.Add(time.Duration(minutesToApprove * float64(time.Minute)))
	return domain.Participation{
		ID:         uuid.New(),
		Status:     domain.ParticipationApproved,
		AppliedAt:  applied,
		ApprovedAt: &approved,
	}
}

func pendingParticipation() domain.Participation {
	return domain.Participation{
		ID:        uuid.New(),
		Status:    domain.ParticipationPending,
		AppliedAt: time.Now().UTC(),
	}
}

func participationSet(approved, pending int, minutesToApprove float64) []domain.Participation {
	set := make([]domain.Participation, 0, approved+pending)
	for i := 0; i < approved; i++ {
		set = append(set, approvedParticipation(minutesToApprove))
	}
	for i := 0; i < pending; i++ {
		set = append(set, pendingParticipation())
	}
	return set
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.05
}

func TestComputePerformanceNoParticipants(t *testing.T) {
	mission := &domain.Mission{ID: uuid.New(), RewardPoints: 100}
	perf := computePerformance(mission, nil, DefaultAnalyzerConfig())

	if perf.EstimatedViews != 100 {
		t.Fatalf("expected the view floor of 100 with no data, got %d", perf.EstimatedViews)
	}
	if !perf.ViewsEstimated {
		t.Fatal("views must be flagged as estimated")
	}
	if perf.CompletionRate != 0 {
		t.Fatalf("expected 0%% completion, got %.2f", perf.CompletionRate)
	}
	if perf.Rating != domain.RatingPoor {
		t.Fatalf("expected POOR, got %s", perf.Rating)
	}
	if perf.SuggestedPoints != 100 {
		t.Fatalf("no data must keep the current reward, got %d", perf.SuggestedPoints)
	}
	if perf.AvgTimeToCompleteMin != 30 {
		t.Fatalf("expected the default completion time, got %.1f", perf.AvgTimeToCompleteMin)
	}
}

func TestComputePerformanceViewsScaleWithParticipants(t *testing.T) {
	// Once participation data exists the view heuristic is participants x 3;
	// the floor only covers the no-data case.
	mission := &domain.Mission{ID: uuid.New(), RewardPoints: 100}
	perf := computePerformance(mission, participationSet(10, 15, 20), DefaultAnalyzerConfig())

	if perf.EstimatedViews != 75 {
		t.Fatalf("expected 25x3=75 estimated views, got %d", perf.EstimatedViews)
	}
	if !almostEqual(perf.CompletionRate, 13.33) {
		t.Fatalf("expected ~13.33%% completion, got %.2f", perf.CompletionRate)
	}
}

func TestComputePerformanceModerateRaise(t *testing.T) {
	// 25 participants, 10 completions: completion lags participation, so the
	// moderate raise branch fires (x1.25).
	mission := &domain.Mission{ID: uuid.New(), RewardPoints: 100}
	perf := computePerformance(mission, participationSet(10, 15, 20), DefaultAnalyzerConfig())

	if perf.SuggestedPoints != 125 {
		t.Fatalf("expected a moderate raise to 125, got %d", perf.SuggestedPoints)
	}
}

func TestComputePerformanceStrongRaise(t *testing.T) {
	// Lots of participants, almost no completions: the reward is likely far too
	// low, so the strong raise branch fires (x1.5).
	mission := &domain.Mission{ID: uuid.New(), RewardPoints: 100}
	perf := computePerformance(mission, participationSet(2, 23, 20), DefaultAnalyzerConfig())

	if !almostEqual(perf.CompletionRate, 2.67) {
		t.Fatalf("expected ~2.67%% completion, got %.2f", perf.CompletionRate)
	}
	if perf.SuggestedPoints != 150 {
		t.Fatalf("expected a strong raise to 150, got %d", perf.SuggestedPoints)
	}
	if perf.Rating != domain.RatingPoor {
		t.Fatalf("expected POOR, got %s", perf.Rating)
	}
}

func TestComputePerformanceDecreaseOnStrongConversion(t *testing.T) {
	// 30 participants, 21 completions at 150 points: conversion is 70% and ROI
	// is 500%, so a slight decrease preserves margin (x0.9).
	mission := &domain.Mission{ID: uuid.New(), RewardPoints: 150}
	perf := computePerformance(mission, participationSet(21, 9, 20), DefaultAnalyzerConfig())

	if !almostEqual(perf.ConversionRate, 70) {
		t.Fatalf("expected 70%% conversion, got %.2f", perf.ConversionRate)
	}
	if !almostEqual(perf.ROI, 500) {
		t.Fatalf("expected 500%% ROI, got %.2f", perf.ROI)
	}
	if perf.SuggestedPoints != 135 {
		t.Fatalf("expected a decrease to 135, got %d", perf.SuggestedPoints)
	}
}

func TestComputePerformanceSweetSpotKeeps(t *testing.T) {
	// Completion sits in the healthy band and the ROI is not rich enough for a
	// decrease: keep the current reward.
	mission := &domain.Mission{ID: uuid.New(), RewardPoints: 400}
	perf := computePerformance(mission, participationSet(9, 1, 20), DefaultAnalyzerConfig())

	if !almostEqual(perf.CompletionRate, 30) {
		t.Fatalf("expected 30%% completion, got %.2f", perf.CompletionRate)
	}
	if perf.ROI > 200 {
		t.Fatalf("test requires ROI under the decrease threshold, got %.2f", perf.ROI)
	}
	if perf.SuggestedPoints != 400 {
		t.Fatalf("expected the current reward to be kept, got %d", perf.SuggestedPoints)
	}
	if perf.Rating != domain.RatingGood {
		t.Fatalf("expected GOOD, got %s", perf.Rating)
	}
}

func TestComputePerformanceAverageCompletionTime(t *testing.T) {
	mission := &domain.Mission{ID: uuid.New(), RewardPoints: 100}
	perf := computePerformance(mission, participationSet(4, 0, 45), DefaultAnalyzerConfig())

	if !almostEqual(perf.AvgTimeToCompleteMin, 45) {
		t.Fatalf("expected a 45 minute average, got %.2f", perf.AvgTimeToCompleteMin)
	}
	if !almostEqual(perf.CostPerAcquisition, 100) {
		t.Fatalf("expected a CPA equal to the uniform reward, got %.2f", perf.CostPerAcquisition)
	}
}
