package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fluzio/mission-service/internal/domain"
	"github.com/fluzio/mission-service/internal/store"
)

type lifecycleTransition struct {
	missionID uuid.UUID
	expected  domain.LifecycleStatus
	next      domain.LifecycleStatus
}

type lifecycleRepoStub struct {
	store.Repository

	missions   map[uuid.UUID]*domain.Mission
	updateErrs map[uuid.UUID]error

	transitions     []lifecycleTransition
	createdMissions []*domain.Mission
	absentExisting  *domain.Mission
	expired         []domain.Mission
}

func (s *lifecycleRepoStub) FindMissionByID(ctx context.Context, missionID uuid.UUID) (*domain.Mission, error) {
	m, ok := s.missions[missionID]
	if !ok {
		return nil, store.ErrMissionNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *lifecycleRepoStub) UpdateMissionLifecycle(ctx context.Context, missionID uuid.UUID, expected, next domain.LifecycleStatus) error {
	s.transitions = append(s.transitions, lifecycleTransition{missionID: missionID, expected: expected, next: next})
	if err, ok := s.updateErrs[missionID]; ok {
		return err
	}
	return nil
}

func (s *lifecycleRepoStub) CreateMission(ctx context.Context, m *domain.Mission) error {
	s.createdMissions = append(s.createdMissions, m)
	return nil
}

func (s *lifecycleRepoStub) CreateMissionIfAbsent(ctx context.Context, m *domain.Mission) (*domain.Mission, bool, error) {
	if s.absentExisting != nil {
		copied := *s.absentExisting
		return &copied, false, nil
	}
	s.createdMissions = append(s.createdMissions, m)
	return m, true, nil
}

func (s *lifecycleRepoStub) FindExpiredMissions(ctx context.Context, now time.Time) ([]domain.Mission, error) {
	return s.expired, nil
}

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.events))
	for i := range p.events {
		keys[i] = p.events[i].routingKey
	}
	return keys
}

type cacheStub struct {
	stored      map[uuid.UUID]*domain.Mission
	invalidated []uuid.UUID
}

func newCacheStub() *cacheStub {
	return &cacheStub{stored: make(map[uuid.UUID]*domain.Mission)}
}

func (c *cacheStub) GetMission(ctx context.Context, missionID uuid.UUID) (*domain.Mission, error) {
	m, ok := c.stored[missionID]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (c *cacheStub) PutMission(ctx context.Context, m *domain.Mission) error {
	copied := *m
	c.stored[m.ID] = &copied
	return nil
}

func (c *cacheStub) InvalidateMission(ctx context.Context, missionID uuid.UUID) error {
	c.invalidated = append(c.invalidated, missionID)
	delete(c.stored, missionID)
	return nil
}

func newLifecycleService(repo store.Repository, producer *recordingPublisher) *Service {
	return NewService(repo, nil, nil, producer, DefaultAnalyzerConfig(), DefaultEstimatorConfig())
}

func TestCreateMissionRejectsUnknownType(t *testing.T) {
	repo := &lifecycleRepoStub{missions: map[uuid.UUID]*domain.Mission{}}
	svc := newLifecycleService(repo, &recordingPublisher{})

	_, err := svc.CreateMission(context.Background(), uuid.New(), domain.CreateMissionRequest{
		Title:        "Review us",
		MissionType:  "billboard",
		RewardPoints: 100,
	})
	if err == nil {
		t.Fatal("expected an error for an unknown mission type")
	}
	if len(repo.createdMissions) != 0 {
		t.Fatalf("expected no mission to be created, got %d", len(repo.createdMissions))
	}
}

func TestCreateMissionStartsActive(t *testing.T) {
	repo := &lifecycleRepoStub{missions: map[uuid.UUID]*domain.Mission{}}
	producer := &recordingPublisher{}
	svc := newLifecycleService(repo, producer)

	mission, err := svc.CreateMission(context.Background(), uuid.New(), domain.CreateMissionRequest{
		Title:        "Leave a text review",
		MissionType:  "text_review",
		RewardPoints: 120,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mission.LifecycleStatus != domain.StatusActive || !mission.IsActive {
		t.Fatalf("expected a new mission to start ACTIVE, got %s active=%t", mission.LifecycleStatus, mission.IsActive)
	}
	keys := producer.routingKeys()
	if len(keys) != 1 || keys[0] != "mission.lifecycle.activated" {
		t.Fatalf("expected one activated event, got %v", keys)
	}
}

func TestToggleMissionPausesActiveMission(t *testing.T) {
	missionID := uuid.New()
	repo := &lifecycleRepoStub{
		missions: map[uuid.UUID]*domain.Mission{
			missionID: {ID: missionID, LifecycleStatus: domain.StatusPaused, IsActive: false},
		},
		updateErrs: map[uuid.UUID]error{},
	}
	producer := &recordingPublisher{}
	svc := newLifecycleService(repo, producer)
	cache := newCacheStub()
	svc.SetMissionCache(cache)

	mission, err := svc.ToggleMissionStatus(context.Background(), missionID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mission.LifecycleStatus != domain.StatusPaused {
		t.Fatalf("expected PAUSED, got %s", mission.LifecycleStatus)
	}
	if len(repo.transitions) != 1 {
		t.Fatalf("expected one conditional write, got %d", len(repo.transitions))
	}
	tr := repo.transitions[0]
	if tr.expected != domain.StatusActive || tr.next != domain.StatusPaused {
		t.Fatalf("unexpected transition %s -> %s", tr.expected, tr.next)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != missionID {
		t.Fatalf("expected the cache entry to be invalidated, got %v", cache.invalidated)
	}
	keys := producer.routingKeys()
	if len(keys) != 1 || keys[0] != "mission.lifecycle.paused" {
		t.Fatalf("expected one paused event, got %v", keys)
	}
}

func TestToggleMissionStaleToggleIsIdempotent(t *testing.T) {
	// The caller believes the mission is ACTIVE and asks to pause it, but a
	// concurrent toggle already paused it. The lost conditional write resolves
	// to a no-op because the mission is already in the target state.
	missionID := uuid.New()
	repo := &lifecycleRepoStub{
		missions: map[uuid.UUID]*domain.Mission{
			missionID: {ID: missionID, LifecycleStatus: domain.StatusPaused, IsActive: false},
		},
		updateErrs: map[uuid.UUID]error{missionID: store.ErrLifecycleConflict},
	}
	producer := &recordingPublisher{}
	svc := newLifecycleService(repo, producer)

	mission, err := svc.ToggleMissionStatus(context.Background(), missionID, true)
	if err != nil {
		t.Fatalf("expected an idempotent no-op, got error: %v", err)
	}
	if mission.LifecycleStatus != domain.StatusPaused {
		t.Fatalf("expected PAUSED, got %s", mission.LifecycleStatus)
	}
	if len(producer.routingKeys()) != 0 {
		t.Fatalf("a no-op toggle must not publish events, got %v", producer.routingKeys())
	}
}

func TestToggleMissionRejectsCompletedMission(t *testing.T) {
	missionID := uuid.New()
	repo := &lifecycleRepoStub{
		missions: map[uuid.UUID]*domain.Mission{
			missionID: {ID: missionID, LifecycleStatus: domain.StatusCompleted},
		},
		updateErrs: map[uuid.UUID]error{missionID: store.ErrLifecycleConflict},
	}
	svc := newLifecycleService(repo, &recordingPublisher{})

	_, err := svc.ToggleMissionStatus(context.Background(), missionID, false)
	if err != ErrMissionCompleted {
		t.Fatalf("expected ErrMissionCompleted, got %v", err)
	}
}

func TestActivateTemplateCreatesMission(t *testing.T) {
	repo := &lifecycleRepoStub{missions: map[uuid.UUID]*domain.Mission{}}
	producer := &recordingPublisher{}
	svc := newLifecycleService(repo, producer)

	mission, created, err := svc.ActivateTemplate(context.Background(), uuid.New(), domain.ActivateTemplateRequest{
		Template: domain.MissionTemplate{
			Title:               "Follow us on Instagram",
			MissionType:         domain.TypeFollow,
			DefaultRewardPoints: 80,
		},
		City: "Berlin",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected a new mission record")
	}
	if mission.LifecycleStatus != domain.StatusActive {
		t.Fatalf("expected ACTIVE, got %s", mission.LifecycleStatus)
	}
	keys := producer.routingKeys()
	if len(keys) != 1 || keys[0] != "mission.lifecycle.activated" {
		t.Fatalf("expected one activated event, got %v", keys)
	}
}

func TestActivateTemplateSuppressesDuplicateActivation(t *testing.T) {
	existingID := uuid.New()
	existing := &domain.Mission{ID: existingID, Title: "Follow us on Instagram", LifecycleStatus: domain.StatusActive, IsActive: true}
	repo := &lifecycleRepoStub{
		missions:       map[uuid.UUID]*domain.Mission{existingID: existing},
		absentExisting: existing,
	}
	producer := &recordingPublisher{}
	svc := newLifecycleService(repo, producer)

	mission, created, err := svc.ActivateTemplate(context.Background(), uuid.New(), domain.ActivateTemplateRequest{
		Template: domain.MissionTemplate{Title: "Follow us on Instagram", MissionType: domain.TypeFollow},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("duplicate activation must not create a second mission record")
	}
	if mission.ID != existingID {
		t.Fatalf("expected the existing mission back, got %s", mission.ID)
	}
	if len(repo.transitions) != 0 {
		t.Fatalf("duplicate activation must not write, got %d transitions", len(repo.transitions))
	}
	if len(producer.routingKeys()) != 0 {
		t.Fatalf("duplicate activation must not publish, got %v", producer.routingKeys())
	}
}

func TestActivateTemplateReactivatesPausedMission(t *testing.T) {
	existingID := uuid.New()
	repo := &lifecycleRepoStub{
		missions: map[uuid.UUID]*domain.Mission{
			existingID: {ID: existingID, Title: "Follow us on Instagram", LifecycleStatus: domain.StatusActive, IsActive: true},
		},
		absentExisting: &domain.Mission{ID: existingID, Title: "Follow us on Instagram", LifecycleStatus: domain.StatusPaused},
		updateErrs:     map[uuid.UUID]error{},
	}
	producer := &recordingPublisher{}
	svc := newLifecycleService(repo, producer)

	mission, created, err := svc.ActivateTemplate(context.Background(), uuid.New(), domain.ActivateTemplateRequest{
		Template: domain.MissionTemplate{Title: "Follow us on Instagram", MissionType: domain.TypeFollow},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("reactivation must reuse the existing record")
	}
	if mission.LifecycleStatus != domain.StatusActive {
		t.Fatalf("expected ACTIVE after reactivation, got %s", mission.LifecycleStatus)
	}
	if len(repo.transitions) != 1 {
		t.Fatalf("expected one conditional write, got %d", len(repo.transitions))
	}
	tr := repo.transitions[0]
	if tr.expected != domain.StatusPaused || tr.next != domain.StatusActive {
		t.Fatalf("unexpected transition %s -> %s", tr.expected, tr.next)
	}
}

func TestActivateTemplateRejectsCompletedTitle(t *testing.T) {
	existingID := uuid.New()
	completed := &domain.Mission{ID: existingID, Title: "Follow us on Instagram", LifecycleStatus: domain.StatusCompleted}
	repo := &lifecycleRepoStub{
		missions:       map[uuid.UUID]*domain.Mission{existingID: completed},
		absentExisting: completed,
	}
	svc := newLifecycleService(repo, &recordingPublisher{})

	_, _, err := svc.ActivateTemplate(context.Background(), uuid.New(), domain.ActivateTemplateRequest{
		Template: domain.MissionTemplate{Title: "Follow us on Instagram", MissionType: domain.TypeFollow},
	})
	if err != ErrMissionCompleted {
		t.Fatalf("expected ErrMissionCompleted, got %v", err)
	}
}

func TestCompleteExpiredMissionsSkipsAlreadyCompleted(t *testing.T) {
	expiredID := uuid.New()
	racedID := uuid.New()
	repo := &lifecycleRepoStub{
		missions: map[uuid.UUID]*domain.Mission{
			expiredID: {ID: expiredID, LifecycleStatus: domain.StatusCompleted},
			racedID:   {ID: racedID, LifecycleStatus: domain.StatusCompleted},
		},
		updateErrs: map[uuid.UUID]error{racedID: store.ErrLifecycleConflict},
		expired:    []domain.Mission{{ID: expiredID}, {ID: racedID}},
	}
	producer := &recordingPublisher{}
	svc := newLifecycleService(repo, producer)

	completed, err := svc.CompleteExpiredMissions(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed != 1 {
		t.Fatalf("expected exactly one completion, got %d", completed)
	}
	keys := producer.routingKeys()
	if len(keys) != 1 || keys[0] != "mission.lifecycle.completed" {
		t.Fatalf("expected one completed event, got %v", keys)
	}
}

func TestGetMissionFillsAndServesCache(t *testing.T) {
	missionID := uuid.New()
	repo := &lifecycleRepoStub{
		missions: map[uuid.UUID]*domain.Mission{
			missionID: {ID: missionID, Title: "Photo share", LifecycleStatus: domain.StatusActive, IsActive: true},
		},
	}
	svc := newLifecycleService(repo, &recordingPublisher{})
	cache := newCacheStub()
	svc.SetMissionCache(cache)

	first, err := svc.GetMission(context.Background(), missionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cache.stored[missionID]; !ok {
		t.Fatal("expected the miss to fill the cache")
	}

	// Mutate the authoritative record; a cached read must not observe it.
	repo.missions[missionID].Title = "changed"
	second, err := svc.GetMission(context.Background(), missionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Title != first.Title {
		t.Fatalf("expected the cached copy %q, got %q", first.Title, second.Title)
	}
}
