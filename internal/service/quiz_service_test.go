package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"classquiz-service/config"
	"classquiz-service/internal/repository"
	"classquiz-service/pkg/database"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) QuizStarted(quizID string) { f.record("started:" + quizID) }
func (f *fakeNotifier) QuizClosed(quizID string)  { f.record("closed:" + quizID) }
func (f *fakeNotifier) NewResponse(quizID, username, response string) {
	f.record("response:" + quizID + ":" + username + ":" + response)
}

func (f *fakeNotifier) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type fakePublisher struct {
	queues []string
	bodies [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, queueName string, body []byte) error {
	f.queues = append(f.queues, queueName)
	f.bodies = append(f.bodies, body)
	return nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]string{}}
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if !ok {
		return "", errors.New("cache miss")
	}
	return value, nil
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value.(string)
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	client, err := database.Open(&config.DBConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("database.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	return client.GetDB()
}

func newTestService(t *testing.T, notifier Notifier, cache Cache, publisher EventPublisher) *QuizService {
	t.Helper()

	db := newTestDB(t)
	return NewQuizService(
		repository.NewQuizRepository(db),
		repository.NewResponseRepository(db),
		notifier,
		cache,
		publisher,
	)
}

func TestCreateDefaultsEmptySlices(t *testing.T) {
	svc := newTestService(t, &fakeNotifier{}, nil, nil)
	ctx := context.Background()

	quizID, err := svc.Create(ctx, "What is entropy?", nil, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	quiz, err := svc.Get(ctx, quizID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if quiz.Misconceptions == nil || len(quiz.Misconceptions) != 0 {
		t.Fatalf("misconceptions should default to empty, got %v", quiz.Misconceptions)
	}
	if quiz.CorrectAnswers == nil || len(quiz.CorrectAnswers) != 0 {
		t.Fatalf("correct answers should default to empty, got %v", quiz.CorrectAnswers)
	}
	if quiz.Started || quiz.Ended {
		t.Fatalf("new quiz should be neither started nor ended")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(t, notifier, nil, nil)
	ctx := context.Background()

	quizID, err := svc.Create(ctx, "Q", nil, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Start(ctx, quizID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.Close(ctx, quizID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Start after Close: ended is terminal.
	if err := svc.Start(ctx, quizID); !errors.Is(err, ErrQuizEnded) {
		t.Fatalf("Start after Close = %v, want ErrQuizEnded", err)
	}
	if err := svc.Close(ctx, quizID); !errors.Is(err, ErrQuizEnded) {
		t.Fatalf("second Close = %v, want ErrQuizEnded", err)
	}

	events := notifier.all()
	want := []string{"started:" + quizID, "closed:" + quizID}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("notifier events = %v, want %v", events, want)
	}
}

func TestCloseWithoutStart(t *testing.T) {
	svc := newTestService(t, &fakeNotifier{}, nil, nil)
	ctx := context.Background()

	quizID, err := svc.Create(ctx, "Q", nil, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// No rule forbids closing a quiz that never started.
	if err := svc.Close(ctx, quizID); err != nil {
		t.Fatalf("Close on never-started quiz failed: %v", err)
	}
}

func TestRestartLiveQuizRebroadcasts(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(t, notifier, nil, nil)
	ctx := context.Background()

	quizID, _ := svc.Create(ctx, "Q", nil, nil)

	if err := svc.Start(ctx, quizID); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := svc.Start(ctx, quizID); err != nil {
		t.Fatalf("re-start of live quiz failed: %v", err)
	}

	if got := len(notifier.all()); got != 2 {
		t.Fatalf("expected 2 started broadcasts, got %d", got)
	}
}

func TestJoinGates(t *testing.T) {
	svc := newTestService(t, &fakeNotifier{}, nil, nil)
	ctx := context.Background()

	if err := svc.AuthorizeJoin(ctx, "nope", "alice"); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("join unknown quiz = %v, want ErrQuizNotFound", err)
	}

	quizID, _ := svc.Create(ctx, "Q", nil, nil)

	if err := svc.AuthorizeJoin(ctx, quizID, "alice"); err != nil {
		t.Fatalf("join before start failed: %v", err)
	}

	if err := svc.Start(ctx, quizID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.AuthorizeJoin(ctx, quizID, "bob"); !errors.Is(err, ErrQuizStarted) {
		t.Fatalf("join after start = %v, want ErrQuizStarted", err)
	}

	if err := svc.Close(ctx, quizID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := svc.AuthorizeJoin(ctx, quizID, "carol"); !errors.Is(err, ErrQuizStarted) && !errors.Is(err, ErrQuizEnded) {
		t.Fatalf("join after close = %v, want a lifecycle rejection", err)
	}
}

func TestSubmitGates(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(t, notifier, nil, nil)
	ctx := context.Background()

	if err := svc.SubmitResponse(ctx, "nope", "alice", "hi"); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("submit to unknown quiz = %v, want ErrQuizNotFound", err)
	}

	quizID, _ := svc.Create(ctx, "Q", nil, nil)

	// Submission stays open while the quiz is live, unlike joining.
	if err := svc.Start(ctx, quizID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.SubmitResponse(ctx, quizID, "alice", "answer text"); err != nil {
		t.Fatalf("submit after start failed: %v", err)
	}

	events := notifier.all()
	if events[len(events)-1] != "response:"+quizID+":alice:answer text" {
		t.Fatalf("expected new-response broadcast, got %v", events)
	}

	if err := svc.Close(ctx, quizID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := svc.SubmitResponse(ctx, quizID, "alice", "too late"); !errors.Is(err, ErrQuizEnded) {
		t.Fatalf("submit after close = %v, want ErrQuizEnded", err)
	}
}

func TestSubmitOverwritesAndResponsesList(t *testing.T) {
	svc := newTestService(t, &fakeNotifier{}, nil, nil)
	ctx := context.Background()

	quizID, _ := svc.Create(ctx, "Q", nil, nil)

	if err := svc.SubmitResponse(ctx, quizID, "alice", "first"); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if err := svc.SubmitResponse(ctx, quizID, "alice", "second"); err != nil {
		t.Fatalf("second submit failed: %v", err)
	}

	responses, err := svc.Responses(ctx, quizID)
	if err != nil {
		t.Fatalf("Responses failed: %v", err)
	}
	if len(responses) != 1 || responses[0].Response != "second" {
		t.Fatalf("expected single overwritten response, got %v", responses)
	}

	if _, err := svc.Responses(ctx, "nope"); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("Responses for unknown quiz = %v, want ErrQuizNotFound", err)
	}
}

func TestCacheInvalidatedOnTransition(t *testing.T) {
	cache := newMapCache()
	svc := newTestService(t, &fakeNotifier{}, cache, nil)
	ctx := context.Background()

	quizID, _ := svc.Create(ctx, "Q", nil, nil)

	// Warm the cache with the not-yet-started record.
	if _, err := svc.Get(ctx, quizID); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := cache.entries[quizCacheKey(quizID)]; !ok {
		t.Fatal("expected Get to populate the cache")
	}

	if err := svc.Start(ctx, quizID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, ok := cache.entries[quizCacheKey(quizID)]; ok {
		t.Fatal("expected Start to invalidate the cached record")
	}
	if err := svc.AuthorizeJoin(ctx, quizID, "bob"); !errors.Is(err, ErrQuizStarted) {
		t.Fatalf("join after start = %v, want ErrQuizStarted", err)
	}
}

func TestStaleCacheWritebackCannotAdmitLateJoiner(t *testing.T) {
	cache := newMapCache()
	svc := newTestService(t, &fakeNotifier{}, cache, nil)
	ctx := context.Background()

	quizID, _ := svc.Create(ctx, "Q", nil, nil)

	// Capture the pre-start record as a racing reader would have seen it.
	if _, err := svc.Get(ctx, quizID); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	stale, err := cache.Get(ctx, quizCacheKey(quizID))
	if err != nil {
		t.Fatalf("expected cached record: %v", err)
	}

	if err := svc.Start(ctx, quizID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A reader that lost the race to Start writes its pre-start copy back
	// after the invalidation, where it sits for the full TTL. Admission must
	// still be decided by the store.
	if err := cache.Set(ctx, quizCacheKey(quizID), stale, quizCacheTTL); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := svc.AuthorizeJoin(ctx, quizID, "bob"); !errors.Is(err, ErrQuizStarted) {
		t.Fatalf("join after start = %v, want ErrQuizStarted", err)
	}
}

func TestLifecycleEventsPublished(t *testing.T) {
	publisher := &fakePublisher{}
	svc := newTestService(t, &fakeNotifier{}, nil, publisher)
	ctx := context.Background()

	quizID, _ := svc.Create(ctx, "Q", nil, nil)
	if err := svc.Start(ctx, quizID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.Close(ctx, quizID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(publisher.queues) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(publisher.queues))
	}
	for _, queue := range publisher.queues {
		if queue != "quiz-events" {
			t.Fatalf("event published to queue %q, want quiz-events", queue)
		}
	}
}
