package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/cache"
)

type fullStore interface {
	Get(ctx context.Context, userID int64, day string) (*models.DailySnapshot, error)
	Create(ctx context.Context, userID int64, day string, sections models.Sections) (string, error)
	ReplaceSections(ctx context.Context, userID int64, day string, sections models.Sections) error
	GetPreferences(ctx context.Context, userID int64) (*models.UserPreferences, error)
	SavePreferences(ctx context.Context, prefs *models.UserPreferences) error
	SaveVote(ctx context.Context, v *models.Vote) error
	ListVotes(ctx context.Context, userID int64, day, dashboardID string) ([]models.Vote, error)
}

func stores(t *testing.T) map[string]fullStore {
	t.Helper()
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(1000))
	t.Cleanup(func() { _ = mem.Close() })

	sq, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "dash.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })

	remote := cache.NewMemoryCache()
	layered := NewKVStore(remote, WithPreferencesCache(cache.NewLayeredCache(remote)))
	t.Cleanup(func() { _ = layered.Close() })

	return map[string]fullStore{
		"kv":         NewKVStore(mem),
		"kv-layered": layered,
		"sqlite":     sq,
	}
}

func sections(news string) models.Sections {
	return models.Sections{
		models.SectionPrices: {Source: "coingecko", Data: map[string]any{"bitcoin": map[string]any{"usd": 1.0}}},
		models.SectionNews:   {Source: "cryptopanic", Data: news},
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(ctx, 1, "2024-05-01")
			if err != nil || got != nil {
				t.Fatalf("expected absent snapshot, got %+v err=%v", got, err)
			}
			if err := s.ReplaceSections(ctx, 1, "2024-05-01", sections("x")); !errors.Is(err, models.ErrNotReady) {
				t.Fatalf("replace on missing snapshot should be ErrNotReady, got %v", err)
			}

			id, err := s.Create(ctx, 1, "2024-05-01", sections("first"))
			if err != nil || id == "" {
				t.Fatalf("create failed: id=%q err=%v", id, err)
			}
			if _, err := s.Create(ctx, 1, "2024-05-01", sections("second")); !errors.Is(err, models.ErrAlreadyExists) {
				t.Fatalf("second create should conflict, got %v", err)
			}
			if _, err := s.Create(ctx, 1, "2024-05-02", sections("next day")); err != nil {
				t.Fatalf("other day should be independent: %v", err)
			}

			got, err = s.Get(ctx, 1, "2024-05-01")
			if err != nil || got == nil || got.ID != id || got.Sections[models.SectionNews].Data != "first" {
				t.Fatalf("unexpected snapshot %+v err=%v", got, err)
			}

			if err := s.ReplaceSections(ctx, 1, "2024-05-01", sections("refreshed")); err != nil {
				t.Fatalf("replace failed: %v", err)
			}
			got, _ = s.Get(ctx, 1, "2024-05-01")
			if got.ID != id || got.Sections[models.SectionNews].Data != "refreshed" || len(got.Sections) != 2 {
				t.Fatalf("replace did not overwrite the mapping: %+v", got)
			}
		})
	}
}

func TestConcurrentCreateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wins, conflicts atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Create(ctx, 9, "2024-05-01", sections("race"))
					switch {
					case err == nil:
						wins.Add(1)
					case errors.Is(err, models.ErrAlreadyExists):
						conflicts.Add(1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()
			if wins.Load() != 1 || conflicts.Load() != 15 {
				t.Fatalf("expected 1 winner and 15 conflicts, got %d/%d", wins.Load(), conflicts.Load())
			}
		})
	}
}

func TestPreferencesCreatedOnce(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if p, err := s.GetPreferences(ctx, 3); err != nil || p != nil {
				t.Fatalf("expected no preferences, got %+v err=%v", p, err)
			}
			prefs := &models.UserPreferences{
				UserID:       3,
				CryptoAssets: []string{"bitcoin", "solana"},
				InvestorType: models.InvestorDeFiYield,
				ContentType:  []models.ContentType{models.ContentFun},
			}
			if err := s.SavePreferences(ctx, prefs); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			if err := s.SavePreferences(ctx, prefs); !errors.Is(err, models.ErrPreferencesExist) {
				t.Fatalf("second save should be rejected, got %v", err)
			}
			got, err := s.GetPreferences(ctx, 3)
			if err != nil || got == nil || got.InvestorType != models.InvestorDeFiYield || len(got.CryptoAssets) != 2 || !got.HasContent(models.ContentFun) {
				t.Fatalf("unexpected preferences %+v err=%v", got, err)
			}
		})
	}
}

func TestVotesUpsertAndFilter(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			day := "2024-05-01"
			votes := []*models.Vote{
				{UserID: 1, DashboardID: "d1", Section: models.SectionNews, Item: "a", Value: 1, Day: day},
				{UserID: 1, DashboardID: "d1", Section: models.SectionNews, Item: "b", Value: -1, Day: day},
				{UserID: 1, DashboardID: "d2", Section: models.SectionRecommendation, Item: "c", Value: 1, Day: day},
				{UserID: 1, DashboardID: "d1", Section: models.SectionNews, Item: "a", Value: -1, Day: day},
			}
			for _, v := range votes {
				if err := s.SaveVote(ctx, v); err != nil {
					t.Fatalf("save vote: %v", err)
				}
			}

			all, err := s.ListVotes(ctx, 1, day, "")
			if err != nil || len(all) != 3 {
				t.Fatalf("expected 3 votes after upsert, got %d err=%v", len(all), err)
			}
			for _, v := range all {
				if v.Item == "a" && v.Value != -1 {
					t.Fatalf("upsert should keep the latest value, got %+v", v)
				}
			}

			d1, _ := s.ListVotes(ctx, 1, day, "d1")
			if len(d1) != 2 {
				t.Fatalf("expected 2 votes for d1, got %d", len(d1))
			}
			none, err := s.ListVotes(ctx, 2, day, "")
			if err != nil || none == nil || len(none) != 0 {
				t.Fatalf("expected empty list for another user, got %v err=%v", none, err)
			}
		})
	}
}

func TestKVSnapshotExpires(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	mem := cache.NewMemoryCache(cache.WithMemoryClock(clock))
	defer mem.Close()

	s := NewKVStore(mem, WithSnapshotTTL(time.Hour), WithKVClock(clock), WithIDGenerator(func() string { return "fixed" }))
	ctx := context.Background()
	if id, err := s.Create(ctx, 1, "2024-05-01", sections("x")); err != nil || id != "fixed" {
		t.Fatalf("create: id=%q err=%v", id, err)
	}
	now = now.Add(2 * time.Hour)
	if got, err := s.Get(ctx, 1, "2024-05-01"); err != nil || got != nil {
		t.Fatalf("expected expired snapshot to be gone, got %+v err=%v", got, err)
	}
}

type captureProducer struct {
	topic string
	key   []byte
	value interface{}
}

func (c *captureProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	c.topic, c.key, c.value = topic, key, value
	return nil
}

func (c *captureProducer) Close() error { return nil }

func TestKafkaEventPublisherKeysByUser(t *testing.T) {
	prod := &captureProducer{}
	p := NewKafkaEventPublisher(prod, "dashboard.events")
	ev := &models.SnapshotEvent{Type: models.EventDashboardCreated, UserID: 42, Day: "2024-05-01"}
	if err := p.PublishSnapshotEvent(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if prod.topic != "dashboard.events" || string(prod.key) != "42" || prod.value != ev {
		t.Fatalf("unexpected publish topic=%s key=%s value=%v", prod.topic, prod.key, prod.value)
	}
}

func TestSQLiteStampsSortInTimeOrder(t *testing.T) {
	whole := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	half := whole.Add(500 * time.Millisecond)
	if !(stamp(whole) < stamp(half)) {
		t.Fatalf("stamps out of order: %s >= %s", stamp(whole), stamp(half))
	}
	if len(stamp(whole)) != len(stamp(half)) {
		t.Fatalf("stamps should be fixed width")
	}

	sq, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "dash.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sq.Close()
	sq.now = func() time.Time { return half }
	ctx := context.Background()
	if _, err := sq.Create(ctx, 1, "2026-01-02", sections("a")); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := sq.Get(ctx, 1, "2026-01-02")
	if err != nil || !got.CreatedAt.Equal(half) {
		t.Fatalf("created_at should round trip, got %+v err=%v", got, err)
	}
}
