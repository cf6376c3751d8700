// Package analytics keeps per-user usage accounting and folds it into platform-wide
// statistics on demand.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/idea-forge/internal/monitoring"
	"github.com/ZanzyTHEbar/idea-forge/internal/resilience"
	"github.com/ZanzyTHEbar/idea-forge/internal/storage"
	"github.com/ZanzyTHEbar/idea-forge/internal/types"
)

const (
	userKeyPrefix = "analytics:user:"
	usersIndexKey = "analytics:users"
)

// Aggregator records usage events. Recording is best effort: persistence failures
// are retried briefly, logged and dropped. Safe for concurrent use.
type Aggregator struct {
	kv      storage.KV
	metrics *monitoring.Metrics
	retry   resilience.RetryConfig
	now     func() time.Time

	cacheTTL time.Duration
	cache    *aggregateCache

	locks   sync.Map // user id -> *sync.Mutex
	indexed sync.Map // user ids known to be in the index
	indexMu sync.Mutex
}

// Option customizes an Aggregator
type Option func(*Aggregator)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithMetrics counts dropped writes
func WithMetrics(m *monitoring.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithRetry replaces the persistence retry policy
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(a *Aggregator) { a.retry = cfg }
}

// WithAggregateCache caches GetAggregateAnalytics for ttl. Local writes invalidate it.
func WithAggregateCache(ttl time.Duration) Option {
	return func(a *Aggregator) { a.cacheTTL = ttl }
}

// NewAggregator creates an aggregator over kv
func NewAggregator(kv storage.KV, opts ...Option) *Aggregator {
	retry := resilience.FastRetryPolicy.Config
	// Any store error is worth another quick attempt on this path.
	retry.RetryableErrors = func(error) bool { return true }

	a := &Aggregator{
		kv:    kv,
		retry: retry,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cacheTTL > 0 {
		a.cache = newAggregateCache(a.cacheTTL, a.now)
	}
	return a
}

func userKey(userID string) string {
	return userKeyPrefix + userID
}

func (a *Aggregator) lock(userID string) func() {
	mu, _ := a.locks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// RecordGeneration accounts for a batch of generated ideas
func (a *Aggregator) RecordGeneration(ctx context.Context, userID string, ideas []types.GeneratedIdea) {
	a.update(ctx, "generation", userID, func(d *AnalyticsData, now time.Time) {
		d.TotalIdeasGenerated += len(ideas)

		var months []float64
		for _, idea := range ideas {
			d.IdeasByDifficulty[types.ParseDifficulty(string(idea.Difficulty))]++

			// Unparsable sizes are left out of the buckets.
			if billions, ok := ParseMarketSize(idea.MarketSize); ok {
				d.IdeasByMarketSize.add(billions)
			}
			if n, ok := ParseLeadingInt(idea.TimeToLaunch); ok {
				months = append(months, float64(n))
			}
		}

		// Mean over this batch only; earlier batches do not contribute.
		if avg, ok := roundedMean(months); ok {
			d.AverageTimeToLaunch = formatMonths(avg)
		}

		if len(ideas) > 0 {
			d.GenerationHistory = addHistory(d.GenerationHistory, now.UTC().Format(dateLayout), len(ideas))
		}
	})
}

// RecordFavoriteToggle counts an idea being favorited or unfavorited. The counter
// never goes below zero.
func (a *Aggregator) RecordFavoriteToggle(ctx context.Context, userID string, isNowFavorite bool) {
	a.update(ctx, "favorite", userID, func(d *AnalyticsData, _ time.Time) {
		if isNowFavorite {
			d.FavoriteIdeas++
		} else if d.FavoriteIdeas > 0 {
			d.FavoriteIdeas--
		}
	})
}

// RecordInterestSelection replaces the user's interest tally with the frequencies in
// this one selection and recomputes the top interests from it.
func (a *Aggregator) RecordInterestSelection(ctx context.Context, userID string, interests []string) {
	a.update(ctx, "interests", userID, func(d *AnalyticsData, _ time.Time) {
		d.InterestCounts = tally(interests)
		d.MostCommonInterests = topN(d.InterestCounts, TopInterests)
	})
}

// GetUserAnalytics returns the user's record, or nil when the user has none
func (a *Aggregator) GetUserAnalytics(ctx context.Context, userID string) (*AnalyticsData, error) {
	data := &AnalyticsData{}
	found, err := storage.GetJSON(ctx, a.kv, userKey(userID), data)
	if err != nil {
		return nil, fmt.Errorf("load analytics: %w", err)
	}
	if !found {
		return nil, nil
	}
	data.fill()
	return data, nil
}

// GetAggregateAnalytics folds every known user record into one
func (a *Aggregator) GetAggregateAnalytics(ctx context.Context) (*AnalyticsData, error) {
	if a.cache != nil {
		if d, ok := a.cache.get(); ok {
			a.metrics.IncrementCacheHit(aggregateCacheName)
			return d, nil
		}
		a.metrics.IncrementCacheMiss(aggregateCacheName)
	}

	agg, err := a.aggregate(ctx)
	if err != nil {
		return nil, err
	}
	a.cache.set(agg)
	return agg, nil
}

func (a *Aggregator) aggregate(ctx context.Context) (*AnalyticsData, error) {
	users, err := a.users(ctx)
	if err != nil {
		return nil, err
	}

	agg := NewAnalyticsData()
	var averages []float64
	var counts []InterestCount
	index := make(map[string]int)

	for _, userID := range users {
		d, err := a.GetUserAnalytics(ctx, userID)
		if errors.Is(err, storage.ErrCorrupt) {
			slog.Warn("Skipping corrupt analytics record", "user", anonymize(userID), "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		if d == nil {
			continue
		}

		agg.TotalIdeasGenerated += d.TotalIdeasGenerated
		agg.FavoriteIdeas += d.FavoriteIdeas
		for diff, n := range d.IdeasByDifficulty {
			agg.IdeasByDifficulty[diff] += n
		}
		agg.IdeasByMarketSize.Small += d.IdeasByMarketSize.Small
		agg.IdeasByMarketSize.Medium += d.IdeasByMarketSize.Medium
		agg.IdeasByMarketSize.Large += d.IdeasByMarketSize.Large

		for _, e := range d.GenerationHistory {
			agg.GenerationHistory = addHistory(agg.GenerationHistory, e.Date, e.Count)
		}

		// Users who never generated have no launch estimate to contribute.
		if d.TotalIdeasGenerated > 0 {
			if n, ok := ParseLeadingInt(d.AverageTimeToLaunch); ok {
				averages = append(averages, float64(n))
			}
		}

		for _, c := range d.InterestCounts {
			if i, ok := index[c.Interest]; ok {
				counts[i].Count += c.Count
				continue
			}
			index[c.Interest] = len(counts)
			counts = append(counts, c)
		}
	}

	if avg, ok := roundedMean(averages); ok {
		agg.AverageTimeToLaunch = formatMonths(avg)
	}
	agg.GenerationHistory = pruneHistory(agg.GenerationHistory, a.now())
	agg.InterestCounts = counts
	if agg.InterestCounts == nil {
		agg.InterestCounts = []InterestCount{}
	}
	agg.MostCommonInterests = topN(agg.InterestCounts, TopInterests)

	return agg, nil
}

// update runs one read-modify-write under the user's lock
func (a *Aggregator) update(ctx context.Context, event, userID string, mutate func(*AnalyticsData, time.Time)) {
	unlock := a.lock(userID)
	defer unlock()

	var data *AnalyticsData
	err := resilience.RetryWithConfig(ctx, a.retry, func() error {
		var err error
		data, err = a.GetUserAnalytics(ctx, userID)
		if errors.Is(err, storage.ErrCorrupt) {
			// Rereading the same bytes cannot help. Start the user over.
			slog.Warn("Corrupt analytics record replaced", "event", event, "user", anonymize(userID), "error", err)
			data = nil
			return nil
		}
		return err
	})
	if err != nil {
		a.drop(event, userID, fmt.Errorf("read: %w", err))
		return
	}

	if data == nil {
		data = NewAnalyticsData()
	}

	now := a.now()
	mutate(data, now)
	data.GenerationHistory = pruneHistory(data.GenerationHistory, now)

	err = resilience.RetryWithConfig(ctx, a.retry, func() error {
		return storage.SetJSON(ctx, a.kv, userKey(userID), data)
	})
	if err != nil {
		a.drop(event, userID, fmt.Errorf("write: %w", err))
		return
	}
	defer a.cache.invalidate()

	if _, ok := a.indexed.Load(userID); !ok {
		if err := a.addUser(ctx, userID); err != nil {
			a.drop(event, userID, fmt.Errorf("index: %w", err))
			return
		}
		a.indexed.Store(userID, struct{}{})
	}
}

func (a *Aggregator) drop(event, userID string, err error) {
	a.metrics.IncrementAnalyticsWriteError()
	slog.Error("Analytics event dropped", "event", event, "user", anonymize(userID), "error", err)
}

func (a *Aggregator) users(ctx context.Context) ([]string, error) {
	var users []string
	_, err := storage.GetJSON(ctx, a.kv, usersIndexKey, &users)
	if errors.Is(err, storage.ErrCorrupt) {
		// Forget what this process indexed so every user re-registers on their next event.
		slog.Warn("Corrupt analytics user index, rebuilding", "error", err)
		a.indexed.Range(func(k, _ any) bool {
			a.indexed.Delete(k)
			return true
		})
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user index: %w", err)
	}
	return users, nil
}

func (a *Aggregator) addUser(ctx context.Context, userID string) error {
	a.indexMu.Lock()
	defer a.indexMu.Unlock()

	return resilience.RetryWithConfig(ctx, a.retry, func() error {
		users, err := a.users(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			if u == userID {
				return nil
			}
		}
		return storage.SetJSON(ctx, a.kv, usersIndexKey, append(users, userID))
	})
}
