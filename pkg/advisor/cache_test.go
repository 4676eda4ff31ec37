package advisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"service-advisor/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

// MockStore is a mock implementation of the Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Find(ctx context.Context, vehicleID int64, area models.ServiceArea) (*models.AdvisoryRecord, error) {
	args := m.Called(ctx, vehicleID, area)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdvisoryRecord), args.Error(1)
}

func (m *MockStore) Upsert(ctx context.Context, record *models.AdvisoryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockAdvisor is a mock implementation of the Advisor interface
type MockAdvisor struct {
	mock.Mock
}

func (m *MockAdvisor) GetAdvice(ctx context.Context, query models.AdvisoryQuery) (*models.AdvisoryResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdvisoryResult), args.Error(1)
}

func testQuery() models.AdvisoryQuery {
	return models.AdvisoryQuery{
		VehicleID: 7,
		Vehicle: models.VehicleContext{
			Brand:    "Skoda",
			Model:    "Octavia",
			Year:     2016,
			FuelType: models.FuelDiesel,
		},
		Area: models.AreaEngineOil,
	}
}

func testResult(summary string) *models.AdvisoryResult {
	return &models.AdvisoryResult{
		Summary:      summary,
		KeyIntervals: []string{"• every 15000 km", "• every 12 months"},
		Sources:      []models.AdvisorySource{{Title: "Manual", URL: "https://example.com/manual"}},
		SafetyNote:   "Indicative only.",
	}
}

func storedRecord(t *testing.T, result *models.AdvisoryResult, createdAt, expiresAt time.Time) *models.AdvisoryRecord {
	payload, err := EncodeResult(result)
	require.NoError(t, err)
	return &models.AdvisoryRecord{
		VehicleID: 7,
		Area:      models.AreaEngineOil,
		Payload:   payload,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
}

func TestCachingAdvisor_FreshHit(t *testing.T) {
	clock := clockz.NewFakeClock()
	now := clock.Now()
	store := new(MockStore)
	inner := new(MockAdvisor)

	cached := testResult("cached")
	store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).
		Return(storedRecord(t, cached, now.Add(-time.Hour), now.Add(time.Hour)), nil)

	hitsBefore := testutil.ToFloat64(cacheLookups.WithLabelValues(lookupHit))

	c := NewCachingAdvisor(inner, store, WithClock(clock))
	result, err := c.GetAdvice(context.Background(), testQuery())

	require.NoError(t, err)
	assert.Equal(t, cached, result)
	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(cacheLookups.WithLabelValues(lookupHit)))
	inner.AssertNotCalled(t, "GetAdvice", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestCachingAdvisor_MissStoresResult(t *testing.T) {
	clock := clockz.NewFakeClock()
	now := clock.Now()
	store := new(MockStore)
	inner := new(MockAdvisor)

	fresh := testResult("fresh")
	store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(nil, nil)
	inner.On("GetAdvice", mock.Anything, testQuery()).Return(fresh, nil).Once()
	store.On("Upsert", mock.Anything, mock.MatchedBy(func(r *models.AdvisoryRecord) bool {
		decoded, err := DecodeResult(r.Payload)
		return err == nil &&
			r.VehicleID == 7 &&
			r.Area == models.AreaEngineOil &&
			r.CreatedAt.Equal(now) &&
			r.ExpiresAt.Equal(now.Add(7*24*time.Hour)) &&
			assert.ObjectsAreEqual(fresh, decoded)
	})).Return(nil).Once()

	c := NewCachingAdvisor(inner, store, WithClock(clock))
	result, err := c.GetAdvice(context.Background(), testQuery())

	require.NoError(t, err)
	assert.Equal(t, fresh, result)
	inner.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestCachingAdvisor_Expiry(t *testing.T) {
	t.Run("expiry equal to now is expired", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		now := clock.Now()
		store := new(MockStore)
		inner := new(MockAdvisor)

		store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).
			Return(storedRecord(t, testResult("old"), now.Add(-TTL), now), nil)
		inner.On("GetAdvice", mock.Anything, mock.Anything).Return(testResult("new"), nil).Once()
		store.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

		c := NewCachingAdvisor(inner, store, WithClock(clock))
		result, err := c.GetAdvice(context.Background(), testQuery())

		require.NoError(t, err)
		assert.Equal(t, "new", result.Summary)
		inner.AssertExpectations(t)
	})

	t.Run("served until just before expiry", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		now := clock.Now()
		store := new(MockStore)
		inner := new(MockAdvisor)

		store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).
			Return(storedRecord(t, testResult("cached"), now, now.Add(TTL)), nil)

		c := NewCachingAdvisor(inner, store, WithClock(clock))

		clock.Advance(TTL - time.Nanosecond)
		result, err := c.GetAdvice(context.Background(), testQuery())
		require.NoError(t, err)
		assert.Equal(t, "cached", result.Summary)
		inner.AssertNotCalled(t, "GetAdvice", mock.Anything, mock.Anything)
	})
}

func TestCachingAdvisor_CorruptPayloadIsMiss(t *testing.T) {
	clock := clockz.NewFakeClock()
	now := clock.Now()
	store := new(MockStore)
	inner := new(MockAdvisor)

	store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(&models.AdvisoryRecord{
		VehicleID: 7,
		Area:      models.AreaEngineOil,
		Payload:   "{not json",
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}, nil)
	inner.On("GetAdvice", mock.Anything, mock.Anything).Return(testResult("fresh"), nil).Once()
	store.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

	c := NewCachingAdvisor(inner, store, WithClock(clock))
	result, err := c.GetAdvice(context.Background(), testQuery())

	require.NoError(t, err)
	assert.Equal(t, "fresh", result.Summary)
	inner.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestCachingAdvisor_RateLimited(t *testing.T) {
	throttled := &RateLimitError{Provider: "gemini", RetryAfter: time.Minute}

	t.Run("serves stale record", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		now := clock.Now()
		store := new(MockStore)
		inner := new(MockAdvisor)

		stale := testResult("stale")
		store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).
			Return(storedRecord(t, stale, now.Add(-30*24*time.Hour), now.Add(-23*24*time.Hour)), nil)
		inner.On("GetAdvice", mock.Anything, mock.Anything).Return(nil, throttled).Once()

		staleBefore := testutil.ToFloat64(cacheFallbacks.WithLabelValues(fallbackStale))

		c := NewCachingAdvisor(inner, store, WithClock(clock))
		result, err := c.GetAdvice(context.Background(), testQuery())

		require.NoError(t, err)
		assert.Equal(t, stale, result)
		assert.Equal(t, staleBefore+1, testutil.ToFloat64(cacheFallbacks.WithLabelValues(fallbackStale)))
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("static answer without record", func(t *testing.T) {
		store := new(MockStore)
		inner := new(MockAdvisor)

		store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(nil, nil)
		inner.On("GetAdvice", mock.Anything, mock.Anything).Return(nil, throttled).Once()

		c := NewCachingAdvisor(inner, store, WithClock(clockz.NewFakeClock()))
		result, err := c.GetAdvice(context.Background(), testQuery())

		require.NoError(t, err)
		assert.True(t, result.Degraded)
		assert.Contains(t, result.SafetyNote, "Try again later")
		assert.Contains(t, result.SafetyNote, "rules-based")
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("static answer when record is corrupt", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		store := new(MockStore)
		inner := new(MockAdvisor)

		store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(&models.AdvisoryRecord{
			VehicleID: 7,
			Area:      models.AreaEngineOil,
			Payload:   "null",
			ExpiresAt: clock.Now().Add(-time.Hour),
		}, nil)
		inner.On("GetAdvice", mock.Anything, mock.Anything).Return(nil, throttled).Once()

		c := NewCachingAdvisor(inner, store, WithClock(clock))
		result, err := c.GetAdvice(context.Background(), testQuery())

		require.NoError(t, err)
		assert.Equal(t, ThrottledResult(), result)
	})
}

func TestCachingAdvisor_ErrorsPropagate(t *testing.T) {
	t.Run("provider unavailable", func(t *testing.T) {
		store := new(MockStore)
		inner := new(MockAdvisor)

		clock := clockz.NewFakeClock()
		store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).
			Return(storedRecord(t, testResult("stale"), clock.Now().Add(-TTL*2), clock.Now().Add(-TTL)), nil)
		inner.On("GetAdvice", mock.Anything, mock.Anything).
			Return(nil, ErrProviderUnavailable).Once()

		c := NewCachingAdvisor(inner, store, WithClock(clock))
		result, err := c.GetAdvice(context.Background(), testQuery())

		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("cancelled request writes nothing", func(t *testing.T) {
		store := new(MockStore)
		inner := new(MockAdvisor)

		ctx, cancel := context.WithCancel(context.Background())
		store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(nil, nil)
		inner.On("GetAdvice", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(testResult("late"), nil).Once()

		c := NewCachingAdvisor(inner, store, WithClock(clockz.NewFakeClock()))
		result, err := c.GetAdvice(ctx, testQuery())

		assert.Nil(t, result)
		assert.ErrorIs(t, err, context.Canceled)
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}

func TestCachingAdvisor_DegradedNotStored(t *testing.T) {
	store := new(MockStore)
	inner := new(MockAdvisor)

	degraded := DegradedResult("the provider answered HTTP 500.")
	store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(nil, nil)
	inner.On("GetAdvice", mock.Anything, mock.Anything).Return(degraded, nil).Once()

	c := NewCachingAdvisor(inner, store, WithClock(clockz.NewFakeClock()))
	result, err := c.GetAdvice(context.Background(), testQuery())

	require.NoError(t, err)
	assert.Equal(t, degraded, result)
	assert.Empty(t, result.KeyIntervals)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestCachingAdvisor_StoreFailures(t *testing.T) {
	t.Run("read failure is a miss", func(t *testing.T) {
		store := new(MockStore)
		inner := new(MockAdvisor)

		store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(nil, errors.New("connection reset"))
		inner.On("GetAdvice", mock.Anything, mock.Anything).Return(testResult("fresh"), nil).Once()
		store.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

		c := NewCachingAdvisor(inner, store, WithClock(clockz.NewFakeClock()))
		result, err := c.GetAdvice(context.Background(), testQuery())

		require.NoError(t, err)
		assert.Equal(t, "fresh", result.Summary)
	})

	t.Run("write failure still answers", func(t *testing.T) {
		store := new(MockStore)
		inner := new(MockAdvisor)

		store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(nil, nil)
		inner.On("GetAdvice", mock.Anything, mock.Anything).Return(testResult("fresh"), nil).Once()
		store.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

		c := NewCachingAdvisor(inner, store, WithClock(clockz.NewFakeClock()))
		result, err := c.GetAdvice(context.Background(), testQuery())

		require.NoError(t, err)
		assert.Equal(t, "fresh", result.Summary)
		store.AssertExpectations(t)
	})
}

// gatedAdvisor blocks every call until release is closed.
type gatedAdvisor struct {
	calls   int64
	started chan struct{}
	release chan struct{}
}

func (g *gatedAdvisor) GetAdvice(ctx context.Context, query models.AdvisoryQuery) (*models.AdvisoryResult, error) {
	atomic.AddInt64(&g.calls, 1)
	g.started <- struct{}{}
	<-g.release
	return testResult(string(query.Area)), nil
}

func TestCachingAdvisor_ConcurrentMisses(t *testing.T) {
	const callers = 8

	run := func(t *testing.T, coalesce bool) int64 {
		store := new(MockStore)
		store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(nil, nil)
		store.On("Upsert", mock.Anything, mock.Anything).Return(nil)

		inner := &gatedAdvisor{started: make(chan struct{}, callers), release: make(chan struct{})}
		c := NewCachingAdvisor(inner, store, WithClock(clockz.NewFakeClock()), WithCoalescing(coalesce))

		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := c.GetAdvice(context.Background(), testQuery())
				assert.NoError(t, err)
				assert.Equal(t, string(models.AreaEngineOil), result.Summary)
			}()
		}

		<-inner.started
		time.Sleep(100 * time.Millisecond)
		close(inner.release)
		wg.Wait()

		return atomic.LoadInt64(&inner.calls)
	}

	t.Run("duplicate calls without coalescing", func(t *testing.T) {
		assert.Equal(t, int64(callers), run(t, false))
	})

	t.Run("single call with coalescing", func(t *testing.T) {
		assert.Equal(t, int64(1), run(t, true))
	})
}

func TestCachingAdvisor_IndependentKeysRunInParallel(t *testing.T) {
	store := new(MockStore)
	store.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	inner := &gatedAdvisor{started: make(chan struct{}, 2), release: make(chan struct{})}
	c := NewCachingAdvisor(inner, store, WithClock(clockz.NewFakeClock()))

	var wg sync.WaitGroup
	for _, area := range []models.ServiceArea{models.AreaEngineOil, models.AreaBattery} {
		query := testQuery()
		query.Area = area
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetAdvice(context.Background(), query)
			assert.NoError(t, err)
		}()
	}

	// Both calls must be in flight at the same time before either finishes.
	for i := 0; i < 2; i++ {
		select {
		case <-inner.started:
		case <-time.After(2 * time.Second):
			t.Fatal("provider calls did not overlap")
		}
	}
	close(inner.release)
	wg.Wait()
}

func waitersFor(c *CachingAdvisor, key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters[key]
}

func TestCachingAdvisor_CoalescedCancelOnlyAffectsCaller(t *testing.T) {
	store := new(MockStore)
	store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(nil, nil)
	store.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

	inner := &gatedAdvisor{started: make(chan struct{}, 1), release: make(chan struct{})}
	c := NewCachingAdvisor(inner, store, WithClock(clockz.NewFakeClock()), WithCoalescing(true))
	key := "7:engine_oil"

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	errA := make(chan error, 1)
	go func() {
		_, err := c.GetAdvice(ctxA, testQuery())
		errA <- err
	}()
	<-inner.started

	type answer struct {
		result *models.AdvisoryResult
		err    error
	}
	answerB := make(chan answer, 1)
	go func() {
		result, err := c.GetAdvice(context.Background(), testQuery())
		answerB <- answer{result, err}
	}()
	require.Eventually(t, func() bool { return waitersFor(c, key) == 2 }, 2*time.Second, 5*time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(inner.release)
	b := <-answerB
	require.NoError(t, b.err)
	assert.Equal(t, string(models.AreaEngineOil), b.result.Summary)

	assert.Equal(t, int64(1), atomic.LoadInt64(&inner.calls))
	store.AssertExpectations(t)
}

func TestCachingAdvisor_CoalescedSkipsWriteWhenEveryCallerLeft(t *testing.T) {
	store := new(MockStore)
	store.On("Find", mock.Anything, int64(7), models.AreaEngineOil).Return(nil, nil)

	inner := &gatedAdvisor{started: make(chan struct{}, 1), release: make(chan struct{})}
	c := NewCachingAdvisor(inner, store, WithClock(clockz.NewFakeClock()), WithCoalescing(true))
	key := "7:engine_oil"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetAdvice(ctx, testQuery())
		errCh <- err
	}()
	<-inner.started

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, 0, waitersFor(c, key))

	close(inner.release)
	// Joins the in-flight call if it is still running.
	_, _, _ = c.group.Do(key, func() (any, error) { return nil, nil })

	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}
