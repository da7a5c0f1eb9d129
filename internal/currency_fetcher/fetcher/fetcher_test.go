package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/langowen/converter/deploy/config"
	"github.com/langowen/converter/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type clientFunc func(ctx context.Context, url string) (*entities.RateTable, error)

func (f clientFunc) ApiClient(ctx context.Context, url string) (*entities.RateTable, error) {
	return f(ctx, url)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveRates(ctx context.Context, table *entities.RateTable) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

type MockRedis struct {
	mock.Mock
}

func (m *MockRedis) PublishUpd(ctx context.Context, table *entities.RateTable) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

type recordingListener struct {
	mu       sync.Mutex
	starts   int
	ends     int
	tables   []*entities.RateTable
	failures []error
}

func (l *recordingListener) OnRefreshStart() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts++
}

func (l *recordingListener) OnRefreshEnd() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ends++
}

func (l *recordingListener) OnRates(table *entities.RateTable) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tables = append(l.tables, table)
}

func (l *recordingListener) OnFailure(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, err)
}

func testConfig() *config.Config {
	return &config.Config{
		Fetcher: config.Fetcher{
			URL:      "http://rates.test/v6/latest/USD",
			Timeout:  time.Second,
			Interval: time.Hour,
		},
		Widget: config.Widget{Currencies: "USD,KRW,EUR"},
	}
}

func fullTable() *entities.RateTable {
	return entities.NewRateTable("USD", map[string]float64{"USD": 1, "KRW": 1300, "EUR": 0.9}, time.Unix(1700000000, 0))
}

func TestFetcher_Refresh_Success(t *testing.T) {
	table := fullTable()
	client := clientFunc(func(ctx context.Context, url string) (*entities.RateTable, error) {
		assert.Equal(t, "http://rates.test/v6/latest/USD", url)
		return table, nil
	})

	storage := &MockStorage{}
	storage.On("SaveRates", mock.Anything, table).Return(nil)
	redis := &MockRedis{}
	redis.On("PublishUpd", mock.Anything, table).Return(errors.New("redis down"))
	listener := &recordingListener{}

	f := NewFetcher(client, testConfig(), WithStorage(storage), WithRedis(redis), WithListener(listener))

	require.NoError(t, f.Refresh(context.Background()))

	assert.Equal(t, 1, listener.starts)
	assert.Equal(t, 1, listener.ends)
	require.Len(t, listener.tables, 1)
	assert.Same(t, table, listener.tables[0])
	assert.Empty(t, listener.failures)
	storage.AssertExpectations(t)
	redis.AssertExpectations(t)
}

func TestFetcher_Refresh_MissingCurrency(t *testing.T) {
	client := clientFunc(func(ctx context.Context, url string) (*entities.RateTable, error) {
		return entities.NewRateTable("USD", map[string]float64{"USD": 1, "EUR": 0.9}, time.Now()), nil
	})
	storage := &MockStorage{}
	listener := &recordingListener{}

	f := NewFetcher(client, testConfig(), WithStorage(storage), WithListener(listener))

	err := f.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrMissingRate)
	assert.Contains(t, err.Error(), "KRW")

	assert.Empty(t, listener.tables)
	require.Len(t, listener.failures, 1)
	assert.ErrorIs(t, listener.failures[0], entities.ErrMissingRate)
	storage.AssertNotCalled(t, "SaveRates", mock.Anything, mock.Anything)
}

func TestFetcher_Refresh_ClientError(t *testing.T) {
	client := clientFunc(func(ctx context.Context, url string) (*entities.RateTable, error) {
		return nil, entities.ErrAPIResult
	})
	listener := &recordingListener{}

	f := NewFetcher(client, testConfig(), WithListener(listener))

	err := f.Refresh(context.Background())
	assert.ErrorIs(t, err, entities.ErrAPIResult)
	require.Len(t, listener.failures, 1)
	assert.Empty(t, listener.tables)
}

func TestFetcher_Refresh_DropsStaleResponse(t *testing.T) {
	slow := entities.NewRateTable("USD", map[string]float64{"USD": 1, "KRW": 1200, "EUR": 0.8}, time.Unix(1, 0))
	fast := fullTable()

	release := make(chan struct{})
	entered := make(chan struct{})
	var calls int
	var mu sync.Mutex

	client := clientFunc(func(ctx context.Context, url string) (*entities.RateTable, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			close(entered)
			<-release
			return slow, nil
		}
		return fast, nil
	})
	listener := &recordingListener{}

	f := NewFetcher(client, testConfig(), WithListener(listener))

	done := make(chan error, 1)
	go func() {
		done <- f.Refresh(context.Background())
	}()

	<-entered
	require.NoError(t, f.Refresh(context.Background()))
	close(release)
	require.NoError(t, <-done)

	require.Len(t, listener.tables, 1)
	assert.Same(t, fast, listener.tables[0])
	assert.Equal(t, 2, listener.starts)
	assert.Equal(t, 2, listener.ends)
}

type blockingRedis struct {
	mu        sync.Mutex
	published []*entities.RateTable

	block      *entities.RateTable
	publishing chan struct{}
	release    chan struct{}
}

func (r *blockingRedis) PublishUpd(ctx context.Context, table *entities.RateTable) error {
	if table == r.block {
		close(r.publishing)
		<-r.release
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, table)

	return nil
}

func (r *blockingRedis) last() *entities.RateTable {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.published) == 0 {
		return nil
	}
	return r.published[len(r.published)-1]
}

func TestFetcher_Refresh_MirrorEndsOnNewestSnapshot(t *testing.T) {
	older := entities.NewRateTable("USD", map[string]float64{"USD": 1, "KRW": 1200, "EUR": 0.8}, time.Unix(1, 0))
	newer := fullTable()

	var calls int
	var mu sync.Mutex
	client := clientFunc(func(ctx context.Context, url string) (*entities.RateTable, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return older, nil
		}
		return newer, nil
	})

	redis := &blockingRedis{
		block:      older,
		publishing: make(chan struct{}),
		release:    make(chan struct{}),
	}
	listener := &recordingListener{}

	f := NewFetcher(client, testConfig(), WithRedis(redis), WithListener(listener))

	first := make(chan error, 1)
	go func() {
		first <- f.Refresh(context.Background())
	}()
	<-redis.publishing

	second := make(chan error, 1)
	go func() {
		second <- f.Refresh(context.Background())
	}()

	require.Eventually(t, func() bool {
		listener.mu.Lock()
		defer listener.mu.Unlock()
		return len(listener.tables) == 2
	}, time.Second, 5*time.Millisecond)

	close(redis.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	assert.Same(t, newer, redis.last())
	assert.Same(t, newer, listener.tables[1])
}

func TestFetcher_StartFetcher_RefreshesImmediatelyAndStops(t *testing.T) {
	refreshed := make(chan struct{}, 1)
	client := clientFunc(func(ctx context.Context, url string) (*entities.RateTable, error) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
		return fullTable(), nil
	})

	f := NewFetcher(client, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.StartFetcher(ctx)
	}()

	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("fetcher did not refresh on start")
	}

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("fetcher did not stop")
	}
}
