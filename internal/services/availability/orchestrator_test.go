package availability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/models"
)

// MockPageFetcher is a mock implementation of PageFetcher
type MockPageFetcher struct {
	mock.Mock
}

func (m *MockPageFetcher) FetchStock(ctx context.Context, url string) ([]models.RawVariant, error) {
	args := m.Called(ctx, url)
	if variants, ok := args.Get(0).([]models.RawVariant); ok {
		return variants, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPageFetcher) CheckAvailable(ctx context.Context, url string) (bool, error) {
	args := m.Called(ctx, url)
	return args.Bool(0), args.Error(1)
}

// funcFetcher routes each URL to a handler, for tests that need blocking or panics.
type funcFetcher struct {
	stock map[string]func(ctx context.Context) ([]models.RawVariant, error)
	check map[string]func(ctx context.Context) (bool, error)
	calls atomic.Int64
}

func (f *funcFetcher) FetchStock(ctx context.Context, url string) ([]models.RawVariant, error) {
	f.calls.Add(1)
	if fn, ok := f.stock[url]; ok {
		return fn(ctx)
	}
	return nil, errors.New("no handler for " + url)
}

func (f *funcFetcher) CheckAvailable(ctx context.Context, url string) (bool, error) {
	f.calls.Add(1)
	if fn, ok := f.check[url]; ok {
		return fn(ctx)
	}
	return false, errors.New("no handler for " + url)
}

const testPath = "/products/alpha-tee"

func regionURL(code string) string {
	return "https://" + code + ".shop.test" + testPath
}

func TestOrchestrator_FetchAllRegions(t *testing.T) {
	fetcher := new(MockPageFetcher)
	fetcher.On("FetchStock", mock.Anything, regionURL("us")).Return([]models.RawVariant{
		{Color: "Black", Size: "S", Available: true},
	}, nil)
	fetcher.On("FetchStock", mock.Anything, regionURL("eu")).Return([]models.RawVariant{
		{Color: "Black", Size: "M", Available: false},
		{Color: "", Size: "L", Available: true},
	}, nil)

	o := NewOrchestrator(newTestRegions(t, "us", "eu"), fetcher, arbor.NewLogger())
	records := o.FetchAllRegions(context.Background(), testPath)

	require.Len(t, records, 2)
	assert.Equal(t, "us", records[0].RegionCode)
	assert.Equal(t, models.StatusYes, records[0].Status("Black", "S"))
	assert.Equal(t, "eu", records[1].RegionCode)
	assert.Equal(t, models.StatusNo, records[1].Status("Black", "M"))
	assert.Equal(t, 1, records[1].Len())
	fetcher.AssertExpectations(t)
}

func TestOrchestrator_FailureIsolation(t *testing.T) {
	fetcher := new(MockPageFetcher)
	fetcher.On("FetchStock", mock.Anything, regionURL("us")).Return([]models.RawVariant{
		{Color: "Black", Size: "S", Available: true},
	}, nil)
	fetcher.On("FetchStock", mock.Anything, regionURL("eu")).Return(nil, errors.New("connection reset"))
	fetcher.On("FetchStock", mock.Anything, regionURL("uk")).Return([]models.RawVariant{
		{Color: "Black", Size: "S", Available: false},
	}, nil)

	o := NewOrchestrator(newTestRegions(t, "us", "eu", "uk"), fetcher, arbor.NewLogger())
	records := o.FetchAllRegions(context.Background(), testPath)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"us", "eu", "uk"}, []string{records[0].RegionCode, records[1].RegionCode, records[2].RegionCode})
	assert.True(t, records[1].IsEmpty())
	assert.Equal(t, models.StatusYes, records[0].Status("Black", "S"))
	assert.Equal(t, models.StatusNo, records[2].Status("Black", "S"))
}

func TestOrchestrator_PanicIsContained(t *testing.T) {
	fetcher := &funcFetcher{stock: map[string]func(context.Context) ([]models.RawVariant, error){
		regionURL("us"): func(context.Context) ([]models.RawVariant, error) {
			panic("parser exploded")
		},
		regionURL("eu"): func(context.Context) ([]models.RawVariant, error) {
			return []models.RawVariant{{Color: "Black", Size: "M", Available: true}}, nil
		},
	}}

	o := NewOrchestrator(newTestRegions(t, "us", "eu"), fetcher, arbor.NewLogger())
	records := o.FetchAllRegions(context.Background(), testPath)

	require.Len(t, records, 2)
	assert.Equal(t, "us", records[0].RegionCode)
	assert.True(t, records[0].IsEmpty())
	assert.Equal(t, models.StatusYes, records[1].Status("Black", "M"))
}

func TestOrchestrator_OrderIndependentOfCompletion(t *testing.T) {
	euDone := make(chan struct{})
	fetcher := &funcFetcher{stock: map[string]func(context.Context) ([]models.RawVariant, error){
		regionURL("us"): func(context.Context) ([]models.RawVariant, error) {
			<-euDone
			return []models.RawVariant{{Color: "Black", Size: "S", Available: true}}, nil
		},
		regionURL("eu"): func(context.Context) ([]models.RawVariant, error) {
			defer close(euDone)
			return []models.RawVariant{{Color: "White", Size: "M", Available: true}}, nil
		},
	}}

	o := NewOrchestrator(newTestRegions(t, "us", "eu"), fetcher, arbor.NewLogger())
	records := o.FetchAllRegions(context.Background(), testPath)

	require.Len(t, records, 2)
	assert.Equal(t, "us", records[0].RegionCode)
	assert.Equal(t, "eu", records[1].RegionCode)

	report := NewAggregator().CreateReport(records)
	assert.Equal(t, []string{"Black", "White"}, report.Colors)
}

func TestOrchestrator_RunsConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	barrier := func(context.Context) ([]models.RawVariant, error) {
		wg.Done()
		wg.Wait()
		return nil, nil
	}
	fetcher := &funcFetcher{stock: map[string]func(context.Context) ([]models.RawVariant, error){
		regionURL("us"): barrier,
		regionURL("eu"): barrier,
	}}

	o := NewOrchestrator(newTestRegions(t, "us", "eu"), fetcher, arbor.NewLogger())

	done := make(chan []models.RegionStock)
	go func() { done <- o.FetchAllRegions(context.Background(), testPath) }()

	select {
	case records := <-done:
		assert.Len(t, records, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("region fetches did not run concurrently")
	}
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	fetcher := new(MockPageFetcher)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(newTestRegions(t, "us", "eu"), fetcher, arbor.NewLogger())
	records := o.FetchAllRegions(ctx, testPath)

	require.Len(t, records, 2)
	assert.True(t, records[0].IsEmpty())
	assert.True(t, records[1].IsEmpty())
	fetcher.AssertNotCalled(t, "FetchStock", mock.Anything, mock.Anything)
}

func TestOrchestrator_CheckRegions(t *testing.T) {
	fetcher := new(MockPageFetcher)
	fetcher.On("CheckAvailable", mock.Anything, regionURL("us")).Return(true, nil)
	fetcher.On("CheckAvailable", mock.Anything, regionURL("eu")).Return(false, nil)
	fetcher.On("CheckAvailable", mock.Anything, regionURL("uk")).Return(false, errors.New("timeout"))

	o := NewOrchestrator(newTestRegions(t, "us", "eu", "uk"), fetcher, arbor.NewLogger())
	checks := o.CheckRegions(context.Background(), testPath)

	assert.Equal(t, []models.RegionCheck{
		{RegionCode: "us", Available: true},
		{RegionCode: "eu", Available: false},
		{RegionCode: "uk", Available: false, Failed: true},
	}, checks)
	fetcher.AssertExpectations(t)
}

func TestOrchestrator_CheckRegionReturnsURLOnFailure(t *testing.T) {
	fetcher := new(MockPageFetcher)
	fetcher.On("CheckAvailable", mock.Anything, regionURL("uk")).Return(false, errors.New("timeout"))

	o := NewOrchestrator(newTestRegions(t, "us", "eu", "uk"), fetcher, arbor.NewLogger())
	url, available, err := o.checkRegion(context.Background(), "uk", testPath)

	assert.EqualError(t, err, "timeout")
	assert.False(t, available)
	assert.Equal(t, regionURL("uk"), url)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	url, _, err = o.checkRegion(ctx, "eu", testPath)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, regionURL("eu"), url)
	fetcher.AssertNotCalled(t, "CheckAvailable", mock.Anything, regionURL("eu"))
}
