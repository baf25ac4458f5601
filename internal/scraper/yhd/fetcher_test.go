package yhd

import (
	"context"
	"errors"
	"testing"

	"CatalogScraper/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(getter *fakeGetter) (*PageFetcher, *metrics.Metrics) {
	m := metrics.NewNop()
	return NewPageFetcher(getter, testListingFormat, "2", 3, testLogger(), m), m
}

func TestFetchPage_Success(t *testing.T) {
	getter := &fakeGetter{handler: func(string) ([]byte, error) {
		return envelope(t, listingHTML(4, entry("1", "Widget", "1.00"))), nil
	}}
	fetcher, m := newTestFetcher(getter)

	outcome := fetcher.FetchPage(context.Background(), "5009", 2)

	require.Equal(t, FetchOK, outcome.Status)
	require.NotNil(t, outcome.Doc)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, []string{"http://listing.test/c5009/p2"}, getter.calls)
	require.Len(t, getter.cookies, 1)
	assert.Equal(t, "provinceId", getter.cookies[0].Name)
	assert.Equal(t, "2", getter.cookies[0].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues(metrics.OutcomeOK)))
}

func TestFetchPage_EmptyResult(t *testing.T) {
	getter := &fakeGetter{handler: func(string) ([]byte, error) {
		return envelope(t, emptyHTML()), nil
	}}
	fetcher, _ := newTestFetcher(getter)

	outcome := fetcher.FetchPage(context.Background(), "5009", 1)

	assert.Equal(t, FetchEmpty, outcome.Status)
	assert.Nil(t, outcome.Doc)
}

func TestFetchPage_ExhaustsRetries(t *testing.T) {
	boom := errors.New("connection reset")
	getter := &fakeGetter{handler: func(string) ([]byte, error) { return nil, boom }}
	fetcher, m := newTestFetcher(getter)

	outcome := fetcher.FetchPage(context.Background(), "5009", 7)

	assert.Equal(t, FetchFailed, outcome.Status)
	assert.Equal(t, 4, outcome.Attempts)
	assert.ErrorIs(t, outcome.Err, boom)
	assert.Len(t, getter.calls, 4)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.FetchAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues(metrics.OutcomeFailed)))
}

func TestFetchPage_RetriesEnvelopeFailures(t *testing.T) {
	responses := [][]byte{
		[]byte(`not json`),
		[]byte(`{"value": "   "}`),
		[]byte(`{}`),
		envelope(t, listingHTML(1)),
	}
	getter := &fakeGetter{}
	getter.handler = func(string) ([]byte, error) {
		return responses[len(getter.calls)-1], nil
	}
	fetcher, _ := newTestFetcher(getter)

	outcome := fetcher.FetchPage(context.Background(), "5009", 1)

	assert.Equal(t, FetchOK, outcome.Status)
	assert.Equal(t, 4, outcome.Attempts)
}

func TestFetchPage_BlankEnvelopeIsReported(t *testing.T) {
	getter := &fakeGetter{handler: func(string) ([]byte, error) { return []byte(`{"value": ""}`), nil }}
	fetcher, _ := newTestFetcher(getter)

	outcome := fetcher.FetchPage(context.Background(), "5009", 1)

	assert.Equal(t, FetchFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, ErrEmptyEnvelope)
}

func TestFetchPage_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	getter := &fakeGetter{}
	getter.handler = func(string) ([]byte, error) {
		cancel()
		return nil, errors.New("timeout")
	}
	fetcher, _ := newTestFetcher(getter)

	outcome := fetcher.FetchPage(ctx, "5009", 1)

	assert.Equal(t, FetchFailed, outcome.Status)
	assert.Equal(t, 1, outcome.Attempts)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestPageURL(t *testing.T) {
	_, yhdConf := testConfigs()
	fetcher := NewPageFetcher(nil, "http://www.yihaodian.com/ctg/searchPage/c%s-/b0/a-s1-v0-p%d-price-d0-f04-m1-rt0-pid-k/", yhdConf.ProvinceID, 3, testLogger(), metrics.NewNop())

	assert.Equal(t, "http://www.yihaodian.com/ctg/searchPage/c5009-/b0/a-s1-v0-p3-price-d0-f04-m1-rt0-pid-k/", fetcher.PageURL("5009", 3))
}
