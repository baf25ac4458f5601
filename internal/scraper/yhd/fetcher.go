package yhd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"CatalogScraper/internal/metrics"
	"CatalogScraper/internal/transport"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

// ErrEmptyEnvelope is returned when the listing response has no HTML in its "value" field.
var ErrEmptyEnvelope = errors.New("listing envelope has no value")

type FetchStatus int

const (
	FetchOK FetchStatus = iota
	FetchEmpty
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return metrics.OutcomeOK
	case FetchEmpty:
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeFailed
	}
}

// FetchOutcome is the result of fetching one listing page. Doc is set only for FetchOK.
// Err holds the last attempt's error for FetchFailed.
type FetchOutcome struct {
	Status   FetchStatus
	Doc      *goquery.Document
	Attempts int
	Err      error
}

// listingEnvelope is the JSON wrapper around the listing HTML fragment.
type listingEnvelope struct {
	Value string `json:"value"`
}

// PageFetcher downloads listing pages and retries any failure a bounded number of times.
type PageFetcher struct {
	getter     transport.Getter
	urlFormat  string
	provinceID string
	retryTimes int
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
}

func NewPageFetcher(getter transport.Getter, urlFormat, provinceID string, retryTimes int, log logrus.FieldLogger, m *metrics.Metrics) *PageFetcher {
	return &PageFetcher{
		getter:     getter,
		urlFormat:  urlFormat,
		provinceID: provinceID,
		retryTimes: retryTimes,
		log:        log,
		metrics:    m,
	}
}

// PageURL builds the search page URL for a category and a 1-based page number.
func (f *PageFetcher) PageURL(categoryID string, page int) string {
	return fmt.Sprintf(f.urlFormat, categoryID, page)
}

// FetchPage tries the page up to 1+retryTimes times without delay. Exhausted pages are logged
// and reported as FetchFailed; callers skip them instead of failing.
func (f *PageFetcher) FetchPage(ctx context.Context, categoryID string, page int) FetchOutcome {
	pageURL := f.PageURL(categoryID, page)
	maxAttempts := f.retryTimes + 1

	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts++
		f.metrics.FetchAttempts.Inc()

		doc, err := f.fetchOnce(ctx, pageURL)
		if err == nil {
			status := FetchOK
			if IsEmptyResult(doc) {
				status, doc = FetchEmpty, nil
			}
			f.metrics.PagesTotal.WithLabelValues(status.String()).Inc()
			return FetchOutcome{Status: status, Doc: doc, Attempts: attempts}
		}

		lastErr = err
		f.log.WithFields(logrus.Fields{
			"category": categoryID,
			"page":     page,
			"attempt":  attempts,
		}).WithError(err).Debug("Listing page attempt failed")
	}

	f.log.WithFields(logrus.Fields{
		"category": categoryID,
		"page":     page,
		"attempts": attempts,
	}).WithError(lastErr).Warn("Failed to fetch listing page, skipping it")
	f.metrics.PagesTotal.WithLabelValues(FetchFailed.String()).Inc()
	return FetchOutcome{Status: FetchFailed, Attempts: attempts, Err: lastErr}
}

func (f *PageFetcher) fetchOnce(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := f.getter.Get(ctx, pageURL, &http.Cookie{Name: "provinceId", Value: f.provinceID})
	if err != nil {
		return nil, err
	}

	var envelope listingEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.Wrap(err, "decode listing envelope")
	}
	if strings.TrimSpace(envelope.Value) == "" {
		return nil, ErrEmptyEnvelope
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(envelope.Value))
	if err != nil {
		return nil, errors.Wrap(err, "parse listing html")
	}
	return doc, nil
}
