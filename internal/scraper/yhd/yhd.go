package yhd

import (
	"context"
	"time"

	"CatalogScraper/internal/metrics"
	"CatalogScraper/internal/models"
	"CatalogScraper/internal/scraper"
	"CatalogScraper/internal/transport"
	"CatalogScraper/pkg/config"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SourceSite tags every product extracted from Yihaodian.
const SourceSite = "yhd"

// YhdScraper extracts whole categories from the Yihaodian search listing.
type YhdScraper struct {
	fetcher    *PageFetcher
	parser     *ListingParser
	reconciler *PriceReconciler
	workers    int
	parallel   bool
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
}

var _ scraper.Scraper = (*YhdScraper)(nil)

// New wires the fetcher, parser and reconciler from the config sections they need.
// workers bounds the number of pages processed at the same time.
func New(getter transport.Getter, scraperConf config.ScraperConfig, yhdConf config.YhdConfig, workers int, log logrus.FieldLogger, m *metrics.Metrics) *YhdScraper {
	if workers < 1 {
		workers = 1
	}
	log = log.WithField("source", SourceSite)

	return &YhdScraper{
		fetcher:    NewPageFetcher(getter, yhdConf.ListingURLFormat, yhdConf.ProvinceID, scraperConf.RetryTimes, log, m),
		parser:     NewListingParser(yhdConf.PlaceholderImageURL),
		reconciler: NewPriceReconciler(getter, yhdConf.PriceURL, yhdConf.ProvinceID, yhdConf.MCSite, yhdConf.BatchSize, log, m),
		workers:    workers,
		parallel:   scraperConf.Parallel,
		log:        log,
		metrics:    m,
	}
}

func (s *YhdScraper) SourceSite() string {
	return SourceSite
}

// ExtractCategory discovers the page count from page 1, parses every page concurrently and
// reconciles prices once all pages are in. Pages that cannot be fetched are skipped; a
// malformed entry or a failed price call fails the whole category.
func (s *YhdScraper) ExtractCategory(ctx context.Context, categoryID string) ([]models.Product, error) {
	start := time.Now()
	products, err := s.extract(ctx, categoryID)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.ExtractionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return products, err
}

func (s *YhdScraper) extract(ctx context.Context, categoryID string) ([]models.Product, error) {
	log := s.log.WithField("category", categoryID)

	first := s.fetcher.FetchPage(ctx, categoryID, 1)
	switch first.Status {
	case FetchFailed:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Warn("First listing page unavailable, reporting category as empty")
		return []models.Product{}, nil
	case FetchEmpty:
		log.Info("Category has no products")
		return []models.Product{}, nil
	}

	totalPages, err := ParseTotalPages(first.Doc)
	if err != nil {
		return nil, errors.Wrapf(err, "category %s", categoryID)
	}
	log.WithField("pages", totalPages).Info("Starting category extraction")

	bag := scraper.NewProductBag()
	processPage := func(page int) error {
		outcome := first
		if page != 1 {
			outcome = s.fetcher.FetchPage(ctx, categoryID, page)
		}
		if outcome.Status != FetchOK {
			return nil
		}

		products, err := s.parser.ParseListing(outcome.Doc)
		if err != nil {
			return errors.Wrapf(err, "category %s page %d", categoryID, page)
		}
		s.metrics.ProductsParsed.Add(float64(len(products)))
		bag.Add(products...)
		log.WithFields(logrus.Fields{"page": page, "products": len(products)}).Debug("Parsed listing page")
		return nil
	}

	if s.parallel {
		err = s.processConcurrently(ctx, totalPages, processPage)
	} else {
		for page := 1; page <= totalPages && err == nil; page++ {
			err = processPage(page)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	products := bag.Products()
	if err := s.reconciler.Reconcile(ctx, products); err != nil {
		return nil, errors.Wrapf(err, "category %s", categoryID)
	}

	log.WithFields(logrus.Fields{"pages": totalPages, "products": len(products)}).Info("Category extraction finished")
	return products, nil
}

// processConcurrently runs one task per page, at most s.workers at a time. Fetches use the
// caller's ctx, so a failing page never cancels its siblings mid-request; pages that have not
// started yet are skipped once any page has failed.
func (s *YhdScraper) processConcurrently(ctx context.Context, totalPages int, processPage func(page int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for page := 1; page <= totalPages; page++ {
		page := page
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			return processPage(page)
		})
	}
	return g.Wait()
}
