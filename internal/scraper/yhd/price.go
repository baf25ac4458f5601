package yhd

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"CatalogScraper/internal/metrics"
	"CatalogScraper/internal/models"
	"CatalogScraper/internal/transport"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// realPrice is one entry of the truestock response.
type realPrice struct {
	ProductID    string          `json:"productId"`
	ProductPrice decimal.Decimal `json:"productPrice"`
}

// PriceReconciler overlays the real-price endpoint onto listing prices.
type PriceReconciler struct {
	getter     transport.Getter
	priceURL   string
	provinceID string
	mcSite     string
	batchSize  int
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
}

func NewPriceReconciler(getter transport.Getter, priceURL, provinceID, mcSite string, batchSize int, log logrus.FieldLogger, m *metrics.Metrics) *PriceReconciler {
	if batchSize < 1 {
		batchSize = 1
	}
	return &PriceReconciler{
		getter:     getter,
		priceURL:   priceURL,
		provinceID: provinceID,
		mcSite:     mcSite,
		batchSize:  batchSize,
		log:        log,
		metrics:    m,
	}
}

// Reconcile updates prices in place, one sequential call per batch. Products the endpoint does
// not mention keep their listing price. Any failed call aborts with ErrReconciliation; there is
// no retry here.
func (r *PriceReconciler) Reconcile(ctx context.Context, products []models.Product) error {
	firstIndex := make(map[string]int, len(products))
	for i, p := range products {
		if _, ok := firstIndex[p.ID]; !ok {
			firstIndex[p.ID] = i
		}
	}

	var matched, unknown int
	for start := 0; start < len(products); start += r.batchSize {
		end := min(start+r.batchSize, len(products))

		prices, err := r.fetchBatch(ctx, products[start:end])
		if err != nil {
			return &models.ReconcileError{Start: start, End: end, Err: err}
		}

		for _, rp := range prices {
			i, ok := firstIndex[rp.ProductID]
			if !ok {
				unknown++
				r.log.WithField("product_id", rp.ProductID).Debug("Real price returned for unknown product")
				continue
			}
			products[i].Price = rp.ProductPrice
			matched++
		}
	}

	r.metrics.PricesReconciled.Add(float64(matched))
	r.log.WithFields(logrus.Fields{
		"products":   len(products),
		"reconciled": matched,
		"unknown":    unknown,
	}).Info("Price reconciliation finished")
	return nil
}

// BatchURL builds the truestock query for a batch of products.
func (r *PriceReconciler) BatchURL(batch []models.Product) string {
	params := url.Values{}
	params.Set("mcsite", r.mcSite)
	params.Set("provinceId", r.provinceID)
	for _, p := range batch {
		params.Add("productIds", p.ID)
	}

	sep := "?"
	if strings.Contains(r.priceURL, "?") {
		sep = "&"
	}
	return r.priceURL + sep + params.Encode()
}

func (r *PriceReconciler) fetchBatch(ctx context.Context, batch []models.Product) ([]realPrice, error) {
	r.metrics.ReconcileBatches.Inc()

	body, err := r.getter.Get(ctx, r.BatchURL(batch))
	if err != nil {
		return nil, err
	}

	var prices []realPrice
	if err := json.Unmarshal(body, &prices); err != nil {
		return nil, errors.Wrap(err, "decode real prices")
	}
	return prices, nil
}
