package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"CatalogScraper/internal/metrics"
	"CatalogScraper/internal/models"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultLimit = 20

// Store is the read side of the export database.
type Store interface {
	GetProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, error)
	CountProducts(ctx context.Context, filters models.ProductFilters) (int, error)
	GetRuns(ctx context.Context, categoryID string) ([]models.Run, error)
}

// NewHandler routes /products, /runs and /metrics.
func NewHandler(store Store, m *metrics.Metrics, log logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/products", productsHandler(store, log))
	mux.HandleFunc("/runs", runsHandler(store, log))
	mux.Handle("/metrics", m.Handler())
	return mux
}

// Start serves the read API on port until ctx is cancelled.
func Start(ctx context.Context, store Store, port string, m *metrics.Metrics, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           NewHandler(store, m, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.WithField("port", port).Info("Starting catalog API server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen")
	}
	return nil
}

func parseFilters(r *http.Request) (models.ProductFilters, int, error) {
	queryParams := r.URL.Query()
	page, _ := strconv.Atoi(queryParams.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(queryParams.Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}

	filters := models.ProductFilters{
		CategoryID: queryParams.Get("category"),
		SourceSite: queryParams.Get("source"),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}
	for key, target := range map[string]*decimal.NullDecimal{"min_price": &filters.MinPrice, "max_price": &filters.MaxPrice} {
		raw := queryParams.Get(key)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return filters, page, errors.Errorf("invalid %s: %q", key, raw)
		}
		*target = decimal.NewNullDecimal(value)
	}
	return filters, page, nil
}

func productsHandler(store Store, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, page, err := parseFilters(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		totalProducts, err := store.CountProducts(r.Context(), filters)
		if err != nil {
			log.WithError(err).Error("Failed to count products")
			http.Error(w, "Failed to count products", http.StatusInternalServerError)
			return
		}
		totalPages := int(math.Ceil(float64(totalProducts) / float64(filters.Limit)))

		products, err := store.GetProducts(r.Context(), filters)
		if err != nil {
			log.WithError(err).Error("Failed to get products")
			http.Error(w, "Failed to get products", http.StatusInternalServerError)
			return
		}

		writeJSON(w, log, models.ProductsResponse{
			Data: products,
			Pagination: models.Pagination{
				TotalPages:  totalPages,
				CurrentPage: page,
			},
		})
	}
}

func runsHandler(store Store, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := store.GetRuns(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			log.WithError(err).Error("Failed to get runs")
			http.Error(w, "Failed to get runs", http.StatusInternalServerError)
			return
		}
		writeJSON(w, log, models.RunsResponse{Data: runs})
	}
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}
