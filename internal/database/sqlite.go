package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"CatalogScraper/internal/models"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// DBRepository stores the latest exported snapshot of every category.
type DBRepository struct {
	DB *sql.DB
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS runs (
	"id" TEXT NOT NULL PRIMARY KEY,
	"category_id" TEXT NOT NULL,
	"source_site" TEXT NOT NULL,
	"started_at" DATETIME,
	"finished_at" DATETIME,
	"product_count" INTEGER
);`, `
CREATE TABLE IF NOT EXISTS products (
	"source_site" TEXT NOT NULL,
	"category_id" TEXT NOT NULL,
	"product_id" TEXT NOT NULL,
	"run_id" TEXT NOT NULL,
	"name" TEXT,
	"url" TEXT,
	"image_url" TEXT,
	"price" TEXT,
	PRIMARY KEY (source_site, category_id, product_id)
);`,
	`CREATE INDEX IF NOT EXISTS idx_runs_category ON runs (category_id, finished_at);`,
}

// InitDB opens (or creates) the sqlite file and makes sure the schema exists.
func InitDB(filepath string) (*DBRepository, error) {
	db, err := sql.Open("sqlite", filepath)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "create tables")
		}
	}
	return &DBRepository{DB: db}, nil
}

func (repo *DBRepository) Close() error {
	return repo.DB.Close()
}

// NewRun starts the metadata for one category export.
func NewRun(categoryID, sourceSite string, startedAt time.Time) models.Run {
	return models.Run{
		ID:         uuid.NewString(),
		CategoryID: categoryID,
		SourceSite: sourceSite,
		StartedAt:  startedAt,
	}
}

// SaveSnapshot replaces everything stored for the run's category with products, in one transaction.
// Duplicate ids within products keep the last occurrence.
func (repo *DBRepository) SaveSnapshot(ctx context.Context, run models.Run, products []models.Product) error {
	tx, err := repo.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM products WHERE source_site = ? AND category_id = ?`,
		run.SourceSite, run.CategoryID,
	); err != nil {
		return errors.Wrap(err, "clear previous snapshot")
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO products (source_site, category_id, product_id, run_id, name, url, image_url, price)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(source_site, category_id, product_id) DO UPDATE SET
		name=excluded.name,
		url=excluded.url,
		image_url=excluded.image_url,
		price=excluded.price;`)
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx,
			run.SourceSite, run.CategoryID, p.ID, run.ID, p.Name, p.URL, p.ImageURL, p.Price.String(),
		); err != nil {
			return errors.Wrapf(err, "save product %s", p.ID)
		}
	}

	run.ProductCount = len(products)
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, category_id, source_site, started_at, finished_at, product_count) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.CategoryID, run.SourceSite, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.ProductCount,
	); err != nil {
		return errors.Wrap(err, "save run")
	}

	return tx.Commit()
}

func filterClause(filters models.ProductFilters) (string, []interface{}) {
	var args []interface{}
	var conditions []string

	if filters.SourceSite != "" {
		conditions = append(conditions, "source_site = ?")
		args = append(args, filters.SourceSite)
	}
	if filters.CategoryID != "" {
		conditions = append(conditions, "category_id = ?")
		args = append(args, filters.CategoryID)
	}
	if filters.MinPrice.Valid {
		conditions = append(conditions, "CAST(price AS REAL) >= ?")
		args = append(args, filters.MinPrice.Decimal.InexactFloat64())
	}
	if filters.MaxPrice.Valid {
		conditions = append(conditions, "CAST(price AS REAL) <= ?")
		args = append(args, filters.MaxPrice.Decimal.InexactFloat64())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// GetProducts retrieves exported products based on a set of filters, ordered by category and id.
func (repo *DBRepository) GetProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, error) {
	where, args := filterClause(filters)
	query := `SELECT product_id, name, url, image_url, price, source_site FROM products` + where +
		` ORDER BY category_id, product_id`
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
		if filters.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filters.Offset)
		}
	}

	rows, err := repo.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute filtered query")
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		var price string
		if err := rows.Scan(&p.ID, &p.Name, &p.URL, &p.ImageURL, &price, &p.SourceSite); err != nil {
			return nil, errors.Wrap(err, "scan product row")
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, errors.Wrapf(err, "stored price of product %s", p.ID)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CountProducts counts exported products matching the filters, ignoring pagination.
func (repo *DBRepository) CountProducts(ctx context.Context, filters models.ProductFilters) (int, error) {
	where, args := filterClause(filters)
	var count int
	if err := repo.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return count, nil
}

// GetRuns lists export runs, newest first. An empty categoryID lists all categories.
func (repo *DBRepository) GetRuns(ctx context.Context, categoryID string) ([]models.Run, error) {
	query := `SELECT id, category_id, source_site, started_at, finished_at, product_count FROM runs`
	var args []interface{}
	if categoryID != "" {
		query += " WHERE category_id = ?"
		args = append(args, categoryID)
	}
	query += " ORDER BY finished_at DESC"

	rows, err := repo.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		var r models.Run
		if err := rows.Scan(&r.ID, &r.CategoryID, &r.SourceSite, &r.StartedAt, &r.FinishedAt, &r.ProductCount); err != nil {
			return nil, errors.Wrap(err, "scan run row")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
