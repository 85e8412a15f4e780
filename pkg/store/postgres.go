package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on top of a pgx connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and ensures the schema exists
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return p, nil
}

// Close releases the connection pool
func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping checks database connectivity
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS showcases (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		company_name TEXT NOT NULL,
		logo_url TEXT NOT NULL DEFAULT '',
		brand_color TEXT NOT NULL,
		subdomain TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_showcases_user ON showcases(user_id);
	CREATE INDEX IF NOT EXISTS idx_showcases_subdomain ON showcases(subdomain);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		showcase_id TEXT NOT NULL REFERENCES showcases(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		external_product_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_products_showcase ON products(showcase_id);

	CREATE TABLE IF NOT EXISTS prices (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		base_price_in_cents INTEGER NOT NULL,
		price_quantity INTEGER NOT NULL,
		recurring_interval TEXT NOT NULL,
		recurring_frequency INTEGER NOT NULL,
		external_price_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_prices_product ON prices(product_id);
	CREATE INDEX IF NOT EXISTS idx_prices_external ON prices(external_price_id);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		license_key TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		scheduled_to_cancel BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_subscriptions_external ON subscriptions(external_id);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_license ON subscriptions(license_key);
	`

	_, err := p.pool.Exec(ctx, ddl)
	return err
}

// translateErr maps pgx errors onto the store sentinels
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// --- Showcases ---

// CreateShowcase inserts a new showcase row
func (p *Postgres) CreateShowcase(ctx context.Context, s *Showcase) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
	INSERT INTO showcases (id, user_id, company_name, logo_url, brand_color, subdomain, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := p.pool.Exec(ctx, query,
		s.ID, s.UserID, s.CompanyName, s.LogoURL, s.BrandColor, s.Subdomain, s.CreatedAt, s.UpdatedAt)
	return translateErr(err)
}

// GetShowcase retrieves a showcase by id
func (p *Postgres) GetShowcase(ctx context.Context, id string) (*Showcase, error) {
	query := `
	SELECT id, user_id, company_name, logo_url, brand_color, subdomain, created_at, updated_at
	FROM showcases WHERE id = $1
	`
	s := &Showcase{}
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.CompanyName, &s.LogoURL, &s.BrandColor, &s.Subdomain, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return s, nil
}

// GetShowcaseBySubdomain retrieves a showcase by its unique subdomain
func (p *Postgres) GetShowcaseBySubdomain(ctx context.Context, subdomain string) (*Showcase, error) {
	query := `
	SELECT id, user_id, company_name, logo_url, brand_color, subdomain, created_at, updated_at
	FROM showcases WHERE subdomain = $1
	`
	s := &Showcase{}
	err := p.pool.QueryRow(ctx, query, subdomain).Scan(
		&s.ID, &s.UserID, &s.CompanyName, &s.LogoURL, &s.BrandColor, &s.Subdomain, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return s, nil
}

// ListShowcasesByUser retrieves all showcases owned by a user
func (p *Postgres) ListShowcasesByUser(ctx context.Context, userID string) ([]*Showcase, error) {
	query := `
	SELECT id, user_id, company_name, logo_url, brand_color, subdomain, created_at, updated_at
	FROM showcases WHERE user_id = $1 ORDER BY created_at
	`
	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []*Showcase
	for rows.Next() {
		s := &Showcase{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.CompanyName, &s.LogoURL, &s.BrandColor, &s.Subdomain, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateShowcase updates branding fields. The subdomain is intentionally
// not updatable once bound.
func (p *Postgres) UpdateShowcase(ctx context.Context, s *Showcase) error {
	query := `
	UPDATE showcases SET company_name = $2, logo_url = $3, brand_color = $4, updated_at = NOW()
	WHERE id = $1
	`
	tag, err := p.pool.Exec(ctx, query, s.ID, s.CompanyName, s.LogoURL, s.BrandColor)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteShowcase deletes a showcase; products and prices cascade
func (p *Postgres) DeleteShowcase(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM showcases WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Products ---

// CreateProduct inserts a new product row
func (p *Postgres) CreateProduct(ctx context.Context, pr *Product) error {
	now := time.Now()
	pr.CreatedAt = now
	pr.UpdatedAt = now

	query := `
	INSERT INTO products (id, showcase_id, name, external_product_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := p.pool.Exec(ctx, query, pr.ID, pr.ShowcaseID, pr.Name, pr.ExternalProductID, pr.CreatedAt, pr.UpdatedAt)
	return translateErr(err)
}

// GetProduct retrieves a product by id
func (p *Postgres) GetProduct(ctx context.Context, id string) (*Product, error) {
	query := `
	SELECT id, showcase_id, name, external_product_id, created_at, updated_at
	FROM products WHERE id = $1
	`
	pr := &Product{}
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&pr.ID, &pr.ShowcaseID, &pr.Name, &pr.ExternalProductID, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return pr, nil
}

// ListProductsByShowcase retrieves all products for a showcase
func (p *Postgres) ListProductsByShowcase(ctx context.Context, showcaseID string) ([]*Product, error) {
	query := `
	SELECT id, showcase_id, name, external_product_id, created_at, updated_at
	FROM products WHERE showcase_id = $1 ORDER BY created_at
	`
	rows, err := p.pool.Query(ctx, query, showcaseID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []*Product
	for rows.Next() {
		pr := &Product{}
		if err := rows.Scan(&pr.ID, &pr.ShowcaseID, &pr.Name, &pr.ExternalProductID, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// UpdateProduct updates a product's name and external id
func (p *Postgres) UpdateProduct(ctx context.Context, pr *Product) error {
	query := `
	UPDATE products SET name = $2, external_product_id = $3, updated_at = NOW()
	WHERE id = $1
	`
	tag, err := p.pool.Exec(ctx, query, pr.ID, pr.Name, pr.ExternalProductID)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct deletes a product; its prices cascade
func (p *Postgres) DeleteProduct(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Prices ---

// CreatePrice inserts a new price row
func (p *Postgres) CreatePrice(ctx context.Context, pr *Price) error {
	now := time.Now()
	pr.CreatedAt = now
	pr.UpdatedAt = now

	query := `
	INSERT INTO prices (id, product_id, name, base_price_in_cents, price_quantity, recurring_interval, recurring_frequency, external_price_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := p.pool.Exec(ctx, query,
		pr.ID, pr.ProductID, pr.Name, pr.BasePriceInCents, pr.PriceQuantity,
		pr.RecurringInterval, pr.RecurringFrequency, pr.ExternalPriceID, pr.CreatedAt, pr.UpdatedAt)
	return translateErr(err)
}

// GetPriceByExternalID retrieves a price by its provider price id
func (p *Postgres) GetPriceByExternalID(ctx context.Context, externalID string) (*Price, error) {
	query := `
	SELECT id, product_id, name, base_price_in_cents, price_quantity, recurring_interval, recurring_frequency, external_price_id, created_at, updated_at
	FROM prices WHERE external_price_id = $1
	`
	pr := &Price{}
	err := p.pool.QueryRow(ctx, query, externalID).Scan(
		&pr.ID, &pr.ProductID, &pr.Name, &pr.BasePriceInCents, &pr.PriceQuantity,
		&pr.RecurringInterval, &pr.RecurringFrequency, &pr.ExternalPriceID, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return pr, nil
}

// ListPricesByProduct retrieves all prices for a product
func (p *Postgres) ListPricesByProduct(ctx context.Context, productID string) ([]*Price, error) {
	query := `
	SELECT id, product_id, name, base_price_in_cents, price_quantity, recurring_interval, recurring_frequency, external_price_id, created_at, updated_at
	FROM prices WHERE product_id = $1 ORDER BY created_at
	`
	return p.queryPrices(ctx, query, productID)
}

// ListPricesByShowcase retrieves all prices under a showcase's products
func (p *Postgres) ListPricesByShowcase(ctx context.Context, showcaseID string) ([]*Price, error) {
	query := `
	SELECT pr.id, pr.product_id, pr.name, pr.base_price_in_cents, pr.price_quantity, pr.recurring_interval, pr.recurring_frequency, pr.external_price_id, pr.created_at, pr.updated_at
	FROM prices pr
	JOIN products p ON p.id = pr.product_id
	WHERE p.showcase_id = $1
	ORDER BY pr.created_at
	`
	return p.queryPrices(ctx, query, showcaseID)
}

func (p *Postgres) queryPrices(ctx context.Context, query string, args ...any) ([]*Price, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []*Price
	for rows.Next() {
		pr := &Price{}
		if err := rows.Scan(&pr.ID, &pr.ProductID, &pr.Name, &pr.BasePriceInCents, &pr.PriceQuantity,
			&pr.RecurringInterval, &pr.RecurringFrequency, &pr.ExternalPriceID, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// UpdatePrice updates a price row, including its external id, which can
// change when the provider replaces an immutable price object
func (p *Postgres) UpdatePrice(ctx context.Context, pr *Price) error {
	query := `
	UPDATE prices SET name = $2, base_price_in_cents = $3, price_quantity = $4, recurring_interval = $5, recurring_frequency = $6, external_price_id = $7, updated_at = NOW()
	WHERE id = $1
	`
	tag, err := p.pool.Exec(ctx, query,
		pr.ID, pr.Name, pr.BasePriceInCents, pr.PriceQuantity, pr.RecurringInterval, pr.RecurringFrequency, pr.ExternalPriceID)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePrice deletes a price row
func (p *Postgres) DeletePrice(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM prices WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Subscriptions ---

// UpsertSubscription inserts a subscription projection or updates the
// status fields of an existing row with the same external id. The
// license key of an existing row is left untouched.
func (p *Postgres) UpsertSubscription(ctx context.Context, s *Subscription) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
	INSERT INTO subscriptions (id, external_id, license_key, status, scheduled_to_cancel, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (external_id) DO UPDATE
	SET status = EXCLUDED.status, scheduled_to_cancel = EXCLUDED.scheduled_to_cancel, updated_at = NOW()
	`
	_, err := p.pool.Exec(ctx, query,
		s.ID, s.ExternalID, s.LicenseKey, s.Status, s.ScheduledToCancel, s.CreatedAt, s.UpdatedAt)
	return translateErr(err)
}

// GetSubscriptionByExternalID retrieves a subscription by provider id
func (p *Postgres) GetSubscriptionByExternalID(ctx context.Context, externalID string) (*Subscription, error) {
	query := `
	SELECT id, external_id, license_key, status, scheduled_to_cancel, created_at, updated_at
	FROM subscriptions WHERE external_id = $1
	`
	return p.querySubscription(ctx, query, externalID)
}

// GetSubscriptionByLicenseKey retrieves a subscription by license key
func (p *Postgres) GetSubscriptionByLicenseKey(ctx context.Context, licenseKey string) (*Subscription, error) {
	query := `
	SELECT id, external_id, license_key, status, scheduled_to_cancel, created_at, updated_at
	FROM subscriptions WHERE license_key = $1
	`
	return p.querySubscription(ctx, query, licenseKey)
}

func (p *Postgres) querySubscription(ctx context.Context, query string, args ...any) (*Subscription, error) {
	s := &Subscription{}
	err := p.pool.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.ExternalID, &s.LicenseKey, &s.Status, &s.ScheduledToCancel, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return s, nil
}

// UpdateSubscriptionStatus sets the status and scheduled-cancel flag of
// the row matching the external id
func (p *Postgres) UpdateSubscriptionStatus(ctx context.Context, externalID, status string, scheduledToCancel bool) error {
	query := `
	UPDATE subscriptions SET status = $2, scheduled_to_cancel = $3, updated_at = NOW()
	WHERE external_id = $1
	`
	tag, err := p.pool.Exec(ctx, query, externalID, status, scheduledToCancel)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLicenseKey atomically overwrites the license key for the row
// matching the external id
func (p *Postgres) UpdateLicenseKey(ctx context.Context, externalID, licenseKey string) error {
	query := `
	UPDATE subscriptions SET license_key = $2, updated_at = NOW()
	WHERE external_id = $1
	`
	tag, err := p.pool.Exec(ctx, query, externalID, licenseKey)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubscriptions retrieves all subscription projections
func (p *Postgres) ListSubscriptions(ctx context.Context) ([]*Subscription, error) {
	query := `
	SELECT id, external_id, license_key, status, scheduled_to_cancel, created_at, updated_at
	FROM subscriptions ORDER BY created_at
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		s := &Subscription{}
		if err := rows.Scan(&s.ID, &s.ExternalID, &s.LicenseKey, &s.Status, &s.ScheduledToCancel, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
