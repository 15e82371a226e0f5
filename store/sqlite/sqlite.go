/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements persistence for the whole application: users, the catalog
  taxonomy, products, pricing profiles and their per-product selections.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  pricing.Store: Profile reads, adjustment subsets, atomic draft creation,
                 the conditional status write, product refs

KEY TABLES:
  users:                     Owning accounts (auth stub)
  categories/subcategories/segments: Catalog taxonomy
  products:                  Catalog entries with global wholesale price
  pricing_profiles:          Profiles with based-on pointer and status
  product_pricing_profiles:  Per-product selections with adjustments

CONDITIONAL STATUS WRITE:
  Publish relies on a compare-and-swap:
    UPDATE pricing_profiles SET status=? WHERE id=? AND user_id=? AND status=?
  RowsAffected 0 means the status changed between check and write; the
  engine reports that to the caller instead of double-applying.

SUBSET FETCHES:
  GetItemAdjustments only fetches adjustments for the requested product
  ids, never the full selection table - chain walks over large catalogs
  stay bounded by the request size.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/pricing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := pricing.NewEngine(store)

SEE ALSO:
  - pricing/store.go: Interface definitions
  - pricing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/foboh/pricing-engine/catalog"
	"github.com/foboh/pricing-engine/pricing"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent; every
	// pool connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Users (auth stub: one row per caller email)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Catalog taxonomy: category -> subcategory -> segment
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id);

	CREATE TABLE IF NOT EXISTS subcategories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_subcategories_category ON subcategories(category_id);

	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		subcategory_id TEXT NOT NULL REFERENCES subcategories(id) ON DELETE RESTRICT,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_segments_subcategory ON segments(subcategory_id);

	-- Products. Wholesale price stored as its wire-format numeric string.
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		sku TEXT NOT NULL,
		brand TEXT NOT NULL,
		category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
		subcategory_id TEXT NOT NULL REFERENCES subcategories(id) ON DELETE RESTRICT,
		segment_id TEXT NOT NULL REFERENCES segments(id) ON DELETE RESTRICT,
		global_wholesale_price TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_products_user_sku ON products(user_id, sku);
	CREATE INDEX IF NOT EXISTS idx_products_user ON products(user_id);

	-- Pricing profiles. based_on is the root marker or another profile id.
	CREATE TABLE IF NOT EXISTS pricing_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		based_on TEXT NOT NULL,
		price_adjust_mode TEXT NOT NULL,
		increment_mode TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_user ON pricing_profiles(user_id);

	-- Per-product selections. One row per (profile, product).
	CREATE TABLE IF NOT EXISTS product_pricing_profiles (
		id TEXT PRIMARY KEY,
		pricing_profile_id TEXT NOT NULL REFERENCES pricing_profiles(id),
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		adjustment TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(pricing_profile_id, product_id)
	);
	CREATE INDEX IF NOT EXISTS idx_items_profile ON product_pricing_profiles(pricing_profile_id);
	CREATE INDEX IF NOT EXISTS idx_items_product ON product_pricing_profiles(product_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears every table. Only used by demo scenarios and tests.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmts := []string{
		"DELETE FROM product_pricing_profiles",
		"DELETE FROM pricing_profiles",
		"DELETE FROM products",
		"DELETE FROM segments",
		"DELETE FROM subcategories",
		"DELETE FROM categories",
		"DELETE FROM users",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
	}
	return nil
}

// =============================================================================
// USERS (auth stub)
// =============================================================================

// UpsertUser returns the user for an email, creating it on first sight.
func (s *Store) UpsertUser(ctx context.Context, id, email, name string) (catalog.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`, id, email, name, now)
	if err != nil {
		return catalog.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}

	var u catalog.User
	var userID, createdAt string
	err = s.db.QueryRowContext(ctx,
		"SELECT id, email, name, created_at FROM users WHERE email = ?", email,
	).Scan(&userID, &u.Email, &u.Name, &createdAt)
	if err != nil {
		return catalog.User{}, err
	}
	u.ID = pricing.UserID(userID)
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

// =============================================================================
// TAXONOMY
// =============================================================================

func (s *Store) CreateCategory(ctx context.Context, c catalog.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (id, user_id, name, created_at) VALUES (?, ?, ?, ?)",
		c.ID, c.UserID, c.Name, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) CreateSubcategory(ctx context.Context, sc catalog.Subcategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO subcategories (id, user_id, category_id, name, created_at) VALUES (?, ?, ?, ?, ?)",
		sc.ID, sc.UserID, sc.CategoryID, sc.Name, time.Now().UTC().Format(time.RFC3339))
	if isForeignKeyError(err) {
		return catalog.ErrTaxonomyNotFound
	}
	return err
}

func (s *Store) CreateSegment(ctx context.Context, seg catalog.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO segments (id, user_id, subcategory_id, name, created_at) VALUES (?, ?, ?, ?, ?)",
		seg.ID, seg.UserID, seg.SubcategoryID, seg.Name, time.Now().UTC().Format(time.RFC3339))
	if isForeignKeyError(err) {
		return catalog.ErrTaxonomyNotFound
	}
	return err
}

// RenameTaxonomyNode renames a row in the given taxonomy table. Returns
// false when no row matched (unknown id or wrong user).
func (s *Store) RenameTaxonomyNode(ctx context.Context, table string, userID pricing.UserID, id, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// table comes from a fixed set in the handler, never from user input.
	query := fmt.Sprintf("UPDATE %s SET name = ? WHERE id = ? AND user_id = ?", table)
	res, err := s.db.ExecContext(ctx, query, name, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteTaxonomyNode deletes a row in the given taxonomy table. Returns
// catalog.ErrTaxonomyInUse when products or child nodes still reference it.
func (s *Store) DeleteTaxonomyNode(ctx context.Context, table string, userID pricing.UserID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// table comes from a fixed set in the handler, never from user input.
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND user_id = ?", table)
	res, err := s.db.ExecContext(ctx, query, id, userID)
	if isForeignKeyError(err) {
		return false, catalog.ErrTaxonomyInUse
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListTaxonomy returns all taxonomy rows for a user.
func (s *Store) ListTaxonomy(ctx context.Context, userID pricing.UserID) ([]catalog.Category, []catalog.Subcategory, []catalog.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var categories []catalog.Category
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, created_at FROM categories WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, nil, nil, err
	}
	for rows.Next() {
		var c catalog.Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &createdAt); err != nil {
			rows.Close()
			return nil, nil, nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		categories = append(categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}

	var subcategories []catalog.Subcategory
	rows, err = s.db.QueryContext(ctx,
		"SELECT id, user_id, category_id, name, created_at FROM subcategories WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, nil, nil, err
	}
	for rows.Next() {
		var sc catalog.Subcategory
		var createdAt string
		if err := rows.Scan(&sc.ID, &sc.UserID, &sc.CategoryID, &sc.Name, &createdAt); err != nil {
			rows.Close()
			return nil, nil, nil, err
		}
		sc.CreatedAt = parseTime(createdAt)
		subcategories = append(subcategories, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}

	var segments []catalog.Segment
	rows, err = s.db.QueryContext(ctx,
		"SELECT id, user_id, subcategory_id, name, created_at FROM segments WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var seg catalog.Segment
		var createdAt string
		if err := rows.Scan(&seg.ID, &seg.UserID, &seg.SubcategoryID, &seg.Name, &createdAt); err != nil {
			return nil, nil, nil, err
		}
		seg.CreatedAt = parseTime(createdAt)
		segments = append(segments, seg)
	}

	return categories, subcategories, segments, rows.Err()
}

// =============================================================================
// PRODUCTS
// =============================================================================

const productColumns = `id, user_id, title, sku, brand, category_id, subcategory_id, segment_id,
	global_wholesale_price, created_at, updated_at`

// CreateProduct inserts a product. Returns catalog.ErrDuplicateSKU when
// the user already has a product with the same SKU.
func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, user_id, title, sku, brand, category_id, subcategory_id,
			segment_id, global_wholesale_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.UserID, p.Title, p.SKU, p.Brand,
		p.CategoryID, p.SubcategoryID, p.SegmentID,
		p.GlobalWholesalePrice, now, now)

	if isUniqueConstraintError(err) {
		return catalog.ErrDuplicateSKU
	}
	if isForeignKeyError(err) {
		return catalog.ErrTaxonomyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetProduct retrieves one of the user's products, or nil when absent.
func (s *Store) GetProduct(ctx context.Context, userID pricing.UserID, id pricing.ProductID) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ? AND user_id = ?", id, userID)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns all of the user's products ordered by title.
func (s *Store) ListProducts(ctx context.Context, userID pricing.UserID) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE user_id = ? ORDER BY title", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct replaces a product's mutable fields. Returns false when
// no row matched.
func (s *Store) UpdateProduct(ctx context.Context, p catalog.Product) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET title = ?, sku = ?, brand = ?, category_id = ?, subcategory_id = ?,
		    segment_id = ?, global_wholesale_price = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, p.Title, p.SKU, p.Brand, p.CategoryID, p.SubcategoryID, p.SegmentID,
		p.GlobalWholesalePrice, time.Now().UTC().Format(time.RFC3339),
		p.ID, p.UserID)

	if isUniqueConstraintError(err) {
		return false, catalog.ErrDuplicateSKU
	}
	if isForeignKeyError(err) {
		return false, catalog.ErrTaxonomyNotFound
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteProduct removes a product and (via cascade) its selections.
func (s *Store) DeleteProduct(ctx context.Context, userID pricing.UserID, id pricing.ProductID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM products WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanProduct(row interface{ Scan(...any) error }) (*catalog.Product, error) {
	var p catalog.Product
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.SKU, &p.Brand,
		&p.CategoryID, &p.SubcategoryID, &p.SegmentID,
		&p.GlobalWholesalePrice, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// GetProductRefs implements pricing.ProductReader: base prices and titles
// for the requested subset only.
func (s *Store) GetProductRefs(ctx context.Context, userID pricing.UserID, productIDs []pricing.ProductID) (map[pricing.ProductID]pricing.ProductRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make(map[pricing.ProductID]pricing.ProductRef, len(productIDs))
	if len(productIDs) == 0 {
		return refs, nil
	}

	query := fmt.Sprintf(
		"SELECT id, title, global_wholesale_price FROM products WHERE user_id = ? AND id IN (%s)",
		placeholders(len(productIDs)))
	args := make([]any, 0, len(productIDs)+1)
	args = append(args, userID)
	for _, id := range productIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ref pricing.ProductRef
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.BasePrice); err != nil {
			return nil, err
		}
		refs[ref.ID] = ref
	}
	return refs, rows.Err()
}

// =============================================================================
// PRICING PROFILES (pricing.ProfileStore)
// =============================================================================

const profileColumns = `id, user_id, name, description, based_on,
	price_adjust_mode, increment_mode, status, created_at, updated_at`

// GetProfile returns the user's profile, or nil when absent. Cross-user
// profiles are indistinguishable from missing ones.
func (s *Store) GetProfile(ctx context.Context, userID pricing.UserID, profileID pricing.ProfileID) (*pricing.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM pricing_profiles WHERE id = ? AND user_id = ?",
		profileID, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProfiles returns all of the user's profiles, most recently updated
// first.
func (s *Store) ListProfiles(ctx context.Context, userID pricing.UserID) ([]pricing.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM pricing_profiles WHERE user_id = ? ORDER BY updated_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []pricing.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// CreateProfile persists a profile and its initial selections in one
// database transaction.
func (s *Store) CreateProfile(ctx context.Context, profile pricing.Profile, items []pricing.ProfileItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO pricing_profiles (id, user_id, name, description, based_on,
			price_adjust_mode, increment_mode, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, profile.ID, profile.UserID, profile.Name, profile.Description, profile.BasedOn,
		profile.PriceAdjustMode, profile.IncrementMode, profile.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO product_pricing_profiles (id, pricing_profile_id, product_id, adjustment, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, item.ID, item.ProfileID, item.ProductID, item.Adjustment, now, now)
		if err != nil {
			return fmt.Errorf("failed to create profile item: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateProfile replaces a profile's mutable fields. Returns false when
// no row matched.
func (s *Store) UpdateProfile(ctx context.Context, p pricing.Profile) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE pricing_profiles
		SET name = ?, description = ?, based_on = ?, price_adjust_mode = ?,
		    increment_mode = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, p.Name, p.Description, p.BasedOn, p.PriceAdjustMode, p.IncrementMode,
		p.Status, time.Now().UTC().Format(time.RFC3339), p.ID, p.UserID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteProfile removes a profile and all its selections in one database
// transaction. Returns false when no row matched.
func (s *Store) DeleteProfile(ctx context.Context, userID pricing.UserID, profileID pricing.ProfileID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM product_pricing_profiles WHERE pricing_profile_id = ?", profileID); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM pricing_profiles WHERE id = ? AND user_id = ?", profileID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Nothing matched; the rollback also undoes the item delete.
		return false, nil
	}

	return true, tx.Commit()
}

// SetProfileStatus is the conditional status write behind publish.
func (s *Store) SetProfileStatus(ctx context.Context, userID pricing.UserID, profileID pricing.ProfileID, expected, next pricing.ProfileStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE pricing_profiles
		SET status = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status = ?
	`, next, time.Now().UTC().Format(time.RFC3339), profileID, userID, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanProfile(row interface{ Scan(...any) error }) (*pricing.Profile, error) {
	var p pricing.Profile
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.BasedOn,
		&p.PriceAdjustMode, &p.IncrementMode, &p.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// =============================================================================
// PROFILE ITEMS
// =============================================================================

const itemColumns = `id, pricing_profile_id, product_id, adjustment, created_at, updated_at`

// GetItemAdjustments returns adjustments for the requested products only.
func (s *Store) GetItemAdjustments(ctx context.Context, profileID pricing.ProfileID, productIDs []pricing.ProductID) (map[pricing.ProductID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[pricing.ProductID]string, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT product_id, adjustment FROM product_pricing_profiles
		WHERE pricing_profile_id = ? AND product_id IN (%s)
	`, placeholders(len(productIDs)))
	args := make([]any, 0, len(productIDs)+1)
	args = append(args, profileID)
	for _, id := range productIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var productID pricing.ProductID
		var adjustment string
		if err := rows.Scan(&productID, &adjustment); err != nil {
			return nil, err
		}
		result[productID] = adjustment
	}
	return result, rows.Err()
}

// ListItems returns every selection in a profile, most recently updated
// first.
func (s *Store) ListItems(ctx context.Context, profileID pricing.ProfileID) ([]pricing.ProfileItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM product_pricing_profiles WHERE pricing_profile_id = ? ORDER BY updated_at DESC, product_id",
		profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []pricing.ProfileItem
	for rows.Next() {
		var item pricing.ProfileItem
		var createdAt, updatedAt string
		if err := rows.Scan(&item.ID, &item.ProfileID, &item.ProductID,
			&item.Adjustment, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = parseTime(createdAt)
		item.UpdatedAt = parseTime(updatedAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpsertItem creates a selection or updates its adjustment if the product
// is already selected. Returns the stored item and whether it was created.
func (s *Store) UpsertItem(ctx context.Context, item pricing.ProfileItem) (pricing.ProfileItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_pricing_profiles (id, pricing_profile_id, product_id, adjustment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pricing_profile_id, product_id) DO UPDATE SET
			adjustment = excluded.adjustment,
			updated_at = excluded.updated_at
	`, item.ID, item.ProfileID, item.ProductID, item.Adjustment, now, now)
	if err != nil {
		return pricing.ProfileItem{}, false, fmt.Errorf("failed to upsert item: %w", err)
	}

	// Read back to learn which row won the conflict.
	row := s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM product_pricing_profiles
		WHERE pricing_profile_id = ? AND product_id = ?
	`, item.ProfileID, item.ProductID)

	var stored pricing.ProfileItem
	var createdAt, updatedAt string
	if err := row.Scan(&stored.ID, &stored.ProfileID, &stored.ProductID,
		&stored.Adjustment, &createdAt, &updatedAt); err != nil {
		return pricing.ProfileItem{}, false, err
	}
	stored.CreatedAt = parseTime(createdAt)
	stored.UpdatedAt = parseTime(updatedAt)

	created := stored.ID == item.ID
	return stored, created, nil
}

// DeleteItem removes one selection. Returns false when no row matched.
func (s *Store) DeleteItem(ctx context.Context, profileID pricing.ProfileID, itemID pricing.ItemID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM product_pricing_profiles WHERE id = ? AND pricing_profile_id = ?",
		itemID, profileID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// =============================================================================
// HELPERS
// =============================================================================

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
