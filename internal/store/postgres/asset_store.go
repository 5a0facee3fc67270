package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// AssetStore implements domain.AssetStore using PostgreSQL.
type AssetStore struct {
	pool *pgxpool.Pool
}

// NewAssetStore creates a new AssetStore backed by the given connection pool.
func NewAssetStore(pool *pgxpool.Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

const assetCols = `id, title, category, owner_id, starting_bid, current_bid,
	highest_bidder_id, end_at, status, created_at, updated_at`

// scanAsset scans a single asset row into a domain.Asset.
func scanAsset(row pgx.Row) (domain.Asset, error) {
	var a domain.Asset
	var category, status string
	err := row.Scan(
		&a.ID, &a.Title, &category, &a.OwnerID,
		&a.StartingBid, &a.CurrentBid, &a.HighestBidderID,
		&a.EndAt, &status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Asset{}, err
	}
	a.Category = domain.AssetCategory(category)
	a.Status = domain.AssetStatus(status)
	return a, nil
}

// Create inserts a new asset record.
func (s *AssetStore) Create(ctx context.Context, a domain.Asset) error {
	const query = `
		INSERT INTO assets (
			id, title, category, owner_id, starting_bid, current_bid,
			highest_bidder_id, end_at, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.Title, string(a.Category), a.OwnerID,
		a.StartingBid, a.CurrentBid, a.HighestBidderID,
		a.EndAt, string(a.Status), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create asset %s: %w", a.ID, err)
	}
	return nil
}

// GetByID retrieves an asset by its primary key.
func (s *AssetStore) GetByID(ctx context.Context, id string) (domain.Asset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+assetCols+` FROM assets WHERE id = $1`, id)
	a, err := scanAsset(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Asset{}, domain.ErrNotFound
		}
		return domain.Asset{}, fmt.Errorf("postgres: get asset %s: %w", id, err)
	}
	return a, nil
}

// SetHighestBid records an accepted bid on the asset. The WHERE clause guards
// the update: it only applies while the asset is open and the amount strictly
// exceeds the stored current bid, so a stale writer cannot regress the state.
// A guard failure on an existing asset is domain.ErrConflict; a missing asset
// is domain.ErrNotFound.
func (s *AssetStore) SetHighestBid(ctx context.Context, id string, amount int64, bidderID string, at time.Time) error {
	const query = `
		UPDATE assets
		SET current_bid = $2, highest_bidder_id = $3, updated_at = $4
		WHERE id = $1 AND status = 'open' AND current_bid < $2`

	tag, err := s.pool.Exec(ctx, query, id, amount, bidderID, at)
	if err != nil {
		return fmt.Errorf("postgres: set highest bid on asset %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.staleWriteErr(ctx, id)
	}
	return nil
}

// staleWriteErr distinguishes a guarded update that matched no rows: either
// the asset does not exist (ErrNotFound) or it exists but the guard rejected
// the write (ErrConflict).
func (s *AssetStore) staleWriteErr(ctx context.Context, id string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM assets WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check asset %s: %w", id, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

// MarkEnded transitions an open asset to ended. It reports whether this call
// performed the transition; a second call on the same asset is a no-op.
func (s *AssetStore) MarkEnded(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `
		UPDATE assets
		SET status = 'ended', updated_at = $2
		WHERE id = $1 AND status = 'open'`

	tag, err := s.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("postgres: mark asset %s ended: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListOpen returns open assets with pagination and optional time filtering,
// soonest deadline first.
func (s *AssetStore) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Asset, error) {
	query := `SELECT ` + assetCols + ` FROM assets WHERE status = 'open'`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY end_at ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return s.queryAssets(ctx, query, args...)
}

// ListExpired returns open assets whose end time is at or before now, oldest
// deadline first. The clock sweep uses this to find auctions to close.
func (s *AssetStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Asset, error) {
	query := `SELECT ` + assetCols + ` FROM assets
		WHERE status = 'open' AND end_at <= $1
		ORDER BY end_at ASC`
	args := []any{now}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.queryAssets(ctx, query, args...)
}

// Count returns the total number of assets in the database.
func (s *AssetStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM assets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count assets: %w", err)
	}
	return count, nil
}

func (s *AssetStore) queryAssets(ctx context.Context, query string, args ...any) ([]domain.Asset, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list assets rows: %w", err)
	}
	return assets, nil
}

var _ domain.AssetStore = (*AssetStore)(nil)
