package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// BidStore implements domain.BidLedger using PostgreSQL. The bids table is
// append-only: no update or delete statement exists in this package.
type BidStore struct {
	pool *pgxpool.Pool
}

// NewBidStore creates a new BidStore backed by the given connection pool.
func NewBidStore(pool *pgxpool.Pool) *BidStore {
	return &BidStore{pool: pool}
}

const bidCols = `id, asset_id, bidder_id, amount, outcome, placed_at`

func scanBid(row pgx.Row) (domain.Bid, error) {
	var b domain.Bid
	var outcome string
	err := row.Scan(&b.ID, &b.AssetID, &b.BidderID, &b.Amount, &outcome, &b.PlacedAt)
	if err != nil {
		return domain.Bid{}, err
	}
	b.Outcome = domain.BidOutcome(outcome)
	return b, nil
}

// Append inserts a new ledger entry.
func (s *BidStore) Append(ctx context.Context, b domain.Bid) error {
	const query = `
		INSERT INTO bids (id, asset_id, bidder_id, amount, outcome, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		b.ID, b.AssetID, b.BidderID, b.Amount, string(b.Outcome), b.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append bid %s: %w", b.ID, err)
	}
	return nil
}

// AppendAccepted inserts an accepted ledger entry and applies it to the
// asset record in a single transaction, so a failure on either side leaves
// both tables untouched. The asset update carries the same open-and-higher
// guard as AssetStore.SetHighestBid.
func (s *BidStore) AppendAccepted(ctx context.Context, b domain.Bid) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: append accepted bid %s: begin: %w", b.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE assets
		SET current_bid = $2, highest_bidder_id = $3, updated_at = $4
		WHERE id = $1 AND status = 'open' AND current_bid < $2`,
		b.AssetID, b.Amount, b.BidderID, b.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append accepted bid %s: update asset: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM assets WHERE id = $1)`, b.AssetID).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: append accepted bid %s: check asset: %w", b.ID, err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bids (id, asset_id, bidder_id, amount, outcome, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.AssetID, b.BidderID, b.Amount, string(b.Outcome), b.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append accepted bid %s: insert: %w", b.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: append accepted bid %s: commit: %w", b.ID, err)
	}
	return nil
}

// HighestAccepted returns the accepted bid with the greatest amount for the
// asset, or domain.ErrNotFound when the asset has no accepted bids.
func (s *BidStore) HighestAccepted(ctx context.Context, assetID string) (domain.Bid, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+bidCols+` FROM bids
		WHERE asset_id = $1 AND outcome = 'accepted'
		ORDER BY amount DESC LIMIT 1`, assetID)
	b, err := scanBid(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Bid{}, domain.ErrNotFound
		}
		return domain.Bid{}, fmt.Errorf("postgres: highest accepted bid for asset %s: %w", assetID, err)
	}
	return b, nil
}

// PriorBidders returns every distinct bidder with an accepted bid on the
// asset, in first-bid order.
func (s *BidStore) PriorBidders(ctx context.Context, assetID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT bidder_id FROM bids
		WHERE asset_id = $1 AND outcome = 'accepted'
		GROUP BY bidder_id
		ORDER BY MIN(placed_at) ASC`, assetID)
	if err != nil {
		return nil, fmt.Errorf("postgres: prior bidders for asset %s: %w", assetID, err)
	}
	defer rows.Close()

	var bidders []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan prior bidder: %w", err)
		}
		bidders = append(bidders, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: prior bidders rows: %w", err)
	}
	return bidders, nil
}

// ListByAsset returns ledger entries for the asset, newest first.
func (s *BidStore) ListByAsset(ctx context.Context, assetID string, opts domain.ListOpts) ([]domain.Bid, error) {
	return s.list(ctx, "asset_id", assetID, opts)
}

// ListByBidder returns ledger entries placed by the bidder, newest first.
func (s *BidStore) ListByBidder(ctx context.Context, bidderID string, opts domain.ListOpts) ([]domain.Bid, error) {
	return s.list(ctx, "bidder_id", bidderID, opts)
}

func (s *BidStore) list(ctx context.Context, col, val string, opts domain.ListOpts) ([]domain.Bid, error) {
	query := `SELECT ` + bidCols + ` FROM bids WHERE ` + col + ` = $1`
	args := []any{val}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND placed_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND placed_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY placed_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return s.queryBids(ctx, query, args...)
}

// ListEndedBefore returns bids belonging to assets that ended at or before
// the cutoff, oldest first. The archiver reads batches through this to copy
// cold bid history to blob storage.
func (s *BidStore) ListEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Bid, error) {
	query := `SELECT b.id, b.asset_id, b.bidder_id, b.amount, b.outcome, b.placed_at
		FROM bids b
		JOIN assets a ON a.id = b.asset_id
		WHERE a.status = 'ended' AND a.end_at <= $1
		ORDER BY b.placed_at ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.queryBids(ctx, query, args...)
}

func (s *BidStore) queryBids(ctx context.Context, query string, args ...any) ([]domain.Bid, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bids: %w", err)
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bids rows: %w", err)
	}
	return bids, nil
}

var _ domain.BidLedger = (*BidStore)(nil)
