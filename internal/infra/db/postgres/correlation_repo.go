package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-payment-bridge/internal/domain"
	"storefront-payment-bridge/internal/domain/model"
	"storefront-payment-bridge/internal/domain/ports/repository"
)

// Compile-time checks
var (
	_ repository.CorrelationStore = (*correlationRepo)(nil)
	_ repository.PendingLister    = (*correlationRepo)(nil)
)

// correlationRepo keeps the correlation state in a single table. Every
// transition is a conditional UPDATE checked by rows-affected, so the
// database provides the per-order serialization the protocol requires and
// the state survives restarts.
type correlationRepo struct{ pool *pgxpool.Pool }

func NewCorrelationRepo(pool *pgxpool.Pool) *correlationRepo {
	return &correlationRepo{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS correlations (
  order_id   TEXT PRIMARY KEY,
  ref        TEXT NOT NULL UNIQUE,
  link       TEXT NOT NULL DEFAULT '',
  status     TEXT NOT NULL DEFAULT 'pending',
  link_state TEXT NOT NULL DEFAULT 'requesting',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// EnsureSchema creates the correlations table when missing.
func (r *correlationRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

const uniqueViolation = "23505"

func (r *correlationRepo) Put(ctx context.Context, orderID, ref string) error {
	const q = `INSERT INTO correlations (order_id, ref) VALUES ($1, $2);`
	if _, err := r.pool.Exec(ctx, q, orderID, ref); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *correlationRepo) ClaimIntake(ctx context.Context, orderID string) (string, error) {
	const q = `UPDATE correlations SET link_state='requesting', updated_at=NOW()
WHERE order_id=$1 AND link_state='pending' RETURNING ref;`
	var ref string
	err := r.pool.QueryRow(ctx, q, orderID).Scan(&ref)
	if err == nil {
		return ref, nil
	}
	if err != pgx.ErrNoRows {
		return "", err
	}
	// No claimable row: tell apart unknown / in flight / settled.
	var state string
	err = r.pool.QueryRow(ctx, `SELECT link_state FROM correlations WHERE order_id=$1;`, orderID).Scan(&state)
	if err == pgx.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if state == string(model.LinkRequesting) {
		return "", domain.ErrIntakeInFlight
	}
	return "", domain.ErrAlreadyHandled
}

// linkFromRequesting applies one transition out of the requesting state.
func (r *correlationRepo) linkFromRequesting(ctx context.Context, orderID, link string, next model.LinkState) error {
	const q = `UPDATE correlations SET link=$2, link_state=$3, updated_at=NOW()
WHERE order_id=$1 AND link_state='requesting';`
	tag, err := r.pool.Exec(ctx, q, orderID, link, string(next))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, orderID, domain.ErrInvalidArgument)
	}
	return nil
}

func (r *correlationRepo) ReleaseIntake(ctx context.Context, orderID string) error {
	return r.linkFromRequesting(ctx, orderID, "", model.LinkPending)
}

func (r *correlationRepo) StoreLink(ctx context.Context, orderID, link string) error {
	return r.linkFromRequesting(ctx, orderID, link, model.LinkStored)
}

func (r *correlationRepo) RejectLink(ctx context.Context, orderID string) error {
	return r.linkFromRequesting(ctx, orderID, "", model.LinkRejected)
}

func (r *correlationRepo) TakeLink(ctx context.Context, orderID string) (string, error) {
	// The subquery in RETURNING evaluates against the pre-update snapshot,
	// so it yields the link being consumed.
	const q = `UPDATE correlations SET link='', link_state='consumed', updated_at=NOW()
WHERE order_id=$1 AND link_state='stored' RETURNING (SELECT link FROM correlations WHERE order_id=$1);`
	var link string
	err := r.pool.QueryRow(ctx, q, orderID).Scan(&link)
	if err == pgx.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return link, nil
}

func (r *correlationRepo) Resolve(ctx context.Context, ref string) (string, error) {
	var orderID string
	err := r.pool.QueryRow(ctx, `SELECT order_id FROM correlations WHERE ref=$1;`, ref).Scan(&orderID)
	if err == pgx.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return orderID, nil
}

func (r *correlationRepo) Ref(ctx context.Context, orderID string) (string, error) {
	var ref string
	err := r.pool.QueryRow(ctx, `SELECT ref FROM correlations WHERE order_id=$1;`, orderID).Scan(&ref)
	if err == pgx.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return ref, nil
}

func (r *correlationRepo) ClaimCapture(ctx context.Context, orderID string) error {
	const q = `UPDATE correlations SET status='capturing', updated_at=NOW()
WHERE order_id=$1 AND status='pending';`
	tag, err := r.pool.Exec(ctx, q, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.statusConflict(ctx, orderID)
	}
	return nil
}

func (r *correlationRepo) FinishCapture(ctx context.Context, orderID string, captured bool) error {
	next := model.OrderStatusPending
	if captured {
		next = model.OrderStatusCaptured
	}
	const q = `UPDATE correlations SET status=$2, updated_at=NOW()
WHERE order_id=$1 AND status='capturing';`
	tag, err := r.pool.Exec(ctx, q, orderID, string(next))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, orderID, domain.ErrInvalidArgument)
	}
	return nil
}

func (r *correlationRepo) MarkFailed(ctx context.Context, orderID string) error {
	const q = `UPDATE correlations SET status='failed', updated_at=NOW()
WHERE order_id=$1 AND status='pending';`
	tag, err := r.pool.Exec(ctx, q, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.statusConflict(ctx, orderID)
	}
	return nil
}

// statusConflict classifies a zero-row status transition.
func (r *correlationRepo) statusConflict(ctx context.Context, orderID string) error {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM correlations WHERE order_id=$1;`, orderID).Scan(&status)
	if err == pgx.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if status == string(model.OrderStatusCapturing) {
		return domain.ErrCaptureInFlight
	}
	return domain.ErrAlreadyFinalized
}

// missingOr returns ErrNotFound when the row does not exist, otherwise the
// supplied state error.
func (r *correlationRepo) missingOr(ctx context.Context, orderID string, stateErr error) error {
	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM correlations WHERE order_id=$1;`, orderID).Scan(&one)
	if err == pgx.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return stateErr
}

func (r *correlationRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Order, error) {
	const q = `SELECT order_id, ref, status, link_state, created_at FROM correlations
WHERE status='pending' AND link_state IN ('stored','consumed') AND created_at < $1
ORDER BY created_at ASC LIMIT $2;`
	rows, err := r.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o := &model.Order{}
		var status, linkState string
		if err := rows.Scan(&o.OrderID, &o.Ref, &status, &linkState, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = model.OrderStatus(status)
		o.LinkState = model.LinkState(linkState)
		out = append(out, o)
	}
	return out, rows.Err()
}
