package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryanbastic/cafedir/internal/cafe"
	"github.com/ryanbastic/cafedir/internal/id"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db           querier
	ids          *id.Generator
	queryTimeout time.Duration
}

// NewPostgresStore creates a Store backed by pool.
// queryTimeout sets the per-query context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, ids *id.Generator, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		db:           pool,
		ids:          ids,
		queryTimeout: queryTimeout,
	}
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

// WithTx runs fn inside a transaction. Called on a store that is already
// transactional, it opens a savepoint.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&PostgresStore{db: tx, ids: s.ids, queryTimeout: s.queryTimeout}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Cafes ---

const cafeColumns = `id, name, map_url, img_url, location, seats,
	has_toilet, has_wifi, has_sockets, can_take_calls, coffee_price,
	revision, created_at, updated_at`

func scanCafe(row pgx.Row) (*cafe.Cafe, error) {
	var c cafe.Cafe
	err := row.Scan(
		&c.ID, &c.Name, &c.MapURL, &c.ImgURL, &c.Location, &c.Seats,
		&c.Amenities.HasToilet, &c.Amenities.HasWifi, &c.Amenities.HasSockets, &c.Amenities.CanTakeCalls,
		&c.CoffeePrice, &c.Revision, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCafes(rows pgx.Rows) ([]cafe.Cafe, error) {
	defer rows.Close()

	var cafes []cafe.Cafe
	for rows.Next() {
		c, err := scanCafe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cafe: %w", err)
		}
		cafes = append(cafes, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cafes: %w", err)
	}
	return cafes, nil
}

func (s *PostgresStore) CreateCafe(ctx context.Context, nc cafe.NewCafe) (*cafe.Cafe, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO cafes (id, name, map_url, img_url, location, seats,
			has_toilet, has_wifi, has_sockets, can_take_calls, coffee_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + cafeColumns

	c, err := scanCafe(s.db.QueryRow(ctx, query,
		s.ids.Next(), nc.Name, nc.MapURL, nc.ImgURL, nc.Location, nc.Seats,
		nc.Amenities.HasToilet, nc.Amenities.HasWifi, nc.Amenities.HasSockets, nc.Amenities.CanTakeCalls,
		nc.CoffeePrice,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("create cafe: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetCafe(ctx context.Context, id int64) (*cafe.Cafe, error) {
	return s.getCafe(ctx, id, "")
}

func (s *PostgresStore) GetCafeForUpdate(ctx context.Context, id int64) (*cafe.Cafe, error) {
	return s.getCafe(ctx, id, "FOR UPDATE")
}

func (s *PostgresStore) GetCafeForShare(ctx context.Context, id int64) (*cafe.Cafe, error) {
	return s.getCafe(ctx, id, "FOR SHARE")
}

func (s *PostgresStore) getCafe(ctx context.Context, id int64, lock string) (*cafe.Cafe, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + cafeColumns + ` FROM cafes WHERE id = $1 ` + lock

	c, err := scanCafe(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCafeNotFound
		}
		return nil, fmt.Errorf("get cafe: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCafes(ctx context.Context, afterID int64, limit int) ([]cafe.Cafe, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + cafeColumns + ` FROM cafes WHERE id > $1 ORDER BY id LIMIT $2`

	rows, err := s.db.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}
	return collectCafes(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *PostgresStore) SearchCafesByLocation(ctx context.Context, location string) ([]cafe.Cafe, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + cafeColumns + ` FROM cafes WHERE location ILIKE $1 ORDER BY id`

	rows, err := s.db.Query(ctx, query, "%"+likeEscaper.Replace(location)+"%")
	if err != nil {
		return nil, fmt.Errorf("search cafes: %w", err)
	}
	return collectCafes(rows)
}

func (s *PostgresStore) RandomCafe(ctx context.Context) (*cafe.Cafe, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + cafeColumns + ` FROM cafes ORDER BY random() LIMIT 1`

	c, err := scanCafe(s.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCafeNotFound
		}
		return nil, fmt.Errorf("random cafe: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateCafe(ctx context.Context, c cafe.Cafe) (*cafe.Cafe, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE cafes SET
			name = $2, map_url = $3, img_url = $4, location = $5, seats = $6,
			has_toilet = $7, has_wifi = $8, has_sockets = $9, can_take_calls = $10,
			coffee_price = $11, revision = revision + 1, updated_at = now()
		WHERE id = $1 AND revision = $12
		RETURNING ` + cafeColumns

	updated, err := scanCafe(s.db.QueryRow(ctx, query,
		c.ID, c.Name, c.MapURL, c.ImgURL, c.Location, c.Seats,
		c.Amenities.HasToilet, c.Amenities.HasWifi, c.Amenities.HasSockets, c.Amenities.CanTakeCalls,
		c.CoffeePrice, c.Revision,
	))
	switch {
	case err == nil:
		return updated, nil
	case isUniqueViolation(err):
		return nil, ErrDuplicateName
	case errors.Is(err, pgx.ErrNoRows):
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cafes WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("update cafe: %w", err)
		}
		if !exists {
			return nil, ErrCafeNotFound
		}
		return nil, ErrRevisionMismatch
	default:
		return nil, fmt.Errorf("update cafe: %w", err)
	}
}

func (s *PostgresStore) DeleteCafe(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx, `DELETE FROM cafes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cafe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCafeNotFound
	}
	return nil
}

// --- Update requests ---

const requestColumns = `r.id, r.cafe_id, r.name, r.location, r.coffee_price, r.seats,
	r.map_url, r.img_url, r.has_toilet, r.has_wifi, r.has_sockets, r.can_take_calls,
	r.status, r.created_at`

// requestScan holds scan targets for requestColumns.
type requestScan struct {
	req                          cafe.UpdateRequest
	toilet, wifi, sockets, calls *bool
}

func (rs *requestScan) targets() []any {
	p := &rs.req.Proposal
	return []any{
		&rs.req.ID, &rs.req.CafeID, &p.Name, &p.Location, &p.CoffeePrice, &p.Seats,
		&p.MapURL, &p.ImgURL, &rs.toilet, &rs.wifi, &rs.sockets, &rs.calls,
		&rs.req.Status, &rs.req.CreatedAt,
	}
}

func (rs *requestScan) result() cafe.UpdateRequest {
	rs.req.Proposal.HasToilet = cafe.FlagOf(rs.toilet)
	rs.req.Proposal.HasWifi = cafe.FlagOf(rs.wifi)
	rs.req.Proposal.HasSockets = cafe.FlagOf(rs.sockets)
	rs.req.Proposal.CanTakeCalls = cafe.FlagOf(rs.calls)
	return rs.req
}

func (s *PostgresStore) CreateRequest(ctx context.Context, cafeID int64, p cafe.Proposal) (*cafe.UpdateRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO update_requests AS r (id, cafe_id, name, location, coffee_price, seats,
			map_url, img_url, has_toilet, has_wifi, has_sockets, can_take_calls, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + requestColumns

	var rs requestScan
	err := s.db.QueryRow(ctx, query,
		s.ids.Next(), cafeID, p.Name, p.Location, p.CoffeePrice, p.Seats,
		p.MapURL, p.ImgURL, p.HasToilet.Ptr(), p.HasWifi.Ptr(), p.HasSockets.Ptr(), p.CanTakeCalls.Ptr(),
		cafe.StatusPending,
	).Scan(rs.targets()...)
	if err != nil {
		return nil, fmt.Errorf("create update request: %w", err)
	}
	req := rs.result()
	return &req, nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, id int64) (*cafe.UpdateRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + requestColumns + ` FROM update_requests r WHERE r.id = $1`

	var rs requestScan
	if err := s.db.QueryRow(ctx, query, id).Scan(rs.targets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("get update request: %w", err)
	}
	req := rs.result()
	return &req, nil
}

func (s *PostgresStore) ListPendingRequests(ctx context.Context) ([]PendingRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + requestColumns + `,
			c.id, c.name, c.map_url, c.img_url, c.location, c.seats,
			c.has_toilet, c.has_wifi, c.has_sockets, c.can_take_calls, c.coffee_price,
			c.revision, c.created_at, c.updated_at
		FROM update_requests r
		LEFT JOIN cafes c ON c.id = r.cafe_id
		WHERE r.status = $1
		ORDER BY r.created_at, r.id`

	rows, err := s.db.Query(ctx, query, cafe.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	var pending []PendingRequest
	for rows.Next() {
		var (
			rs                           requestScan
			cafeID, revision             *int64
			name, mapURL, imgURL         *string
			location, seats, price       *string
			toilet, wifi, sockets, calls *bool
			createdAt, updatedAt         *time.Time
		)
		dest := append(rs.targets(),
			&cafeID, &name, &mapURL, &imgURL, &location, &seats,
			&toilet, &wifi, &sockets, &calls, &price,
			&revision, &createdAt, &updatedAt,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan pending request: %w", err)
		}

		pr := PendingRequest{Request: rs.result()}
		if cafeID != nil {
			pr.Cafe = &cafe.Cafe{
				ID:       *cafeID,
				Name:     *name,
				MapURL:   *mapURL,
				ImgURL:   *imgURL,
				Location: *location,
				Seats:    *seats,
				Amenities: cafe.Amenities{
					HasToilet:    *toilet,
					HasWifi:      *wifi,
					HasSockets:   *sockets,
					CanTakeCalls: *calls,
				},
				CoffeePrice: price,
				Revision:    *revision,
				CreatedAt:   *createdAt,
				UpdatedAt:   *updatedAt,
			}
		}
		pending = append(pending, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending requests: %w", err)
	}
	return pending, nil
}

func (s *PostgresStore) DeleteRequest(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx, `DELETE FROM update_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete update request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteRequestsForCafe(ctx context.Context, cafeID int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx, `DELETE FROM update_requests WHERE cafe_id = $1`, cafeID)
	if err != nil {
		return 0, fmt.Errorf("delete update requests for cafe: %w", err)
	}
	return tag.RowsAffected(), nil
}
