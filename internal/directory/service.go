package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ryanbastic/cafedir/internal/admin"
	"github.com/ryanbastic/cafedir/internal/cafe"
	"github.com/ryanbastic/cafedir/internal/moderation"
	"github.com/ryanbastic/cafedir/internal/storage"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200

	unknown = "Unknown"
)

var (
	ErrNotFound      = errors.New("cafe not found")
	ErrDuplicateName = errors.New("a cafe with this name already exists")
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Page is one page of an id-ordered cafe listing.
type Page struct {
	Cafes      []cafe.Cafe
	NextCursor string
	HasMore    bool
}

// Service serves the public cafe directory and admin cafe deletion.
type Service struct {
	store    storage.Store
	gate     *admin.Gate
	workflow *moderation.Workflow
	logger   *slog.Logger
}

func NewService(store storage.Store, gate *admin.Gate, workflow *moderation.Workflow, logger *slog.Logger) *Service {
	return &Service{store: store, gate: gate, workflow: workflow, logger: logger}
}

// List returns up to limit cafes after cursor. A limit outside
// [1, MaxPageSize] is clamped.
func (s *Service) List(ctx context.Context, cursor string, limit int) (*Page, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	c, err := storage.DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	cafes, err := s.store.ListCafes(ctx, c.AfterID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}

	page := &Page{Cafes: cafes}
	if len(cafes) > limit {
		page.Cafes = cafes[:limit]
		page.HasMore = true
		next := &storage.Cursor{AfterID: page.Cafes[limit-1].ID}
		if page.NextCursor, err = next.Encode(); err != nil {
			return nil, err
		}
	}
	if page.Cafes == nil {
		page.Cafes = []cafe.Cafe{}
	}
	return page, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*cafe.Cafe, error) {
	c, err := s.store.GetCafe(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrCafeNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get cafe: %w", err)
	}
	return c, nil
}

func (s *Service) Random(ctx context.Context) (*cafe.Cafe, error) {
	c, err := s.store.RandomCafe(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrCafeNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("random cafe: %w", err)
	}
	return c, nil
}

// SearchByLocation returns ErrNotFound when nothing matches.
func (s *Service) SearchByLocation(ctx context.Context, location string) ([]cafe.Cafe, error) {
	cafes, err := s.store.SearchCafesByLocation(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("search cafes: %w", err)
	}
	if len(cafes) == 0 {
		return nil, fmt.Errorf("no cafes at location %q: %w", location, ErrNotFound)
	}
	return cafes, nil
}

// Add creates a cafe. Missing seats and coffee price are recorded as "Unknown".
func (s *Service) Add(ctx context.Context, nc cafe.NewCafe) (*cafe.Cafe, error) {
	nc.Name = strings.TrimSpace(nc.Name)
	if strings.TrimSpace(nc.Seats) == "" {
		nc.Seats = unknown
	}
	if nc.CoffeePrice == nil || strings.TrimSpace(*nc.CoffeePrice) == "" {
		v := unknown
		nc.CoffeePrice = &v
	}

	c, err := s.store.CreateCafe(ctx, nc)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateName) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("add cafe: %w", err)
	}
	s.logger.Info("cafe added", "cafe_id", c.ID, "name", c.Name)
	return c, nil
}

// Delete removes a cafe and all of its update requests in one transaction
// and returns how many requests were removed.
func (s *Service) Delete(ctx context.Context, creds admin.Credentials, id int64) (int64, error) {
	if err := s.gate.Require(creds); err != nil {
		return 0, err
	}

	var removed int64
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		// Lock first so no submission can slip in between the cascade and
		// the delete.
		if _, err := tx.GetCafeForUpdate(ctx, id); err != nil {
			if errors.Is(err, storage.ErrCafeNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock cafe: %w", err)
		}

		n, err := s.workflow.CascadeDeleteForCafe(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteCafe(ctx, id); err != nil {
			if errors.Is(err, storage.ErrCafeNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("delete cafe: %w", err)
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("cafe deleted", "cafe_id", id, "removed_requests", removed)
	return removed, nil
}
