// Package storagetest provides an in-memory storage.Store for tests.
package storagetest

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ryanbastic/cafedir/internal/cafe"
	"github.com/ryanbastic/cafedir/internal/storage"
)

// Store is an in-memory storage.Store. WithTx snapshots all state and
// restores it when fn returns an error. It is not isolated against
// concurrent transactions.
type Store struct {
	mu       sync.Mutex
	cafes    map[int64]cafe.Cafe
	requests map[int64]cafe.UpdateRequest
	nextID   int64
	clock    time.Time
	failures map[string]error

	// RolledBack counts transactions that were rolled back.
	RolledBack int
}

func New() *Store {
	return &Store{
		cafes:    make(map[int64]cafe.Cafe),
		requests: make(map[int64]cafe.UpdateRequest),
		clock:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		failures: make(map[string]error),
	}
}

// FailOn makes every later call to the named method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// RequestCount returns the number of stored update requests.
func (s *Store) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Store) fail(method string) error {
	return s.failures[method]
}

// tick advances the fake clock so creation times are strictly increasing.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *Store) newID() int64 {
	s.nextID++
	return s.nextID
}

func cloneCafe(c cafe.Cafe) cafe.Cafe {
	if c.CoffeePrice != nil {
		v := *c.CoffeePrice
		c.CoffeePrice = &v
	}
	return c
}

func (s *Store) nameTaken(name string, except int64) bool {
	for id, c := range s.cafes {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Store) error) error {
	s.mu.Lock()
	cafes := maps.Clone(s.cafes)
	requests := maps.Clone(s.requests)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.cafes = cafes
		s.requests = requests
		s.RolledBack++
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) CreateCafe(ctx context.Context, nc cafe.NewCafe) (*cafe.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateCafe"); err != nil {
		return nil, err
	}
	if s.nameTaken(nc.Name, 0) {
		return nil, storage.ErrDuplicateName
	}
	now := s.tick()
	c := cafe.Cafe{
		ID:          s.newID(),
		Name:        nc.Name,
		MapURL:      nc.MapURL,
		ImgURL:      nc.ImgURL,
		Location:    nc.Location,
		Seats:       nc.Seats,
		Amenities:   nc.Amenities,
		CoffeePrice: nc.CoffeePrice,
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.cafes[c.ID] = cloneCafe(c)
	out := cloneCafe(c)
	return &out, nil
}

func (s *Store) GetCafe(ctx context.Context, id int64) (*cafe.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetCafe"); err != nil {
		return nil, err
	}
	c, ok := s.cafes[id]
	if !ok {
		return nil, storage.ErrCafeNotFound
	}
	out := cloneCafe(c)
	return &out, nil
}

func (s *Store) GetCafeForUpdate(ctx context.Context, id int64) (*cafe.Cafe, error) {
	return s.GetCafe(ctx, id)
}

func (s *Store) GetCafeForShare(ctx context.Context, id int64) (*cafe.Cafe, error) {
	return s.GetCafe(ctx, id)
}

func (s *Store) sortedCafes(keep func(cafe.Cafe) bool) []cafe.Cafe {
	var out []cafe.Cafe
	for _, c := range s.cafes {
		if keep(c) {
			out = append(out, cloneCafe(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ListCafes(ctx context.Context, afterID int64, limit int) ([]cafe.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListCafes"); err != nil {
		return nil, err
	}
	out := s.sortedCafes(func(c cafe.Cafe) bool { return c.ID > afterID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SearchCafesByLocation(ctx context.Context, location string) ([]cafe.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SearchCafesByLocation"); err != nil {
		return nil, err
	}
	needle := strings.ToLower(location)
	return s.sortedCafes(func(c cafe.Cafe) bool {
		return strings.Contains(strings.ToLower(c.Location), needle)
	}), nil
}

// RandomCafe returns the cafe with the lowest id, which keeps tests deterministic.
func (s *Store) RandomCafe(ctx context.Context) (*cafe.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("RandomCafe"); err != nil {
		return nil, err
	}
	all := s.sortedCafes(func(cafe.Cafe) bool { return true })
	if len(all) == 0 {
		return nil, storage.ErrCafeNotFound
	}
	return &all[0], nil
}

func (s *Store) UpdateCafe(ctx context.Context, c cafe.Cafe) (*cafe.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateCafe"); err != nil {
		return nil, err
	}
	stored, ok := s.cafes[c.ID]
	if !ok {
		return nil, storage.ErrCafeNotFound
	}
	if stored.Revision != c.Revision {
		return nil, storage.ErrRevisionMismatch
	}
	if s.nameTaken(c.Name, c.ID) {
		return nil, storage.ErrDuplicateName
	}
	c.Revision++
	c.CreatedAt = stored.CreatedAt
	c.UpdatedAt = s.tick()
	s.cafes[c.ID] = cloneCafe(c)
	out := cloneCafe(c)
	return &out, nil
}

// SetRevision bumps a cafe's stored revision to simulate a concurrent write.
func (s *Store) SetRevision(id, revision int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cafes[id]; ok {
		c.Revision = revision
		s.cafes[id] = c
	}
}

func (s *Store) DeleteCafe(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteCafe"); err != nil {
		return err
	}
	if _, ok := s.cafes[id]; !ok {
		return storage.ErrCafeNotFound
	}
	delete(s.cafes, id)
	return nil
}

func (s *Store) CreateRequest(ctx context.Context, cafeID int64, p cafe.Proposal) (*cafe.UpdateRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateRequest"); err != nil {
		return nil, err
	}
	r := cafe.UpdateRequest{
		ID:        s.newID(),
		CafeID:    cafeID,
		Proposal:  p,
		Status:    cafe.StatusPending,
		CreatedAt: s.tick(),
	}
	s.requests[r.ID] = r
	return &r, nil
}

func (s *Store) GetRequest(ctx context.Context, id int64) (*cafe.UpdateRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetRequest"); err != nil {
		return nil, err
	}
	r, ok := s.requests[id]
	if !ok {
		return nil, storage.ErrRequestNotFound
	}
	return &r, nil
}

func (s *Store) ListPendingRequests(ctx context.Context) ([]storage.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListPendingRequests"); err != nil {
		return nil, err
	}
	var out []storage.PendingRequest
	for _, r := range s.requests {
		if r.Status != cafe.StatusPending {
			continue
		}
		pr := storage.PendingRequest{Request: r}
		if c, ok := s.cafes[r.CafeID]; ok {
			cc := cloneCafe(c)
			pr.Cafe = &cc
		}
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Request, out[j].Request
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) DeleteRequest(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteRequest"); err != nil {
		return err
	}
	if _, ok := s.requests[id]; !ok {
		return storage.ErrRequestNotFound
	}
	delete(s.requests, id)
	return nil
}

func (s *Store) DeleteRequestsForCafe(ctx context.Context, cafeID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteRequestsForCafe"); err != nil {
		return 0, err
	}
	var n int64
	for id, r := range s.requests {
		if r.CafeID == cafeID {
			delete(s.requests, id)
			n++
		}
	}
	return n, nil
}

var _ storage.Store = (*Store)(nil)
