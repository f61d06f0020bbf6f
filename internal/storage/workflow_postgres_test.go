package storage_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ryanbastic/cafedir/internal/admin"
	"github.com/ryanbastic/cafedir/internal/cafe"
	"github.com/ryanbastic/cafedir/internal/directory"
	"github.com/ryanbastic/cafedir/internal/moderation"
	"github.com/ryanbastic/cafedir/internal/storage"
)

const adminSecret = "pg-secret"

var adminCreds = admin.Credentials{Authorization: "Bearer " + adminSecret}

func strPtr(s string) *string { return &s }

func newServices(t *testing.T) (*storage.PostgresStore, *moderation.Workflow, *directory.Service) {
	t.Helper()
	store := storage.FreshStore(t)
	gate := admin.NewGate(adminSecret, time.Hour)
	logger := slog.New(slog.DiscardHandler)
	wf := moderation.NewWorkflow(store, gate, logger)
	return store, wf, directory.NewService(store, gate, wf, logger)
}

func createCafe(t *testing.T, s *storage.PostgresStore, name string) *cafe.Cafe {
	t.Helper()
	c, err := s.CreateCafe(context.Background(), cafe.NewCafe{
		Name:        name,
		Location:    "Seongsu",
		Seats:       "20-30",
		Amenities:   cafe.Amenities{HasWifi: true},
		CoffeePrice: strPtr("₩4,000"),
	})
	if err != nil {
		t.Fatalf("create cafe %q: %v", name, err)
	}
	return c
}

func pendingCount(t *testing.T, s *storage.PostgresStore) int {
	t.Helper()
	pending, err := s.ListPendingRequests(context.Background())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	return len(pending)
}

func TestWorkflowResolve_ApproveMerges(t *testing.T) {
	store, wf, _ := newServices(t)
	ctx := context.Background()
	c := createCafe(t, store, "Onion")

	req, err := wf.Submit(ctx, c.ID, cafe.Proposal{CoffeePrice: strPtr("₩5,000"), HasWifi: cafe.FlagFalse})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res, err := wf.Resolve(ctx, adminCreds, req.ID, "approve", &c.Revision)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.UpdatedCafe == nil {
		t.Fatal("expected an updated cafe")
	}

	got, err := store.GetCafe(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCafe: %v", err)
	}
	if *got.CoffeePrice != "₩5,000" || got.Amenities.HasWifi {
		t.Errorf("merge not applied: %+v", got)
	}
	if got.Seats != "20-30" || got.Name != "Onion" {
		t.Errorf("unproposed fields changed: %+v", got)
	}
	if got.Revision != c.Revision+1 {
		t.Errorf("Revision: got %d, want %d", got.Revision, c.Revision+1)
	}
	if _, err := store.GetRequest(ctx, req.ID); !errors.Is(err, storage.ErrRequestNotFound) {
		t.Errorf("resolved request should be gone: %v", err)
	}
}

func TestWorkflowResolve_DuplicateNameRollsBack(t *testing.T) {
	store, wf, _ := newServices(t)
	ctx := context.Background()
	createCafe(t, store, "Onion")
	target := createCafe(t, store, "Fritz")

	req, err := wf.Submit(ctx, target.ID, cafe.Proposal{Name: strPtr("Onion"), Seats: strPtr("99")})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := wf.Resolve(ctx, adminCreds, req.ID, "approve", nil); !errors.Is(err, moderation.ErrConflict) {
		t.Fatalf("Resolve: got %v, want ErrConflict", err)
	}

	got, err := store.GetCafe(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetCafe: %v", err)
	}
	if got.Name != "Fritz" || got.Seats != "20-30" || got.Revision != target.Revision {
		t.Errorf("cafe changed by a failed merge: %+v", got)
	}
	if _, err := store.GetRequest(ctx, req.ID); err != nil {
		t.Errorf("request should stay pending: %v", err)
	}
}

func TestWorkflowResolve_StaleRevision(t *testing.T) {
	store, wf, _ := newServices(t)
	ctx := context.Background()
	c := createCafe(t, store, "Onion")

	first, err := wf.Submit(ctx, c.ID, cafe.Proposal{Seats: strPtr("10")})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := wf.Submit(ctx, c.ID, cafe.Proposal{Seats: strPtr("12")})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := wf.Resolve(ctx, adminCreds, first.ID, "approve", &c.Revision); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if _, err := wf.Resolve(ctx, adminCreds, second.ID, "approve", &c.Revision); !errors.Is(err, moderation.ErrConflict) {
		t.Fatalf("second Resolve: got %v, want ErrConflict", err)
	}
	if n := pendingCount(t, store); n != 1 {
		t.Errorf("pending: got %d, want 1", n)
	}
}

// A submission that has locked the cafe must finish before a delete can
// cascade, so the delete removes it.
func TestDeleteCafe_WaitsForInFlightSubmit(t *testing.T) {
	store, _, dir := newServices(t)
	ctx := context.Background()
	c := createCafe(t, store, "Onion")

	locked := make(chan struct{})
	release := make(chan struct{})
	submitted := make(chan error, 1)
	go func() {
		submitted <- store.WithTx(ctx, func(tx storage.Store) error {
			if _, err := tx.GetCafeForShare(ctx, c.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			_, err := tx.CreateRequest(ctx, c.ID, cafe.Proposal{Seats: strPtr("5")})
			return err
		})
	}()
	<-locked

	type result struct {
		removed int64
		err     error
	}
	deleted := make(chan result, 1)
	go func() {
		n, err := dir.Delete(ctx, adminCreds, c.ID)
		deleted <- result{n, err}
	}()

	select {
	case r := <-deleted:
		t.Fatalf("Delete finished while the cafe was locked: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	if err := <-submitted; err != nil {
		t.Fatalf("submit tx: %v", err)
	}
	r := <-deleted
	if r.err != nil {
		t.Fatalf("Delete: %v", r.err)
	}
	if r.removed != 1 {
		t.Errorf("removed: got %d, want 1", r.removed)
	}
	if n := pendingCount(t, store); n != 0 {
		t.Errorf("dangling requests: %d", n)
	}
}

// A submission arriving while a delete holds the cafe fails once the delete
// commits instead of storing a request for a missing cafe.
func TestSubmit_BlockedByDeleteFails(t *testing.T) {
	store, wf, _ := newServices(t)
	ctx := context.Background()
	c := createCafe(t, store, "Onion")

	locked := make(chan struct{})
	release := make(chan struct{})
	deleted := make(chan error, 1)
	go func() {
		deleted <- store.WithTx(ctx, func(tx storage.Store) error {
			if _, err := tx.GetCafeForUpdate(ctx, c.ID); err != nil {
				return err
			}
			if _, err := tx.DeleteRequestsForCafe(ctx, c.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return tx.DeleteCafe(ctx, c.ID)
		})
	}()
	<-locked

	submitted := make(chan error, 1)
	go func() {
		_, err := wf.Submit(ctx, c.ID, cafe.Proposal{Seats: strPtr("5")})
		submitted <- err
	}()

	select {
	case err := <-submitted:
		t.Fatalf("Submit finished while the cafe was locked: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	if err := <-deleted; err != nil {
		t.Fatalf("delete tx: %v", err)
	}
	if err := <-submitted; !errors.Is(err, moderation.ErrNotFound) {
		t.Errorf("Submit: got %v, want ErrNotFound", err)
	}
	if n := pendingCount(t, store); n != 0 {
		t.Errorf("dangling requests: %d", n)
	}
}
