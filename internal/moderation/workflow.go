package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ryanbastic/cafedir/internal/admin"
	"github.com/ryanbastic/cafedir/internal/cafe"
	"github.com/ryanbastic/cafedir/internal/storage"
)

var (
	// ErrNotFound is returned when the cafe or update request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for an unrecognised resolve action.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is returned when a merge cannot be applied to the cafe as it
	// currently stands. The request stays pending.
	ErrConflict = errors.New("conflict")
)

// DiffView is a pending request shown next to its cafe's current values.
type DiffView struct {
	RequestID    int64            `json:"request_id"`
	CafeID       int64            `json:"cafe_id"`
	CafeName     string           `json:"cafe_name"`
	CafeRevision int64            `json:"cafe_revision"`
	Status       cafe.Status      `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	Fields       []cafe.FieldDiff `json:"fields"`
}

// Resolution is the result of resolving a request. UpdatedCafe is set only
// when an approval was merged into an existing cafe.
type Resolution struct {
	RequestID   int64
	Action      cafe.Action
	Status      cafe.Status
	UpdatedCafe *cafe.Cafe
}

// Workflow owns the lifecycle of update requests.
type Workflow struct {
	store  storage.Store
	gate   *admin.Gate
	logger *slog.Logger
}

func NewWorkflow(store storage.Store, gate *admin.Gate, logger *slog.Logger) *Workflow {
	return &Workflow{store: store, gate: gate, logger: logger}
}

// Submit records a pending request against an existing cafe. No credentials
// are needed. The cafe row stays share-locked until the request is stored so
// a concurrent cafe delete either sees the request or makes Submit fail.
func (w *Workflow) Submit(ctx context.Context, cafeID int64, p cafe.Proposal) (*cafe.UpdateRequest, error) {
	p = p.Normalize()

	var req *cafe.UpdateRequest
	err := w.store.WithTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetCafeForShare(ctx, cafeID); err != nil {
			if errors.Is(err, storage.ErrCafeNotFound) {
				return fmt.Errorf("cafe %d: %w", cafeID, ErrNotFound)
			}
			return fmt.Errorf("look up cafe: %w", err)
		}

		var err error
		req, err = tx.CreateRequest(ctx, cafeID, p)
		if err != nil {
			return fmt.Errorf("store update request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("update request submitted", "request_id", req.ID, "cafe_id", cafeID, "empty", p.IsEmpty())
	return req, nil
}

// ListForAdmin returns every pending request whose cafe still exists, oldest
// first. It never returns a nil slice on success.
func (w *Workflow) ListForAdmin(ctx context.Context, creds admin.Credentials) ([]DiffView, error) {
	if err := w.gate.Require(creds); err != nil {
		return nil, err
	}

	pending, err := w.store.ListPendingRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}

	views := make([]DiffView, 0, len(pending))
	for _, p := range pending {
		if p.Cafe == nil {
			w.logger.Debug("skipping update request for missing cafe", "request_id", p.Request.ID, "cafe_id", p.Request.CafeID)
			continue
		}
		views = append(views, DiffView{
			RequestID:    p.Request.ID,
			CafeID:       p.Cafe.ID,
			CafeName:     p.Cafe.Name,
			CafeRevision: p.Cafe.Revision,
			Status:       p.Request.Status,
			CreatedAt:    p.Request.CreatedAt,
			Fields:       p.Request.Proposal.Diff(*p.Cafe),
		})
	}
	return views, nil
}

// Resolve approves or rejects a pending request in one transaction.
// Approval copies every set field onto the cafe; when expectedRevision is
// non-nil the cafe must still be at that revision. The request is removed
// only if the whole resolution succeeds.
func (w *Workflow) Resolve(ctx context.Context, creds admin.Credentials, requestID int64, action string, expectedRevision *int64) (*Resolution, error) {
	if err := w.gate.Require(creds); err != nil {
		return nil, err
	}

	var res *Resolution
	err := w.store.WithTx(ctx, func(tx storage.Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			if errors.Is(err, storage.ErrRequestNotFound) {
				return fmt.Errorf("update request %d: %w", requestID, ErrNotFound)
			}
			return fmt.Errorf("load update request: %w", err)
		}

		act, err := cafe.ParseAction(action)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		if !cafe.CanTransition(req.Status, act.Outcome()) {
			return fmt.Errorf("update request %d is already %s: %w", requestID, req.Status, ErrConflict)
		}

		res = &Resolution{RequestID: req.ID, Action: act, Status: act.Outcome()}
		if act == cafe.ActionApprove {
			updated, err := w.merge(ctx, tx, req, expectedRevision)
			if err != nil {
				return err
			}
			res.UpdatedCafe = updated
		}

		if err := tx.DeleteRequest(ctx, req.ID); err != nil {
			if errors.Is(err, storage.ErrRequestNotFound) {
				return fmt.Errorf("update request %d: %w", requestID, ErrNotFound)
			}
			return fmt.Errorf("remove resolved request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("update request resolved", "request_id", res.RequestID, "status", res.Status, "merged", res.UpdatedCafe != nil)
	return res, nil
}

// merge applies req to its cafe. A missing cafe is not an error; the merge is
// skipped and nil is returned.
func (w *Workflow) merge(ctx context.Context, tx storage.Store, req *cafe.UpdateRequest, expectedRevision *int64) (*cafe.Cafe, error) {
	current, err := tx.GetCafeForUpdate(ctx, req.CafeID)
	if errors.Is(err, storage.ErrCafeNotFound) {
		w.logger.Warn("approved update request for missing cafe", "request_id", req.ID, "cafe_id", req.CafeID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock cafe: %w", err)
	}

	if expectedRevision != nil && *expectedRevision != current.Revision {
		return nil, fmt.Errorf("cafe %d is at revision %d, expected %d: %w", current.ID, current.Revision, *expectedRevision, ErrConflict)
	}

	updated, err := tx.UpdateCafe(ctx, req.Proposal.ApplyTo(*current))
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, storage.ErrDuplicateName), errors.Is(err, storage.ErrRevisionMismatch):
		return nil, fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, storage.ErrCafeNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("merge into cafe %d: %w", current.ID, err)
	}
}

// Delete discards a request without resolving it.
func (w *Workflow) Delete(ctx context.Context, creds admin.Credentials, requestID int64) error {
	if err := w.gate.Require(creds); err != nil {
		return err
	}
	if err := w.store.DeleteRequest(ctx, requestID); err != nil {
		if errors.Is(err, storage.ErrRequestNotFound) {
			return fmt.Errorf("update request %d: %w", requestID, ErrNotFound)
		}
		return fmt.Errorf("delete update request: %w", err)
	}
	w.logger.Info("update request deleted", "request_id", requestID)
	return nil
}

// CascadeDeleteForCafe removes every request for cafeID through tx, which
// should be the transaction that deletes the cafe itself.
func (w *Workflow) CascadeDeleteForCafe(ctx context.Context, tx storage.RequestStore, cafeID int64) (int64, error) {
	n, err := tx.DeleteRequestsForCafe(ctx, cafeID)
	if err != nil {
		return 0, fmt.Errorf("cascade update requests: %w", err)
	}
	return n, nil
}
