package storage

import (
	"context"
	"errors"

	"github.com/ryanbastic/cafedir/internal/cafe"
)

var (
	// ErrCafeNotFound is returned when a cafe lookup finds no matching row.
	ErrCafeNotFound = errors.New("cafe not found")

	// ErrRequestNotFound is returned when an update request lookup finds no matching row.
	ErrRequestNotFound = errors.New("update request not found")

	// ErrDuplicateName is returned when a write would give two cafes the same name.
	ErrDuplicateName = errors.New("cafe name already exists")

	// ErrRevisionMismatch is returned when a cafe changed since it was read.
	ErrRevisionMismatch = errors.New("cafe revision mismatch")
)

// PendingRequest is a pending update request joined with its cafe.
// Cafe is nil when the cafe no longer exists.
type PendingRequest struct {
	Request cafe.UpdateRequest
	Cafe    *cafe.Cafe
}

// CafeStore persists directory entries.
type CafeStore interface {
	CreateCafe(ctx context.Context, c cafe.NewCafe) (*cafe.Cafe, error)
	GetCafe(ctx context.Context, id int64) (*cafe.Cafe, error)

	// GetCafeForUpdate reads a cafe and locks it until the enclosing
	// transaction ends.
	GetCafeForUpdate(ctx context.Context, id int64) (*cafe.Cafe, error)

	// GetCafeForShare reads a cafe and blocks concurrent updates and deletes
	// of it until the enclosing transaction ends.
	GetCafeForShare(ctx context.Context, id int64) (*cafe.Cafe, error)

	// ListCafes returns up to limit cafes with id > afterID, ordered by id.
	ListCafes(ctx context.Context, afterID int64, limit int) ([]cafe.Cafe, error)

	// SearchCafesByLocation matches location case-insensitively as a substring.
	SearchCafesByLocation(ctx context.Context, location string) ([]cafe.Cafe, error)

	RandomCafe(ctx context.Context) (*cafe.Cafe, error)

	// UpdateCafe writes c only if the stored revision still equals c.Revision,
	// and returns the stored cafe with its new revision.
	UpdateCafe(ctx context.Context, c cafe.Cafe) (*cafe.Cafe, error)

	DeleteCafe(ctx context.Context, id int64) error
}

// RequestStore persists update requests.
type RequestStore interface {
	CreateRequest(ctx context.Context, cafeID int64, p cafe.Proposal) (*cafe.UpdateRequest, error)
	GetRequest(ctx context.Context, id int64) (*cafe.UpdateRequest, error)

	// ListPendingRequests returns pending requests ordered by (created_at, id).
	ListPendingRequests(ctx context.Context) ([]PendingRequest, error)

	DeleteRequest(ctx context.Context, id int64) error

	// DeleteRequestsForCafe removes every request for a cafe and returns how many were removed.
	DeleteRequestsForCafe(ctx context.Context, cafeID int64) (int64, error)
}

// Store is the full storage surface. WithTx runs fn against a Store bound to
// a single transaction; any error from fn rolls the transaction back.
type Store interface {
	CafeStore
	RequestStore
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
