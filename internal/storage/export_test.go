package storage

import "testing"

// FreshStore exposes freshStore to the storage_test package.
func FreshStore(t *testing.T) *PostgresStore {
	return freshStore(t)
}
