package db

import (
	"context"
	"testing"
)

// NewTestManager opens an in-memory store with the schema applied. Intended
// for tests in this module; callers get automatic cleanup.
func NewTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewSQLiteManager(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	if err := m.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return m
}
