package postgres

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/lib/pq"
)

func TestRenderMigration(t *testing.T) {
	content, err := migrationsFS.ReadFile("migrations/001_identities.sql")
	if err != nil {
		t.Fatalf("failed to read embedded migration: %v", err)
	}
	if !strings.Contains(string(content), descriptorDimPlaceholder) {
		t.Fatal("expected identities migration to use the descriptor dim placeholder")
	}

	rendered := renderMigration(string(content), 128)
	if !strings.Contains(rendered, "vector(128)") {
		t.Errorf("expected vector(128) in rendered migration, got:\n%s", rendered)
	}
	if strings.Contains(rendered, "{{") {
		t.Error("rendered migration still contains placeholders")
	}
}

func TestGetPendingMigrationFiles(t *testing.T) {
	files, err := getPendingMigrationFiles(map[string]bool{"001_identities.sql": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0] != "002_one_time_codes.sql" {
		t.Errorf("expected only 002_one_time_codes.sql pending, got %v", files)
	}
}

func TestWrapStoreError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
		duplicate   bool
	}{
		{"connection failure", &pq.Error{Code: "08006"}, true, false},
		{"too many connections", &pq.Error{Code: "53300"}, true, false},
		{"admin shutdown", &pq.Error{Code: "57P01"}, true, false},
		{"unique violation", &pq.Error{Code: "23505"}, false, true},
		{"syntax error", &pq.Error{Code: "42601"}, false, false},
		{"dial error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true, false},
		{"wrapped dial error", fmt.Errorf("executing query: %w", &net.OpError{Op: "dial", Err: errors.New("refused")}), true, false},
		{"plain error", errors.New("boom"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := wrapStoreError("op", tt.err)
			if got := errors.Is(wrapped, database.ErrStoreUnavailable); got != tt.unavailable {
				t.Errorf("ErrStoreUnavailable = %v, want %v (err: %v)", got, tt.unavailable, wrapped)
			}
			if !errors.Is(wrapped, tt.err) {
				t.Error("wrapped error lost the original cause")
			}
			if got := isUniqueViolation(tt.err); got != tt.duplicate {
				t.Errorf("isUniqueViolation = %v, want %v", got, tt.duplicate)
			}
		})
	}
}
