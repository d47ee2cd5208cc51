package settings

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
)

func TestTypedGettersFallBackToDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewStore().Settings(), nil)

	if got := store.GetString(ctx, "MISSING", "x"); got != "x" {
		t.Fatalf("missing string = %q", got)
	}
	if got := store.GetInt(ctx, "MISSING", 7); got != 7 {
		t.Fatalf("missing int = %d", got)
	}
	if got := store.GetBool(ctx, "MISSING", true); !got {
		t.Fatalf("missing bool = %v", got)
	}

	for key, value := range map[string]string{"N": "abc", "B": "maybe", "S": "  padded  "} {
		if err := store.Set(ctx, key, value); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if got := store.GetInt(ctx, "N", 3); got != 3 {
		t.Fatalf("malformed int = %d", got)
	}
	if got := store.GetBool(ctx, "B", false); got {
		t.Fatalf("malformed bool = %v", got)
	}
	if got := store.GetString(ctx, "S", ""); got != "padded" {
		t.Fatalf("string = %q", got)
	}
}

func TestSetKeepsDescription(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Settings()
	if err := repo.Upsert(ctx, &domain.SystemSetting{Key: KeyAutoCloseHour, Value: "9", Description: "hour of the daily sweep"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewStore(repo, nil)
	if err := store.Set(ctx, KeyAutoCloseHour, "3"); err != nil {
		t.Fatalf("set: %v", err)
	}
	row, err := repo.Get(ctx, KeyAutoCloseHour)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.Value != "3" || row.Description != "hour of the daily sweep" {
		t.Fatalf("row = %+v", row)
	}
	if got := store.GetInt(ctx, KeyAutoCloseHour, 0); got != 3 {
		t.Fatalf("hour = %d", got)
	}
}
