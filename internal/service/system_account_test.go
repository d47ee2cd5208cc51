package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestResolveFallsBackToFirstAdmin(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	svc := NewSystemAccountService(store.Users(), "", bcrypt.MinCost, nil)

	if _, err := svc.Resolve(ctx); !apperrors.HasCode(err, apperrors.CodeConfiguration) {
		t.Fatalf("empty store: err = %v, want CONFIGURATION_ERROR", err)
	}

	store.AddUser(domain.User{Name: "Inactive", Email: "old@helpdesk.com", Roles: []domain.Role{domain.RoleAdmin}})
	first := store.AddUser(domain.User{Name: "Ada", Email: "ada@helpdesk.com", Roles: []domain.Role{domain.RoleAdmin}, Active: true})
	store.AddUser(domain.User{Name: "Bea", Email: "bea@helpdesk.com", Roles: []domain.Role{domain.RoleAdmin}, Active: true})

	got, err := svc.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != first {
		t.Fatalf("resolved %d, want first active admin %d", got.ID, first)
	}

	system := store.AddUser(domain.User{Name: "Sistema", Email: "SISTEMA@helpdesk.com", Roles: []domain.Role{domain.RoleAdmin}, Active: true})
	got, err = svc.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != system {
		t.Fatalf("resolved %d, want system account %d", got.ID, system)
	}
}

func TestEnsureCreatesSystemAccountOnce(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	svc := NewSystemAccountService(store.Users(), "robot@helpdesk.com", bcrypt.MinCost, nil)

	user, created, err := svc.Ensure(ctx)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !created {
		t.Fatalf("first ensure did not create the account")
	}
	if user.Email != "robot@helpdesk.com" || !user.IsAdmin() || !user.Active {
		t.Fatalf("system account = %+v", user)
	}
	if user.PasswordHash == "" {
		t.Fatalf("system account has no password hash")
	}
	if _, err := bcrypt.Cost([]byte(user.PasswordHash)); err != nil {
		t.Fatalf("password hash is not bcrypt: %v", err)
	}

	again, created, err := svc.Ensure(ctx)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if created || again.ID != user.ID {
		t.Fatalf("second ensure created=%v id=%d", created, again.ID)
	}

	resolved, err := svc.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("resolved %d, want %d", resolved.ID, user.ID)
	}
}
