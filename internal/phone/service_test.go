package phone

import (
	"context"
	"testing"

	"github.com/congo-pay/mobcash/internal/apperr"
)

func TestCreateNormalizesDigits(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	p, err := svc.Create(context.Background(), "+229 01 57-45 54 19", 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Phone != "2290157455419" || p.Network != 1 {
		t.Fatalf("unexpected phone %+v", p)
	}
	if Display(p.Phone) != "+2290157455419" {
		t.Fatalf("unexpected display %q", Display(p.Phone))
	}
}

func TestCreateRejectsInvalidInputWithoutWriting(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	cases := []struct {
		name    string
		raw     string
		network int64
		field   string
	}{
		{"too short", "+229 01", 1, "phone"},
		{"empty", "  ", 1, "phone"},
		{"too long", "1234567890123456", 1, "phone"},
		{"no network", "22997000000", 0, "network"},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, tc.raw, tc.network)
		failure, ok := apperr.As(err)
		if !ok || failure.Kind != apperr.KindValidation || failure.FieldMessage(tc.field) == "" {
			t.Fatalf("%s: expected validation error on %s, got %v", tc.name, tc.field, err)
		}
	}
	all, _ := repo.List(ctx)
	if len(all) != 0 {
		t.Fatalf("expected nothing stored, got %+v", all)
	}
}

func TestListFiltersByNetwork(t *testing.T) {
	svc := NewService(NewMemoryRepository(
		UserPhone{ID: 1, Phone: "22997000000", Network: 1},
		UserPhone{ID: 2, Phone: "22996000000", Network: 2},
	))
	ctx := context.Background()

	mtn, err := svc.List(ctx, 1)
	if err != nil || len(mtn) != 1 || mtn[0].ID != 1 {
		t.Fatalf("unexpected filtered list %+v %v", mtn, err)
	}
	all, _ := svc.List(ctx, 0)
	if len(all) != 2 {
		t.Fatalf("expected all phones, got %+v", all)
	}

	updated, err := svc.Update(ctx, 2, "229 96 11 11 11", 2)
	if err != nil || updated.Phone != "22996111111" {
		t.Fatalf("update: %+v %v", updated, err)
	}
	if err := svc.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, 1); err != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
