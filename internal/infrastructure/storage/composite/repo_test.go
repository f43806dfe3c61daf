package composite_test

import (
	"context"
	"testing"
	"time"

	"gltrade/internal/domain"
	"gltrade/internal/infrastructure/storage"
	"gltrade/internal/infrastructure/storage/composite"
)

func TestCompositeMirrorsWrites(t *testing.T) {
	primary := storage.NewMemory()
	mirror := storage.NewMemory()
	repo := composite.New(primary, mirror)
	ctx := context.Background()

	acc := domain.NewAccount("u1", domain.SeedBalance)
	acc.UpdatedAt = time.Now()
	if err := repo.PutAccount(ctx, acc); err != nil {
		t.Fatalf("PutAccount failed: %v", err)
	}

	for i, member := range []*storage.MemoryRepo{primary, mirror} {
		got, err := member.GetAccount(ctx, "u1")
		if err != nil {
			t.Fatalf("member %d missed the write: %v", i, err)
		}
		if !got.Balance.Equal(acc.Balance) {
			t.Errorf("member %d balance %s != %s", i, got.Balance, acc.Balance)
		}
	}
}

func TestCompositeReadsFromPrimary(t *testing.T) {
	primary := storage.NewMemory()
	mirror := storage.NewMemory()
	ctx := context.Background()

	// only the mirror has the record: the composite must not find it
	acc := domain.NewAccount("u1", domain.SeedBalance)
	acc.UpdatedAt = time.Now()
	if err := mirror.PutAccount(ctx, acc); err != nil {
		t.Fatalf("PutAccount failed: %v", err)
	}

	repo := composite.New(primary, mirror)
	if _, err := repo.GetAccount(ctx, "u1"); err == nil {
		t.Errorf("expected read to go to primary only")
	}
}

func TestCompositeFiltersNilMembers(t *testing.T) {
	repo := composite.New(nil, storage.NewMemory(), nil)
	ctx := context.Background()

	acc := domain.NewAccount("u1", domain.SeedBalance)
	acc.UpdatedAt = time.Now()
	if err := repo.PutAccount(ctx, acc); err != nil {
		t.Fatalf("PutAccount failed: %v", err)
	}
	if _, err := repo.GetAccount(ctx, "u1"); err != nil {
		t.Errorf("GetAccount failed: %v", err)
	}
}
