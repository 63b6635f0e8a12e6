package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hamed0406/uptimecore/internal/config"
	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/repo"
	"github.com/hamed0406/uptimecore/internal/repo/memory"
	pg "github.com/hamed0406/uptimecore/internal/repo/postgres"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.Datastore = memory.New()
	var _ repo.Seeder = memory.New()

	var _ repo.Datastore = (*pg.Store)(nil)
	var _ repo.Seeder = (*pg.Store)(nil)
}

func TestApplySeed_UnknownContactFails(t *testing.T) {
	s := memory.New()
	seed := config.Seed{
		Monitors: []domain.Monitor{{ID: "m", Kind: domain.KindHTTP}},
		Bindings: []config.Binding{{Monitor: "m", Contacts: []string{"ghost"}}},
	}
	err := repo.ApplySeed(context.Background(), s, seed)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
