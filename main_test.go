package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/laststand/config"
	"github.com/pthm-cable/laststand/game"
	"github.com/pthm-cable/laststand/neural"
	"github.com/pthm-cable/laststand/storage"
)

func newTestArchive(t *testing.T) *storage.SQLiteArchive {
	t.Helper()
	archive := storage.NewSQLiteArchive(filepath.Join(t.TempDir(), "archive.db"))
	if err := archive.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = archive.Close()
	})
	return archive
}

func TestArchiveSeedPicksFittestShooter(t *testing.T) {
	ctx := context.Background()
	archive := newTestArchive(t)

	weak := neural.NewDumb(2)
	strong := neural.NewDumb(4)
	records := []storage.GenotypeRecord{
		{Kind: "shooter", Round: 1, EntityID: 1, Fitness: 3, Network: weak.Network},
		{Kind: "shooter", Round: 2, EntityID: 2, Fitness: 9, Network: strong.Network},
		{Kind: "mob", Round: 2, EntityID: 3, Fitness: 50, Network: neural.NewDumbMob(3).Network},
	}
	for _, rec := range records {
		if err := archive.SaveGenotype(ctx, rec); err != nil {
			t.Fatalf("save %d: %v", rec.EntityID, err)
		}
	}

	seed, err := archiveSeed(ctx, archive)
	if err != nil {
		t.Fatalf("archiveSeed: %v", err)
	}
	if seed == nil {
		t.Fatal("expected a seed from a non-empty archive")
	}
	if !seed.Equal(strong) {
		t.Error("seed is not the fittest archived shooter")
	}
}

func TestArchiveSeedEmpty(t *testing.T) {
	seed, err := archiveSeed(context.Background(), newTestArchive(t))
	if err != nil {
		t.Fatalf("archiveSeed: %v", err)
	}
	if seed != nil {
		t.Error("empty archive should yield no seed")
	}
}

func TestArchiveSeedRejectsWrongShape(t *testing.T) {
	ctx := context.Background()
	archive := newTestArchive(t)

	rec := storage.GenotypeRecord{Kind: "shooter", Round: 1, EntityID: 7, Fitness: 1, Network: neural.NewDumbMob(3).Network}
	if err := archive.SaveGenotype(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := archiveSeed(ctx, archive); err == nil {
		t.Error("expected an error for a shooter record with mob outputs")
	}
}

func TestRunRejectsConflictingResume(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Path = filepath.Join(t.TempDir(), "archive.db")

	err := run(context.Background(), cfg, game.Options{Seed: 1}, runFlags{
		resumePath:    filepath.Join(t.TempDir(), "hall_of_fame.json"),
		resumeArchive: true,
		maxRounds:     1,
	})
	if err == nil {
		t.Error("expected -resume with -resume-archive to fail")
	}
}

func TestRunResumeArchiveNeedsPath(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Path = ""

	if err := run(context.Background(), cfg, game.Options{Seed: 1}, runFlags{resumeArchive: true, maxRounds: 1}); err == nil {
		t.Error("expected -resume-archive without an archive path to fail")
	}
}
