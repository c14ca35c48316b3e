package game

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/laststand/config"
	"github.com/pthm-cable/laststand/neural"
	"github.com/pthm-cable/laststand/storage"
	"github.com/pthm-cable/laststand/telemetry"
)

// testConfig returns a small, fast arena.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Arena.Width = 200
	cfg.Arena.Height = 200
	cfg.Arena.MaxRoundSec = 60
	cfg.Derived.HalfWidth = 100
	cfg.Derived.HalfHeight = 100
	return cfg
}

func newTestArena(t *testing.T, cfg *config.Config, opts Options) *Arena {
	t.Helper()
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	a, err := NewArena(cfg, opts)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

type recordingArchive struct {
	records []storage.GenotypeRecord
	err     error
}

func (r *recordingArchive) SaveGenotype(_ context.Context, rec storage.GenotypeRecord) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func TestArrivalRateDoubles(t *testing.T) {
	tests := []struct {
		virility float64
		want     float64
	}{
		{0, 0.5},
		{30, 1},
		{60, 2},
		{90, 4},
	}
	for _, tt := range tests {
		if got := arrivalRate(0.5, 30, tt.virility); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("arrivalRate(0.5, 30, %v) = %v, want %v", tt.virility, got, tt.want)
		}
	}
}

func TestRunRoundEnds(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 5
	a := newTestArena(t, cfg, Options{})

	stats, err := a.RunRound(context.Background(), 60*time.Second)
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}

	if stats.Round != 1 || a.Round() != 1 {
		t.Errorf("round = %d (arena %d), want 1", stats.Round, a.Round())
	}
	if stats.Ticks == 0 {
		t.Error("round simulated no ticks")
	}
	if stats.MobsSpawned == 0 {
		t.Error("no mobs arrived")
	}
	if stats.ShotsFired == 0 {
		t.Error("shooter never fired")
	}
	if shooters, mobs := a.Counts(); shooters != 0 || mobs != 0 {
		t.Errorf("counts after round = %d, %d; want 0, 0", shooters, mobs)
	}
	// Eden plus the round's single shooter.
	if got := a.ShooterPool().Len(); got != 2 {
		t.Errorf("shooter pool len = %d, want 2", got)
	}
	if stats.ShooterPoolSize != 2 {
		t.Errorf("stats shooter pool = %d, want 2", stats.ShooterPoolSize)
	}
	if a.HallOfFame().Len() != 1 {
		t.Errorf("hall of fame len = %d, want 1", a.HallOfFame().Len())
	}
}

func TestTimeoutRetiresSurvivors(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 0
	a := newTestArena(t, cfg, Options{})

	stats, err := a.RunRound(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}

	if !stats.TimedOut {
		t.Error("round without mobs should time out")
	}
	if stats.Ticks < 60 || stats.Ticks > 61 {
		t.Errorf("ticks = %d, want 60 or 61", stats.Ticks)
	}
	if stats.ShooterDeaths != 0 {
		t.Errorf("shooter deaths = %d, want 0", stats.ShooterDeaths)
	}
	if math.Abs(stats.SurvivalMax-1) > 0.05 {
		t.Errorf("survival max = %v, want about 1", stats.SurvivalMax)
	}
	if got := a.ShooterPool().Len(); got != 2 {
		t.Errorf("retired shooter not preserved: pool len = %d", got)
	}
}

func TestDeterministicRounds(t *testing.T) {
	run := func() telemetry.RoundStats {
		cfg := testConfig()
		cfg.Mob.BaseRate = 5
		a := newTestArena(t, cfg, Options{Seed: 7})
		stats, err := a.RunRound(context.Background(), 30*time.Second)
		if err != nil {
			t.Fatalf("RunRound: %v", err)
		}
		return stats
	}

	first, second := run(), run()
	if first.Ticks != second.Ticks || first.MobsSpawned != second.MobsSpawned || first.MobsShot != second.MobsShot {
		t.Errorf("same seed diverged:\n%+v\n%+v", first, second)
	}
}

func TestSpawnArrivalsRespectsSafeZoneAndCap(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 5000
	cfg.Mob.MaxAlive = 25
	a := newTestArena(t, cfg, Options{})
	a.startRound()

	for i := 0; i < 10; i++ {
		a.spawnArrivals(cfg.Arena.DT)
	}

	if _, mobs := a.Counts(); mobs != 25 {
		t.Errorf("mobs = %d, want the cap of 25", mobs)
	}

	sx := cfg.Mob.SafeZone * cfg.Arena.Width
	sy := cfg.Mob.SafeZone * cfg.Arena.Height
	query := a.mobFilter.Query()
	for query.Next() {
		pos, _, rot, _, _ := query.Get()
		if math.Abs(pos.X) <= sx && math.Abs(pos.Y) <= sy {
			t.Errorf("mob spawned inside the safe zone at (%v, %v)", pos.X, pos.Y)
		}
		if math.Abs(pos.X) > cfg.Derived.HalfWidth || math.Abs(pos.Y) > cfg.Derived.HalfHeight {
			t.Errorf("mob spawned outside the arena at (%v, %v)", pos.X, pos.Y)
		}
		want := math.Atan2(-pos.Y, -pos.X)
		if math.Abs(rot.Heading-want) > 1e-9 {
			t.Errorf("mob heading = %v, want %v (toward center)", rot.Heading, want)
		}
	}
}

func TestBulletKillsMob(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 0
	a := newTestArena(t, cfg, Options{})
	a.startRound()

	mob := a.spawnMob(60, 0, math.Pi)
	a.pendingBullets = append(a.pendingBullets[:0], pendingBullet{owner: 0, x: 60, y: 0, aim: 0})
	// Fire through the weapon path with the queued bullet.
	a.spawnPendingBullets()

	a.resolveHits()
	if !a.mobMap.Get(mob).Dead {
		t.Fatal("bullet overlapping a mob did not kill it")
	}

	a.cleanupDead()
	if _, mobs := a.Counts(); mobs != 0 {
		t.Errorf("dead mob not removed, mobs = %d", mobs)
	}
	if got := a.MobPool().Len(); got != 2 {
		t.Errorf("dead mob not preserved: mob pool len = %d", got)
	}

	stats := a.collector.Flush(1, 1, false, telemetry.PoolState{})
	if stats.MobsShot != 1 || stats.ShotsFired != 1 {
		t.Errorf("mobs shot = %d, shots = %d; want 1 and 1", stats.MobsShot, stats.ShotsFired)
	}
}

func TestContactCostsLife(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 0
	a := newTestArena(t, cfg, Options{})
	a.startRound()

	mob := a.spawnMob(3, 0, math.Pi)
	a.resolveHits()

	m := a.mobMap.Get(mob)
	if !m.Dead {
		t.Fatal("mob touching a shooter should be spent")
	}
	id := m.ID
	if got := a.lifetimeTracker.Get(id).Contacts; got != 1 {
		t.Fatalf("tracked contacts = %d, want 1", got)
	}

	query := a.shooterFilter.Query()
	for query.Next() {
		_, _, _, _, s := query.Get()
		if s.Life != cfg.Shooter.Life-1 {
			t.Errorf("shooter life = %d, want %d", s.Life, cfg.Shooter.Life-1)
		}
	}

	a.cleanupDead()
	entries := a.MobPool().Entries()
	last := entries[len(entries)-1]
	if last.Fitness != cfg.Mob.ContactBonus {
		t.Errorf("mob fitness = %v, want the contact bonus %v", last.Fitness, cfg.Mob.ContactBonus)
	}
	if a.lifetimeTracker.Get(id) != nil {
		t.Error("preserved mob still tracked")
	}
}

func TestShooterDiesAfterLastLife(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 0
	cfg.Shooter.Life = 1
	a := newTestArena(t, cfg, Options{})
	a.startRound()

	a.spawnMob(0, 0, 0)
	a.resolveHits()
	a.cleanupDead()

	if !a.Over() {
		t.Error("round should be over once the only shooter is dead")
	}
}

func TestBulletsExpire(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 0
	a := newTestArena(t, cfg, Options{})
	a.startRound()

	a.pendingBullets = append(a.pendingBullets[:0], pendingBullet{x: 0, y: 0, aim: 0})
	a.spawnPendingBullets()

	// Bullets leave a 200-wide arena well within their lifetime.
	for i := 0; i < 60; i++ {
		a.integrateMotion(cfg.Arena.DT)
		a.cleanupDead()
	}

	query := a.bulletFilter.Query()
	remaining := 0
	for query.Next() {
		remaining++
	}
	if remaining != 0 {
		t.Errorf("%d bullets left after leaving the arena", remaining)
	}
}

func TestRunWritesOutputs(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 5
	cfg.Arena.MaxRoundSec = 10
	dir := filepath.Join(t.TempDir(), "out")

	var rounds []telemetry.RoundStats
	archive := &recordingArchive{}
	a := newTestArena(t, cfg, Options{
		OutputDir:     dir,
		Archive:       archive,
		StatsCallback: func(s telemetry.RoundStats) { rounds = append(rounds, s) },
	})

	if err := a.Run(context.Background(), 2); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("stats callback called %d times, want 2", len(rounds))
	}

	for _, name := range []string{"config.yaml", "rounds.csv", "perf.csv", "hall_of_fame.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	var shooters int
	for _, rec := range archive.records {
		if rec.Kind == "shooter" {
			shooters++
		}
	}
	if shooters != 2 {
		t.Errorf("archived %d shooters, want 2", shooters)
	}
	if len(a.pendingArchive) != 0 {
		t.Errorf("archive queue not drained: %d", len(a.pendingArchive))
	}
}

func TestArchiveFailureDoesNotStopRun(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 5
	archive := &recordingArchive{err: errors.New("disk full")}
	a := newTestArena(t, cfg, Options{Archive: archive})

	if _, err := a.RunRound(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("RunRound returned archive error: %v", err)
	}
}

func TestShooterSeedOption(t *testing.T) {
	cfg := testConfig()
	seed := neural.NewDumb(5)
	a := newTestArena(t, cfg, Options{ShooterSeed: seed})

	entries := a.ShooterPool().Entries()
	if len(entries) != 1 || len(entries[0].Genotype.Hidden) != 5 {
		t.Errorf("shooter pool not seeded from the given brain")
	}

	bad := &neural.Brain{Network: neural.NewDumbNetwork(3, 3, 1)}
	if _, err := NewArena(testConfig(), Options{ShooterSeed: bad}); err == nil {
		t.Error("NewArena accepted a shooter seed with the wrong input count")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a := newTestArena(t, testConfig(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.Run(ctx, 0); err != nil {
		t.Fatalf("Run on cancelled context = %v, want nil", err)
	}
	if _, err := a.RunRound(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("RunRound error = %v, want context.Canceled", err)
	}
}

func TestNewArenaRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Arena.DT = 0
	if _, err := NewArena(cfg, Options{}); err == nil {
		t.Error("NewArena accepted dt = 0")
	}
}

// countdownContext reports cancellation once Err has been polled n times.
type countdownContext struct {
	context.Context
	n int
}

func (c *countdownContext) Err() error {
	if c.n <= 0 {
		return context.Canceled
	}
	c.n--
	return nil
}

func TestCancelledRoundArchivesAndPreserves(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 0
	archive := &recordingArchive{}
	a := newTestArena(t, cfg, Options{Archive: archive})

	ctx := &countdownContext{Context: context.Background(), n: 30}
	if _, err := a.RunRound(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunRound error = %v, want context.Canceled", err)
	}

	if shooters, mobs := a.Counts(); shooters != 0 || mobs != 0 {
		t.Errorf("counts after cancel = %d, %d; want 0, 0", shooters, mobs)
	}
	if got := a.ShooterPool().Len(); got != 2 {
		t.Errorf("live shooter not preserved: pool len = %d", got)
	}
	if len(archive.records) != 1 || archive.records[0].Kind != "shooter" {
		t.Errorf("archived %+v, want the one shooter", archive.records)
	}
	if len(a.pendingArchive) != 0 {
		t.Errorf("archive queue not drained: %d", len(a.pendingArchive))
	}
}

func TestArrivalsDropSafeZoneDraws(t *testing.T) {
	cfg := testConfig()
	cfg.Mob.BaseRate = 50
	cfg.Mob.DoublingPeriod = 1e9
	cfg.Mob.MaxAlive = 1_000_000

	const (
		seeds = 5
		ticks = 600
	)
	total := 0
	for seed := uint64(1); seed <= seeds; seed++ {
		a := newTestArena(t, cfg, Options{Seed: seed})
		a.startRound()
		for i := 0; i < ticks; i++ {
			a.spawnArrivals(cfg.Arena.DT)
		}
		_, mobs := a.Counts()
		total += mobs
	}

	draws := cfg.Mob.BaseRate * ticks * cfg.Arena.DT
	outside := 1 - (2*cfg.Mob.SafeZone)*(2*cfg.Mob.SafeZone)
	want := draws * outside
	mean := float64(total) / seeds
	if math.Abs(mean-want) > 0.08*want {
		t.Errorf("mean arrivals = %.1f, want about %.1f of %.0f draws", mean, want, draws)
	}
}
