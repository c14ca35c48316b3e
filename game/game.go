// Package game drives the arena: shooters, mobs, and bullets in an ECS world,
// with both genotypes evolved through gene pools across rounds.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/laststand/components"
	"github.com/pthm-cable/laststand/config"
	"github.com/pthm-cable/laststand/genepool"
	"github.com/pthm-cable/laststand/neural"
	"github.com/pthm-cable/laststand/storage"
	"github.com/pthm-cable/laststand/systems"
	"github.com/pthm-cable/laststand/telemetry"
)

// GridCellSize is the spatial grid cell size in world units.
const GridCellSize = 32.0

// Archive receives every preserved genotype.
type Archive interface {
	SaveGenotype(ctx context.Context, rec storage.GenotypeRecord) error
}

// Options holds run-level settings that are not part of the experiment config.
type Options struct {
	Seed      uint64
	OutputDir string // empty = no CSV/JSON output
	LogStats  bool
	Archive   Archive // nil = no archive

	// ShooterSeed replaces the default seed genotype of the shooter pool.
	ShooterSeed *neural.Brain

	// StatsCallback is called with each round's stats.
	StatsCallback func(telemetry.RoundStats)
}

// Arena holds the complete simulation state.
type Arena struct {
	cfg   *config.Config
	world *ecs.World
	rng   *rand.Rand

	// Entity mappers per archetype
	shooterMapper *ecs.Map5[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Shooter,
	]
	shooterFilter *ecs.Filter5[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Shooter,
	]
	mobMapper *ecs.Map5[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Mob,
	]
	mobFilter *ecs.Filter5[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Mob,
	]
	bulletMapper *ecs.Map4[
		components.Position,
		components.Velocity,
		components.Body,
		components.Bullet,
	]
	bulletFilter *ecs.Filter4[
		components.Position,
		components.Velocity,
		components.Body,
		components.Bullet,
	]

	// Individual component mappers for lookups
	posMap     *ecs.Map1[components.Position]
	shooterMap *ecs.Map1[components.Shooter]
	mobMap     *ecs.Map1[components.Mob]

	// Brain storage (per entity by ID)
	shooterBrains map[uint32]*neural.Brain
	mobBrains     map[uint32]*neural.MobBrain

	// Gene pools
	shooterPool *genepool.GenePool[*neural.Brain]
	mobPool     *genepool.GenePool[*neural.MobBrain]

	// Spatial indexes, rebuilt every tick
	mobGrid     *systems.SpatialGrid
	shooterGrid *systems.SpatialGrid
	neighbors   []systems.Neighbor

	// Telemetry
	collector        *telemetry.Collector
	lifetimeTracker  *telemetry.LifetimeTracker
	perfCollector    *telemetry.PerfCollector
	hallOfFame       *telemetry.HallOfFame
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	archive          Archive
	logStats         bool
	statsCallback    func(telemetry.RoundStats)

	// Per-tick scratch
	pendingBullets []pendingBullet

	// Preserved genotypes waiting for the archive
	pendingArchive []storage.GenotypeRecord

	// State
	tick        int32
	round       int
	roundTicks  int
	mobVirility float64 // seconds of mob arrival growth this round
	nextID      uint32
	numShooters int
	numMobs     int
}

// NewArena creates an arena from cfg. The mutation rates in cfg are installed
// process-wide.
func NewArena(cfg *config.Config, opts Options) (*Arena, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := neural.InitMutationRates(cfg.Evolution.Mutation); err != nil {
		return nil, fmt.Errorf("installing mutation rates: %w", err)
	}

	world := ecs.NewWorld()
	a := &Arena{
		cfg:           cfg,
		world:         world,
		rng:           rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		shooterBrains: make(map[uint32]*neural.Brain),
		mobBrains:     make(map[uint32]*neural.MobBrain),
		shooterMapper: ecs.NewMap5[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Shooter,
		](world),
		shooterFilter: ecs.NewFilter5[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Shooter,
		](world),
		mobMapper: ecs.NewMap5[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Mob,
		](world),
		mobFilter: ecs.NewFilter5[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Mob,
		](world),
		bulletMapper: ecs.NewMap4[
			components.Position,
			components.Velocity,
			components.Body,
			components.Bullet,
		](world),
		bulletFilter: ecs.NewFilter4[
			components.Position,
			components.Velocity,
			components.Body,
			components.Bullet,
		](world),
		posMap:     ecs.NewMap1[components.Position](world),
		shooterMap: ecs.NewMap1[components.Shooter](world),
		mobMap:     ecs.NewMap1[components.Mob](world),

		mobGrid:     systems.NewSpatialGrid(cfg.Arena.Width, cfg.Arena.Height, GridCellSize),
		shooterGrid: systems.NewSpatialGrid(cfg.Arena.Width, cfg.Arena.Height, GridCellSize),

		collector:        telemetry.NewCollector(cfg.Arena.DT),
		lifetimeTracker:  telemetry.NewLifetimeTracker(),
		perfCollector:    telemetry.NewPerfCollector(int(1 / cfg.Arena.DT)),
		hallOfFame:       telemetry.NewHallOfFame(cfg.Telemetry.HallOfFameSize),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		archive:          opts.Archive,
		logStats:         opts.LogStats,
		statsCallback:    opts.StatsCallback,
	}

	if opts.ShooterSeed != nil {
		if err := opts.ShooterSeed.Validate(); err != nil {
			return nil, fmt.Errorf("shooter seed: %w", err)
		}
		a.shooterPool = genepool.NewEden(opts.ShooterSeed.Clone(), cfg.Evolution.ShooterPool)
	} else {
		a.shooterPool = NewShooterPool(cfg)
	}
	a.mobPool = NewMobPool(cfg)

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	a.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	return a, nil
}

// NewShooterPool returns the shooter eden: one seed brain at the configured fitness.
func NewShooterPool(cfg *config.Config) *genepool.GenePool[*neural.Brain] {
	return genepool.NewEden(neural.NewDumb(cfg.Shooter.HiddenNeurons), cfg.Evolution.ShooterPool)
}

// NewMobPool returns the mob eden: one seed mob brain at the configured fitness.
func NewMobPool(cfg *config.Config) *genepool.GenePool[*neural.MobBrain] {
	return genepool.NewEden(neural.NewDumbMob(cfg.Mob.HiddenNeurons), cfg.Evolution.MobPool)
}

// config returns the arena's configuration.
func (a *Arena) config() *config.Config {
	return a.cfg
}

// Step advances the simulation by one tick of dt seconds.
func (a *Arena) Step(dt float64) {
	a.perfCollector.StartTick()

	a.perfCollector.StartPhase(telemetry.PhaseArrivals)
	a.spawnArrivals(dt)

	a.perfCollector.StartPhase(telemetry.PhaseThink)
	a.thinkShooters(dt)
	a.thinkMobs(dt)

	a.perfCollector.StartPhase(telemetry.PhaseMotion)
	a.integrateMotion(dt)

	a.perfCollector.StartPhase(telemetry.PhaseWeapons)
	a.updateWeapons(dt)

	a.perfCollector.StartPhase(telemetry.PhaseCollisions)
	a.resolveHits()

	a.perfCollector.StartPhase(telemetry.PhaseCleanup)
	a.cleanupDead()

	a.perfCollector.EndTick()

	a.tick++
	a.roundTicks++
}

// Over reports whether every shooter of the current round is dead.
func (a *Arena) Over() bool {
	return a.numShooters == 0
}

// RunRound plays one round until every shooter is dead or maxDuration of
// simulated time has passed. maxDuration <= 0 means no limit. A cancelled
// round still preserves its live entities and archives what it preserved.
func (a *Arena) RunRound(ctx context.Context, maxDuration time.Duration) (telemetry.RoundStats, error) {
	a.startRound()

	dt := a.config().Arena.DT
	timedOut := false
	for !a.Over() {
		if err := ctx.Err(); err != nil {
			a.abandonRound(ctx)
			return telemetry.RoundStats{}, err
		}
		if maxDuration > 0 && a.elapsed() >= maxDuration {
			timedOut = true
			break
		}
		a.Step(dt)
	}

	stats := a.finishRound(timedOut)
	if err := a.flushArchive(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// Run plays maxRounds rounds (0 = until ctx is cancelled) and flushes output.
// A cancelled context ends the run without error.
func (a *Arena) Run(ctx context.Context, maxRounds int) error {
	maxDuration := time.Duration(a.config().Arena.MaxRoundSec * float64(time.Second))

	for maxRounds <= 0 || a.round < maxRounds {
		if _, err := a.RunRound(ctx, maxDuration); err != nil {
			if ctx.Err() != nil {
				slog.Info("run_cancelled", "round", a.round, "reason", err)
				break
			}
			return err
		}
	}

	return a.writeFinalOutputs()
}

// Close releases output files.
func (a *Arena) Close() error {
	return a.outputManager.Close()
}

// elapsed returns the simulated time of the current round.
func (a *Arena) elapsed() time.Duration {
	return time.Duration(float64(a.roundTicks) * a.config().Arena.DT * float64(time.Second))
}

// Round returns the number of the current (or last) round, starting at 1.
func (a *Arena) Round() int {
	return a.round
}

// ShooterPool exposes the shooter gene pool for inspection.
func (a *Arena) ShooterPool() *genepool.GenePool[*neural.Brain] {
	return a.shooterPool
}

// MobPool exposes the mob gene pool for inspection.
func (a *Arena) MobPool() *genepool.GenePool[*neural.MobBrain] {
	return a.mobPool
}

// HallOfFame returns the best shooters seen so far.
func (a *Arena) HallOfFame() *telemetry.HallOfFame {
	return a.hallOfFame
}

// Counts returns the number of live shooters and mobs.
func (a *Arena) Counts() (shooters, mobs int) {
	return a.numShooters, a.numMobs
}
