package game

import (
	"context"
	"log/slog"

	"github.com/pthm-cable/laststand/genepool"
	"github.com/pthm-cable/laststand/telemetry"
)

// finishRound preserves the survivors, clears the arena, and emits the
// round's statistics.
func (a *Arena) finishRound(timedOut bool) telemetry.RoundStats {
	a.retireSurvivors()
	a.clearWorld()

	stats := a.collector.Flush(a.round, a.roundTicks, timedOut, telemetry.PoolState{
		ShooterPoolSize:   a.shooterPool.Len(),
		ShooterGeneration: a.shooterPool.Generation(),
		MobPoolSize:       a.mobPool.Len(),
		MobGeneration:     a.mobPool.Generation(),
	})
	perf := a.perfCollector.Stats()

	if a.statsCallback != nil {
		a.statsCallback(stats)
	}
	if a.logStats {
		stats.LogStats()
		perf.LogStats()
	}

	if err := a.outputManager.WriteRound(stats); err != nil {
		slog.Error("failed to write round", "round", a.round, "error", err)
	}
	if err := a.outputManager.WritePerf(perf, a.round); err != nil {
		slog.Error("failed to write perf", "round", a.round, "error", err)
	}

	for _, b := range a.bookmarkDetector.Check(stats) {
		b.LogBookmark()
		if err := a.outputManager.WriteBookmark(b); err != nil {
			slog.Error("failed to write bookmark", "round", a.round, "error", err)
		}
	}

	slog.Info("round_over",
		"round", a.round,
		"sim_time", stats.SimTimeSec,
		"timed_out", timedOut,
		"mobs_shot", stats.MobsShot,
		"survival_max", stats.SurvivalMax,
		"shooter_generation", stats.ShooterGeneration,
		"mob_generation", stats.MobGeneration,
	)

	return stats
}

// abandonRound preserves the live entities of a cancelled round and archives
// the round's batch outside the cancelled context. Its partial counters are
// discarded.
func (a *Arena) abandonRound(ctx context.Context) {
	a.retireSurvivors()
	a.clearWorld()
	a.collector.Flush(a.round, a.roundTicks, false, telemetry.PoolState{})

	queued := len(a.pendingArchive)
	if err := a.flushArchive(context.WithoutCancel(ctx)); err != nil {
		slog.Error("archive_failed", "round", a.round, "dropped", queued, "error", err)
	}
	slog.Info("round_abandoned", "round", a.round, "ticks", a.roundTicks, "archived", queued)
}

// recordCutover writes a generations.csv row when a pool rolled over.
func (a *Arena) recordCutover(pool string, generation int, cut genepool.Cutover) {
	if !cut.Happened {
		return
	}
	slog.Debug("generation_cutover",
		"pool", pool,
		"generation", generation,
		"average", cut.Average,
		"survivors", cut.Survivors,
		"fallback", cut.Fallback,
	)
	if err := a.outputManager.WriteGeneration(telemetry.NewGenerationRecord(a.round, pool, generation, cut)); err != nil {
		slog.Error("failed to write generation", "pool", pool, "error", err)
	}
}

// flushArchive saves the round's preserved genotypes. Archive failures are
// logged and the round's batch is dropped; only cancellation is returned.
func (a *Arena) flushArchive(ctx context.Context) error {
	if a.archive == nil {
		return nil
	}
	batch := a.pendingArchive
	a.pendingArchive = a.pendingArchive[:0]

	for i, rec := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.archive.SaveGenotype(ctx, rec); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("archive_failed", "round", a.round, "dropped", len(batch)-i, "error", err)
			return nil
		}
	}
	return nil
}

// writeFinalOutputs writes the hall of fame once the run ends.
func (a *Arena) writeFinalOutputs() error {
	if err := a.outputManager.WriteHallOfFame(a.hallOfFame); err != nil {
		return err
	}
	slog.Info("run_complete",
		"rounds", a.round,
		"shooter_generation", a.shooterPool.Generation(),
		"mob_generation", a.mobPool.Generation(),
		"hall_of_fame_best", a.hallOfFame.TopFitness(),
	)
	return nil
}
