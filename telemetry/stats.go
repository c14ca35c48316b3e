package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/laststand/genepool"
)

// RoundStats holds aggregated statistics for one round.
type RoundStats struct {
	Round      int     `csv:"round"`
	Ticks      int     `csv:"ticks"`
	SimTimeSec float64 `csv:"sim_time"`
	TimedOut   bool    `csv:"timed_out"`

	// Events during the round
	MobsSpawned   int     `csv:"mobs_spawned"`
	MobsShot      int     `csv:"mobs_shot"`
	MobContacts   int     `csv:"mob_contacts"`
	ShotsFired    int     `csv:"shots_fired"`
	Accuracy      float64 `csv:"accuracy"`
	ShooterDeaths int     `csv:"shooter_deaths"`

	// Shooter survival (fitness) distribution
	SurvivalMean float64 `csv:"survival_mean"`
	SurvivalStd  float64 `csv:"survival_std"`
	SurvivalMax  float64 `csv:"survival_max"`

	// Mob lifetime distribution
	MobAgeMean float64 `csv:"mob_age_mean"`
	MobAgeP50  float64 `csv:"mob_age_p50"`
	MobAgeP90  float64 `csv:"mob_age_p90"`

	// Gene pools after the round
	ShooterPoolSize   int `csv:"shooter_pool"`
	ShooterGeneration int `csv:"shooter_generation"`
	MobPoolSize       int `csv:"mob_pool"`
	MobGeneration     int `csv:"mob_generation"`
}

// GenerationRecord is one gene pool cutover, flattened for generations.csv.
type GenerationRecord struct {
	Round          int     `csv:"round"`
	Pool           string  `csv:"pool"`
	Generation     int     `csv:"generation"`
	Candidates     int     `csv:"candidates"`
	Average        float64 `csv:"average"`
	Survivors      int     `csv:"survivors"`
	Fallback       bool    `csv:"fallback"`
	GenerationSize int     `csv:"generation_size"`
	PoolSize       int     `csv:"pool_size"`
}

// NewGenerationRecord flattens a cutover report.
func NewGenerationRecord(round int, pool string, generation int, c genepool.Cutover) GenerationRecord {
	return GenerationRecord{
		Round:          round,
		Pool:           pool,
		Generation:     generation,
		Candidates:     c.Candidates,
		Average:        c.Average,
		Survivors:      c.Survivors,
		Fallback:       c.Fallback,
		GenerationSize: c.GenerationSize,
		PoolSize:       c.PoolSize,
	}
}

// Percentile returns the p-th quantile of a sorted slice using gonum's
// linear interpolation of the empirical CDF. p is clamped to [0, 1].
// Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if !(p > 0) {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// ComputeSurvivalStats returns mean, population standard deviation, and max.
func ComputeSurvivalStats(values []float64) (mean, std, max float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	mean = stat.Mean(values, nil)
	// stat.Variance is the sample variance; rescale to population.
	if n := float64(len(values)); n > 1 {
		std = math.Sqrt(stat.Variance(values, nil) * (n - 1) / n)
	}
	return mean, std, floats.Max(values)
}

// ComputeAgeStats returns mean and the 50th/90th percentiles.
func ComputeAgeStats(values []float64) (mean, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return mean, Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// LogValue implements slog.LogValuer for structured logging.
func (s RoundStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("round", s.Round),
		slog.Int("ticks", s.Ticks),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Bool("timed_out", s.TimedOut),
		slog.Int("mobs_spawned", s.MobsSpawned),
		slog.Int("mobs_shot", s.MobsShot),
		slog.Int("mob_contacts", s.MobContacts),
		slog.Int("shots_fired", s.ShotsFired),
		slog.Float64("accuracy", s.Accuracy),
		slog.Float64("survival_mean", s.SurvivalMean),
		slog.Float64("survival_max", s.SurvivalMax),
		slog.Float64("mob_age_mean", s.MobAgeMean),
		slog.Int("shooter_generation", s.ShooterGeneration),
		slog.Int("mob_generation", s.MobGeneration),
	)
}

// LogStats logs the round stats using slog.
func (s RoundStats) LogStats() {
	slog.Info("round_stats",
		"round", s.Round,
		"sim_time", s.SimTimeSec,
		"timed_out", s.TimedOut,
		"mobs_spawned", s.MobsSpawned,
		"mobs_shot", s.MobsShot,
		"mob_contacts", s.MobContacts,
		"shots_fired", s.ShotsFired,
		"accuracy", s.Accuracy,
		"survival_mean", s.SurvivalMean,
		"survival_std", s.SurvivalStd,
		"survival_max", s.SurvivalMax,
		"mob_age_mean", s.MobAgeMean,
		"mob_age_p50", s.MobAgeP50,
		"mob_age_p90", s.MobAgeP90,
		"shooter_pool", s.ShooterPoolSize,
		"shooter_generation", s.ShooterGeneration,
		"mob_pool", s.MobPoolSize,
		"mob_generation", s.MobGeneration,
	)
}
