package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/laststand/config"
	"github.com/pthm-cable/laststand/game"
	"github.com/pthm-cable/laststand/telemetry"
)

// FitnessEvaluator runs headless arenas and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	rounds     int
	seeds      []uint64
	baseConfig *config.Config

	// Best run tracking
	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	lastQuality    float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, rounds int, seeds []uint64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		rounds:      rounds,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// scoredFraction is the trailing share of rounds that count toward fitness.
const scoredFraction = 0.5

// runResult holds the results from a single run.
type runResult struct {
	rounds     []telemetry.RoundStats // collected via StatsCallback each round
	hallOfFame *telemetry.HallOfFame
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness    float64
	quality    float64
	hallOfFame *telemetry.HallOfFame
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative late-run survival: shooters that learn lower it.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	// Mutation rates are process-wide, so every arena is built before any runs.
	arenas := make([]*game.Arena, len(fe.seeds))
	results := make([]*runResult, len(fe.seeds))
	for i, seed := range fe.seeds {
		result := &runResult{}
		arena, err := game.NewArena(cfg, game.Options{
			Seed: seed,
			StatsCallback: func(stats telemetry.RoundStats) {
				result.rounds = append(result.rounds, stats)
			},
		})
		if err != nil {
			slog.Warn("evaluation_rejected", "error", err)
			return math.Inf(1)
		}
		arenas[i] = arena
		results[i] = result
	}

	scored := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i := range arenas {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			fe.runArena(arenas[idx], results[idx])
			scored[idx] = seedResult{
				fitness:    fe.computeFitness(results[idx].rounds),
				quality:    computeQuality(results[idx].rounds),
				hallOfFame: results[idx].hallOfFame,
			}
		}(i)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedHallOfFame *telemetry.HallOfFame

	for _, r := range scored {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedHallOfFame = r.hallOfFame
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestHallOfFame = bestSeedHallOfFame
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runArena plays the configured number of rounds.
func (fe *FitnessEvaluator) runArena(arena *game.Arena, result *runResult) {
	defer arena.Close()

	maxDuration := roundLimit(fe.baseConfig)
	for i := 0; i < fe.rounds; i++ {
		if _, err := arena.RunRound(context.Background(), maxDuration); err != nil {
			slog.Warn("round_failed", "round", arena.Round(), "error", err)
			break
		}
	}
	result.hallOfFame = arena.HallOfFame()
}

// copyConfig returns a copy of the base config. Config holds only values.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(meanSurvival × (1.0 + 0.2 × quality)) over the scored rounds.
func (fe *FitnessEvaluator) computeFitness(rounds []telemetry.RoundStats) float64 {
	scored := scoredRounds(rounds)
	if len(scored) == 0 {
		return 0
	}
	survival := make([]float64, len(scored))
	for i, r := range scored {
		survival[i] = r.SurvivalMean
	}
	return -(stat.Mean(survival, nil) * (1.0 + 0.2*computeQuality(rounds)))
}

// computeQuality computes defense quality ∈ [0, 1] as the mean accuracy over
// the scored rounds.
func computeQuality(rounds []telemetry.RoundStats) float64 {
	scored := scoredRounds(rounds)
	if len(scored) == 0 {
		return 0
	}
	accuracy := make([]float64, len(scored))
	for i, r := range scored {
		accuracy[i] = r.Accuracy
	}
	return clamp01(stat.Mean(accuracy, nil))
}

// scoredRounds returns the trailing rounds that count toward fitness.
func scoredRounds(rounds []telemetry.RoundStats) []telemetry.RoundStats {
	skip := int(float64(len(rounds)) * (1 - scoredFraction))
	return rounds[skip:]
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
