// Package genepool keeps the breeding population of genotypes and their fitness,
// spawns mutated offspring and prunes the pool generation by generation.
//
// A GenePool is not safe for concurrent use; callers serialize Spawn and Preserve.
package genepool

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Genotype is a heritable policy that can be copied and mutated by value.
// Mutate must return a new genotype and leave the receiver untouched.
type Genotype[G any] interface {
	Clone() G
	Mutate(strength float64, rng *rand.Rand) G
}

// Entry pairs a preserved genotype with its fitness.
type Entry[G any] struct {
	Genotype G
	Fitness  float64
}

// Config holds pool parameters.
type Config struct {
	Name           string  `yaml:"-"`
	EdenFitness    float64 `yaml:"eden_fitness"`    // breeding weight of the seed genotype
	GenerationSize int     `yaml:"generation_size"` // initial generation size
	SpawnStrength  float64 `yaml:"spawn_strength"`  // mutation strength applied to offspring
}

// DefaultConfig returns the parameters of the original eden pool.
func DefaultConfig() Config {
	return Config{
		Name:           "pool",
		EdenFitness:    10.0,
		GenerationSize: 3,
		SpawnStrength:  0.15,
	}
}

// Validate reports whether the config can build a pool.
func (c Config) Validate() error {
	if c.GenerationSize < 1 {
		return fmt.Errorf("generation_size must be at least 1, got %d", c.GenerationSize)
	}
	if !validFitness(c.EdenFitness) {
		return fmt.Errorf("eden_fitness must be finite and non-negative, got %v", c.EdenFitness)
	}
	if math.IsNaN(c.SpawnStrength) || c.SpawnStrength < 0 || c.SpawnStrength > 1 {
		return fmt.Errorf("spawn_strength must be in [0, 1], got %v", c.SpawnStrength)
	}
	return nil
}

// Cutover describes the outcome of a Preserve call.
type Cutover struct {
	Happened       bool
	Candidates     int
	Average        float64
	Survivors      int
	Fallback       bool // fewer than two survivors, the two newest were kept
	GenerationSize int
	PoolSize       int
}

// GenePool is an ordered record of (genotype, fitness) pairs, oldest first.
type GenePool[G Genotype[G]] struct {
	name           string
	entries        []Entry[G]
	generationSize int
	spawnStrength  float64
	generation     int
}

// New creates an empty pool. It panics on an invalid config.
func New[G Genotype[G]](cfg Config) *GenePool[G] {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("genepool: %v", err))
	}
	return &GenePool[G]{
		name:           cfg.Name,
		generationSize: cfg.GenerationSize,
		spawnStrength:  cfg.SpawnStrength,
	}
}

// NewEden creates a pool holding a single seed genotype. The seed's high
// fitness makes early spawns descend from it before alternatives dilute the pool.
func NewEden[G Genotype[G]](seed G, cfg Config) *GenePool[G] {
	p := New[G](cfg)
	p.entries = append(p.entries, Entry[G]{Genotype: seed, Fitness: cfg.EdenFitness})
	return p
}

// Len returns the number of preserved genotypes.
func (p *GenePool[G]) Len() int {
	return len(p.entries)
}

// GenerationSize returns the current generation size.
func (p *GenePool[G]) GenerationSize() int {
	return p.generationSize
}

// Generation returns how many cutovers have happened.
func (p *GenePool[G]) Generation() int {
	return p.generation
}

// Name returns the pool's name used in logs.
func (p *GenePool[G]) Name() string {
	return p.name
}

// Entries returns a deep copy of the pool contents, oldest first.
func (p *GenePool[G]) Entries() []Entry[G] {
	out := make([]Entry[G], len(p.entries))
	for i, e := range p.entries {
		out[i] = Entry[G]{Genotype: e.Genotype.Clone(), Fitness: e.Fitness}
	}
	return out
}

// Fitnesses returns the fitness values in pool order.
func (p *GenePool[G]) Fitnesses() []float64 {
	out := make([]float64, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Fitness
	}
	return out
}

// Spawn picks a parent with probability proportional to its fitness and
// returns a mutated copy of it. The pool itself is not changed.
func (p *GenePool[G]) Spawn(rng *rand.Rand) G {
	if rng == nil {
		panic("genepool: spawn requires a random source")
	}
	if len(p.entries) == 0 {
		panic(fmt.Sprintf("genepool: spawn from empty pool %q", p.name))
	}
	index := p.pickParent(rng)
	slog.Debug("spawn_offspring", "pool", p.name, "parent", index, "fitness", p.entries[index].Fitness)
	return p.entries[index].Genotype.Mutate(p.spawnStrength, rng)
}

// pickParent samples an index weighted by fitness. A pool where every
// fitness is zero falls back to uniform sampling.
func (p *GenePool[G]) pickParent(rng *rand.Rand) int {
	weights := p.Fitnesses()
	if floats.Sum(weights) <= 0 {
		slog.Warn("spawn_uniform_fallback", "pool", p.name, "size", len(weights))
		return rng.IntN(len(weights))
	}
	return int(distuv.NewCategorical(weights, rng).Rand())
}

// Preserve appends a genotype with its fitness. Once the pool grows past twice
// the generation size, every entry but the oldest is a candidate, and the
// candidates scoring at least their average become the new generation. If
// fewer than two qualify, the two newest candidates are kept instead, newest
// first, and the generation size is left alone.
//
// Negative or non-finite fitness is a caller bug and panics.
func (p *GenePool[G]) Preserve(genotype G, fitness float64) Cutover {
	if !validFitness(fitness) {
		panic(fmt.Sprintf("genepool: invalid fitness %v", fitness))
	}
	slog.Debug("preserve", "pool", p.name, "index", len(p.entries), "fitness", fitness)
	p.entries = append(p.entries, Entry[G]{Genotype: genotype, Fitness: fitness})

	if len(p.entries) <= 2*p.generationSize {
		return Cutover{GenerationSize: p.generationSize, PoolSize: len(p.entries)}
	}

	// The oldest had a go already.
	candidates := p.entries[1:]
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Fitness
	}
	average := stat.Mean(scores, nil)

	survivors := make([]Entry[G], 0, len(candidates))
	for _, c := range candidates {
		if c.Fitness >= average {
			survivors = append(survivors, c)
		}
	}

	report := Cutover{
		Happened:   true,
		Candidates: len(candidates),
		Average:    average,
		Survivors:  len(survivors),
	}

	if len(survivors) < 2 {
		last := len(candidates) - 1
		p.entries = []Entry[G]{candidates[last], candidates[last-1]}
		report.Fallback = true
		slog.Info("genepool_reshuffle", "pool", p.name, "average", average, "survivors", len(survivors))
	} else {
		p.entries = survivors
		p.generationSize = len(survivors)
	}
	p.generation++

	report.GenerationSize = p.generationSize
	report.PoolSize = len(p.entries)
	slog.Info("genepool_cutover",
		"pool", p.name,
		"generation", p.generation,
		"average", average,
		"breeders", len(p.entries),
		"generation_size", p.generationSize,
	)
	return report
}

func validFitness(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
