// Package telemetry provides round statistics, bookmarking, and experiment output.
package telemetry

// Collector accumulates events within a round and produces RoundStats.
type Collector struct {
	dt float64

	mobsSpawned   int
	mobsShot      int
	mobContacts   int
	shotsFired    int
	shooterDeaths int

	survivalTimes []float64 // seconds survived per dead shooter
	mobAges       []float64 // seconds alive per dead mob
}

// NewCollector creates a new stats collector.
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(dt float64) *Collector {
	return &Collector{dt: dt}
}

// RecordMobSpawn records a mob arrival.
func (c *Collector) RecordMobSpawn() {
	c.mobsSpawned++
}

// RecordShot records a bullet leaving a shooter's weapon.
func (c *Collector) RecordShot() {
	c.shotsFired++
}

// RecordMobShot records a mob killed by a bullet.
func (c *Collector) RecordMobShot() {
	c.mobsShot++
}

// RecordContact records a mob reaching a shooter.
func (c *Collector) RecordContact() {
	c.mobContacts++
}

// RecordShooterDeath records a shooter running out of lives.
func (c *Collector) RecordShooterDeath(survivalSec float64) {
	c.shooterDeaths++
	c.survivalTimes = append(c.survivalTimes, survivalSec)
}

// RecordShooterRetired records a shooter still alive when its round ended.
func (c *Collector) RecordShooterRetired(survivalSec float64) {
	c.survivalTimes = append(c.survivalTimes, survivalSec)
}

// RecordMobDeath records a mob leaving the arena, shot or spent.
func (c *Collector) RecordMobDeath(ageSec float64) {
	c.mobAges = append(c.mobAges, ageSec)
}

// PoolState holds gene pool sizes at round end.
type PoolState struct {
	ShooterPoolSize   int
	ShooterGeneration int
	MobPoolSize       int
	MobGeneration     int
}

// Flush produces RoundStats and resets counters for the next round.
// The caller must provide:
// - round: the 1-based round number
// - ticks: ticks simulated this round
// - timedOut: whether the round hit its duration limit
// - pools: gene pool state after the round's preserves
func (c *Collector) Flush(round, ticks int, timedOut bool, pools PoolState) RoundStats {
	var accuracy float64
	if c.shotsFired > 0 {
		accuracy = float64(c.mobsShot) / float64(c.shotsFired)
	}

	survMean, survStd, survMax := ComputeSurvivalStats(c.survivalTimes)
	ageMean, ageP50, ageP90 := ComputeAgeStats(c.mobAges)

	stats := RoundStats{
		Round:      round,
		Ticks:      ticks,
		SimTimeSec: float64(ticks) * c.dt,
		TimedOut:   timedOut,

		MobsSpawned:   c.mobsSpawned,
		MobsShot:      c.mobsShot,
		MobContacts:   c.mobContacts,
		ShotsFired:    c.shotsFired,
		Accuracy:      accuracy,
		ShooterDeaths: c.shooterDeaths,

		SurvivalMean: survMean,
		SurvivalStd:  survStd,
		SurvivalMax:  survMax,

		MobAgeMean: ageMean,
		MobAgeP50:  ageP50,
		MobAgeP90:  ageP90,

		ShooterPoolSize:   pools.ShooterPoolSize,
		ShooterGeneration: pools.ShooterGeneration,
		MobPoolSize:       pools.MobPoolSize,
		MobGeneration:     pools.MobGeneration,
	}

	// Reset for next round
	c.mobsSpawned = 0
	c.mobsShot = 0
	c.mobContacts = 0
	c.shotsFired = 0
	c.shooterDeaths = 0
	c.survivalTimes = c.survivalTimes[:0]
	c.mobAges = c.mobAges[:0]

	return stats
}
