package game

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/laststand/components"
	"github.com/pthm-cable/laststand/neural"
	"github.com/pthm-cable/laststand/storage"
	"github.com/pthm-cable/laststand/systems"
	"github.com/pthm-cable/laststand/telemetry"
)

// startRound clears the arena and spawns the round's shooters.
// A single shooter starts at the center; several are spread on a ring inside
// the zone where mobs never appear.
func (a *Arena) startRound() {
	cfg := a.config()

	a.clearWorld()
	a.round++
	a.roundTicks = 0
	a.mobVirility = 0

	n := cfg.Arena.Shooters
	ringRadius := cfg.Mob.SafeZone * math.Min(cfg.Arena.Width, cfg.Arena.Height) / 2
	for i := 0; i < n; i++ {
		var x, y float64
		if n > 1 {
			angle := 2 * math.Pi * float64(i) / float64(n)
			x, y = ringRadius*math.Cos(angle), ringRadius*math.Sin(angle)
		}
		a.spawnShooter(x, y, systems.NormalizeAngle(a.rng.Float64()*2*math.Pi))
	}

	slog.Debug("round_start", "round", a.round, "shooters", n)
}

// spawnShooter creates a shooter with a genotype drawn from the shooter pool.
func (a *Arena) spawnShooter(x, y, heading float64) ecs.Entity {
	cfg := a.config()

	id := a.nextID
	a.nextID++

	brain := a.shooterPool.Spawn(a.rng)
	a.shooterBrains[id] = brain

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	rot := components.Rotation{Heading: heading}
	body := components.Body{Radius: cfg.Shooter.Radius}
	shooter := components.Shooter{ID: id, Life: cfg.Shooter.Life, Aim: heading}

	entity := a.shooterMapper.NewEntity(&pos, &vel, &rot, &body, &shooter)
	a.numShooters++
	a.lifetimeTracker.Register(id, a.tick, components.KindShooter)

	if cfg.Telemetry.DotExport {
		telemetry.ExportGenotype(a.outputManager.Dir(), "shooter", brain.Network)
	}

	return entity
}

// spawnMob creates a mob with a genotype drawn from the mob pool.
func (a *Arena) spawnMob(x, y, heading float64) ecs.Entity {
	cfg := a.config()

	id := a.nextID
	a.nextID++

	brain := a.mobPool.Spawn(a.rng)
	a.mobBrains[id] = brain

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	rot := components.Rotation{Heading: heading}
	body := components.Body{Radius: cfg.Mob.Radius}
	mob := components.Mob{ID: id}

	entity := a.mobMapper.NewEntity(&pos, &vel, &rot, &body, &mob)
	a.numMobs++
	a.lifetimeTracker.Register(id, a.tick, components.KindMob)
	a.collector.RecordMobSpawn()

	return entity
}

// cleanupDead removes dead shooters, dead mobs, and spent bullets, preserving
// the genotypes of the dead.
func (a *Arena) cleanupDead() {
	// First pass: collect dead entities (must complete before modifying)
	type deadInfo struct {
		entity ecs.Entity
		id     uint32
		age    float64
	}
	var deadShooters, deadMobs []deadInfo
	var spentBullets []ecs.Entity

	shooterQuery := a.shooterFilter.Query()
	for shooterQuery.Next() {
		_, _, _, _, s := shooterQuery.Get()
		if !s.Alive() {
			deadShooters = append(deadShooters, deadInfo{entity: shooterQuery.Entity(), id: s.ID, age: s.Age})
		}
	}

	mobQuery := a.mobFilter.Query()
	for mobQuery.Next() {
		_, _, _, _, m := mobQuery.Get()
		if m.Dead {
			deadMobs = append(deadMobs, deadInfo{entity: mobQuery.Entity(), id: m.ID, age: m.Age})
		}
	}

	bulletQuery := a.bulletFilter.Query()
	for bulletQuery.Next() {
		_, _, _, b := bulletQuery.Get()
		if b.Spent {
			spentBullets = append(spentBullets, bulletQuery.Entity())
		}
	}

	// Second pass: remove entities (query iteration complete)
	for _, dead := range deadShooters {
		a.collector.RecordShooterDeath(dead.age)
		a.preserveShooter(dead.id, dead.age)
		a.world.RemoveEntity(dead.entity)
		a.numShooters--
		slog.Debug("shooter_died", "round", a.round, "id", dead.id, "survived", dead.age)
	}
	for _, dead := range deadMobs {
		a.collector.RecordMobDeath(dead.age)
		a.preserveMob(dead.id, dead.age)
		a.world.RemoveEntity(dead.entity)
		a.numMobs--
	}
	for _, e := range spentBullets {
		a.world.RemoveEntity(e)
	}
}

// retireSurvivors preserves every shooter and mob still alive at round end.
func (a *Arena) retireSurvivors() {
	type liveInfo struct {
		id  uint32
		age float64
	}
	var shooters, mobs []liveInfo

	shooterQuery := a.shooterFilter.Query()
	for shooterQuery.Next() {
		_, _, _, _, s := shooterQuery.Get()
		if s.Alive() {
			shooters = append(shooters, liveInfo{id: s.ID, age: s.Age})
		}
	}
	mobQuery := a.mobFilter.Query()
	for mobQuery.Next() {
		_, _, _, _, m := mobQuery.Get()
		if !m.Dead {
			mobs = append(mobs, liveInfo{id: m.ID, age: m.Age})
		}
	}

	for _, s := range shooters {
		a.collector.RecordShooterRetired(s.age)
		a.preserveShooter(s.id, s.age)
	}
	for _, m := range mobs {
		a.collector.RecordMobDeath(m.age)
		a.preserveMob(m.id, m.age)
	}
}

// clearWorld removes every entity and forgets their brains.
// Genotypes must already have been preserved.
func (a *Arena) clearWorld() {
	var toRemove []ecs.Entity

	shooterQuery := a.shooterFilter.Query()
	for shooterQuery.Next() {
		toRemove = append(toRemove, shooterQuery.Entity())
	}
	mobQuery := a.mobFilter.Query()
	for mobQuery.Next() {
		toRemove = append(toRemove, mobQuery.Entity())
	}
	bulletQuery := a.bulletFilter.Query()
	for bulletQuery.Next() {
		toRemove = append(toRemove, bulletQuery.Entity())
	}

	for _, e := range toRemove {
		a.world.RemoveEntity(e)
	}

	clear(a.shooterBrains)
	clear(a.mobBrains)
	a.lifetimeTracker.Reset()
	a.numShooters = 0
	a.numMobs = 0
}

// preserveShooter reports a shooter's fitness (seconds survived) to its pool.
func (a *Arena) preserveShooter(id uint32, fitness float64) {
	brain, ok := a.shooterBrains[id]
	if !ok {
		return
	}
	delete(a.shooterBrains, id)
	a.lifetimeTracker.UpdateSurvivalTime(id, a.tick, a.config().Arena.DT)
	stats := a.lifetimeTracker.Remove(id)

	cutover := a.shooterPool.Preserve(brain, fitness)
	a.recordCutover("shooter", a.shooterPool.Generation(), cutover)

	entry := telemetry.HallEntry{
		Network:  brain.Network.Clone(),
		Fitness:  fitness,
		EntityID: id,
		Round:    a.round,
	}
	if stats != nil {
		entry.ShotsFired = stats.ShotsFired
		entry.Hits = stats.Hits
		slog.Debug("shooter_preserved", "id", id, "fitness", fitness, "tracked_sec", stats.SurvivalTimeSec, "hits", stats.Hits)
	}
	a.hallOfFame.Consider(entry)
	a.queueArchive(components.KindShooter, id, fitness, brain.Network)
}

// preserveMob reports a mob's fitness (seconds alive plus contact bonus) to its
// pool. Contacts come from the lifetime tracker.
func (a *Arena) preserveMob(id uint32, age float64) {
	brain, ok := a.mobBrains[id]
	if !ok {
		return
	}
	delete(a.mobBrains, id)

	var contacts int
	if stats := a.lifetimeTracker.Remove(id); stats != nil {
		contacts = stats.Contacts
	}
	fitness := age + float64(contacts)*a.config().Mob.ContactBonus
	cutover := a.mobPool.Preserve(brain, fitness)
	a.recordCutover("mob", a.mobPool.Generation(), cutover)
	a.queueArchive(components.KindMob, id, fitness, brain.Network)
}

// queueArchive holds a preserved genotype until the round's archive flush.
func (a *Arena) queueArchive(kind components.Kind, id uint32, fitness float64, net neural.Network) {
	if a.archive == nil {
		return
	}
	a.pendingArchive = append(a.pendingArchive, storage.GenotypeRecord{
		Kind:     kind.String(),
		Round:    a.round,
		EntityID: id,
		Fitness:  fitness,
		Network:  net,
	})
}
