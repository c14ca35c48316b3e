package game

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/laststand/components"
	"github.com/pthm-cable/laststand/neural"
	"github.com/pthm-cable/laststand/systems"
)

// pendingBullet is a shot fired during a query, created once iteration ends.
type pendingBullet struct {
	owner uint32
	x, y  float64
	aim   float64
}

// arrivalRate returns the mob arrival rate, in mobs per second, after
// virility seconds of growth.
func arrivalRate(baseRate, doublingPeriod, virility float64) float64 {
	return baseRate * math.Exp2(virility/doublingPeriod)
}

// spawnArrivals draws this tick's mob arrivals from a Poisson process whose
// rate doubles every doubling period. Arrivals that land in the central safe
// zone are dropped.
func (a *Arena) spawnArrivals(dt float64) {
	cfg := a.config()

	a.mobVirility += dt
	lambda := arrivalRate(cfg.Mob.BaseRate, cfg.Mob.DoublingPeriod, a.mobVirility) * dt
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return
	}

	count := int(distuv.Poisson{Lambda: lambda, Src: a.rng}.Rand())
	for i := 0; i < count && a.numMobs < cfg.Mob.MaxAlive; i++ {
		x, y, ok := a.mobCandidate()
		if !ok {
			continue
		}
		// Mobs enter facing the center.
		a.spawnMob(x, y, math.Atan2(-y, -x))
	}
}

// mobCandidate draws a uniform arena position and reports whether it lies
// outside the safe zone.
func (a *Arena) mobCandidate() (x, y float64, ok bool) {
	cfg := a.config()
	x = (a.rng.Float64()*2 - 1) * cfg.Derived.HalfWidth
	y = (a.rng.Float64()*2 - 1) * cfg.Derived.HalfHeight
	ok = math.Abs(x) > cfg.Mob.SafeZone*cfg.Arena.Width || math.Abs(y) > cfg.Mob.SafeZone*cfg.Arena.Height
	return x, y, ok
}

// thinkShooters feeds every shooter's brain and applies its decision.
func (a *Arena) thinkShooters(dt float64) {
	cfg := a.config()
	mobs := a.livePositions(false)

	query := a.shooterFilter.Query()
	for query.Next() {
		pos, vel, rot, _, s := query.Get()
		if !s.Alive() {
			continue
		}
		brain, ok := a.shooterBrains[s.ID]
		if !ok {
			continue
		}

		var bearing float64
		if target, found := nearest(*pos, mobs); found {
			bearing = systems.RelativeBearing(rot.Heading, pos.BearingTo(target)) / math.Pi
		}

		out := brain.Process(neural.Inputs{RelativeBearing: bearing, TimeSurvived: s.Age})

		rot.Heading = systems.NormalizeAngle(rot.Heading + systems.Clamp(out.TurnRate, -1, 1)*cfg.Shooter.RotationSpeed*dt)
		s.Aim = systems.NormalizeAngle(rot.Heading + out.AimBearing*math.Pi)
		s.Firing = out.Fire
		applyAdvance(vel, rot.Heading, out.Advance, cfg.Shooter.Speed)
	}
}

// thinkMobs feeds every mob's brain and applies its decision.
func (a *Arena) thinkMobs(dt float64) {
	cfg := a.config()
	shooters := a.livePositions(true)

	query := a.mobFilter.Query()
	for query.Next() {
		pos, vel, rot, _, m := query.Get()
		if m.Dead {
			continue
		}
		brain, ok := a.mobBrains[m.ID]
		if !ok {
			continue
		}

		in := neural.MobInputs{}
		if target, found := nearest(*pos, shooters); found {
			in.RelativeBearing = systems.RelativeBearing(rot.Heading, pos.BearingTo(target)) / math.Pi
			in.Distance = math.Sqrt(pos.DistanceSq(target)) / cfg.Arena.Width
		}

		out := brain.Process(in)
		rot.Heading = systems.NormalizeAngle(rot.Heading + out.TurnRate*cfg.Mob.RotationSpeed*dt)
		applyAdvance(vel, rot.Heading, out.Advance, cfg.Mob.Speed)
	}
}

func applyAdvance(vel *components.Velocity, heading float64, advance bool, speed float64) {
	if !advance {
		vel.X, vel.Y = 0, 0
		return
	}
	dx, dy := systems.Heading(heading)
	vel.X, vel.Y = dx*speed, dy*speed
}

// livePositions snapshots the positions of live shooters or mobs.
func (a *Arena) livePositions(shooters bool) []components.Position {
	var out []components.Position
	if shooters {
		query := a.shooterFilter.Query()
		for query.Next() {
			pos, _, _, _, s := query.Get()
			if s.Alive() {
				out = append(out, *pos)
			}
		}
		return out
	}
	query := a.mobFilter.Query()
	for query.Next() {
		pos, _, _, _, m := query.Get()
		if !m.Dead {
			out = append(out, *pos)
		}
	}
	return out
}

// nearest returns the candidate closest to from.
func nearest(from components.Position, candidates []components.Position) (components.Position, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range candidates {
		if d := from.DistanceSq(c); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return components.Position{}, false
	}
	return candidates[best], true
}

// integrateMotion moves every entity. Shooters and mobs are held inside the
// arena; bullets leaving it are spent.
func (a *Arena) integrateMotion(dt float64) {
	cfg := a.config()
	hw, hh := cfg.Derived.HalfWidth, cfg.Derived.HalfHeight

	shooterQuery := a.shooterFilter.Query()
	for shooterQuery.Next() {
		pos, vel, _, body, s := shooterQuery.Get()
		pos.X = systems.Clamp(pos.X+vel.X*dt, -hw+body.Radius, hw-body.Radius)
		pos.Y = systems.Clamp(pos.Y+vel.Y*dt, -hh+body.Radius, hh-body.Radius)
		s.Age += dt
	}

	mobQuery := a.mobFilter.Query()
	for mobQuery.Next() {
		pos, vel, _, body, m := mobQuery.Get()
		pos.X = systems.Clamp(pos.X+vel.X*dt, -hw+body.Radius, hw-body.Radius)
		pos.Y = systems.Clamp(pos.Y+vel.Y*dt, -hh+body.Radius, hh-body.Radius)
		m.Age += dt
	}

	bulletQuery := a.bulletFilter.Query()
	for bulletQuery.Next() {
		pos, vel, _, b := bulletQuery.Get()
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
		b.TTL -= dt
		if b.TTL <= 0 || math.Abs(pos.X) > hw || math.Abs(pos.Y) > hh {
			b.Spent = true
		}
	}
}

// updateWeapons ticks cooldowns and fires bullets along each shooter's aim.
func (a *Arena) updateWeapons(dt float64) {
	cfg := a.config()
	a.pendingBullets = a.pendingBullets[:0]

	query := a.shooterFilter.Query()
	for query.Next() {
		pos, _, _, body, s := query.Get()
		if !s.Alive() {
			continue
		}
		s.Cooldown = math.Max(0, s.Cooldown-dt)
		if !s.Firing || s.Cooldown > 0 {
			continue
		}

		dx, dy := systems.Heading(s.Aim)
		a.pendingBullets = append(a.pendingBullets, pendingBullet{
			owner: s.ID,
			x:     pos.X + dx*body.Radius,
			y:     pos.Y + dy*body.Radius,
			aim:   s.Aim,
		})
		s.Cooldown = cfg.Shooter.WeaponCooldown
	}

	a.spawnPendingBullets()
}

// spawnPendingBullets creates the bullets queued during the weapons pass.
func (a *Arena) spawnPendingBullets() {
	cfg := a.config()
	for _, pb := range a.pendingBullets {
		dx, dy := systems.Heading(pb.aim)
		pos := components.Position{X: pb.x, Y: pb.y}
		vel := components.Velocity{X: dx * cfg.Shooter.BulletSpeed, Y: dy * cfg.Shooter.BulletSpeed}
		body := components.Body{Radius: cfg.Shooter.BulletRadius}
		bullet := components.Bullet{Owner: pb.owner, TTL: cfg.Shooter.BulletLifetime}
		a.bulletMapper.NewEntity(&pos, &vel, &body, &bullet)

		a.collector.RecordShot()
		a.lifetimeTracker.RecordShot(pb.owner)
	}
}

// resolveHits applies bullet hits on mobs, then mob contacts on shooters.
// Each bullet kills at most one mob; a mob that reaches a shooter costs it one
// life and is spent.
func (a *Arena) resolveHits() {
	cfg := a.config()
	a.rebuildGrids()

	bulletQuery := a.bulletFilter.Query()
	for bulletQuery.Next() {
		pos, _, body, b := bulletQuery.Get()
		if b.Spent {
			continue
		}

		a.neighbors = a.mobGrid.QueryRadiusInto(a.neighbors[:0], pos.X, pos.Y, body.Radius+cfg.Mob.Radius, a.posMap)
		if hit := a.closestLive(a.neighbors, func(e ecs.Entity) bool { return !a.mobMap.Get(e).Dead }); hit != nil {
			mob := a.mobMap.Get(hit.E)
			mob.Dead = true
			b.Spent = true
			a.collector.RecordMobShot()
			a.lifetimeTracker.RecordHit(b.Owner)
		}
	}

	mobQuery := a.mobFilter.Query()
	for mobQuery.Next() {
		pos, _, _, body, m := mobQuery.Get()
		if m.Dead {
			continue
		}

		a.neighbors = a.shooterGrid.QueryRadiusInto(a.neighbors[:0], pos.X, pos.Y, body.Radius+cfg.Shooter.Radius, a.posMap)
		if hit := a.closestLive(a.neighbors, func(e ecs.Entity) bool { return a.shooterMap.Get(e).Alive() }); hit != nil {
			shooter := a.shooterMap.Get(hit.E)
			shooter.Life--
			m.Dead = true
			a.collector.RecordContact()
			a.lifetimeTracker.RecordContact(m.ID)
		}
	}
}

// rebuildGrids re-indexes live mobs and shooters.
func (a *Arena) rebuildGrids() {
	a.mobGrid.Clear()
	mobQuery := a.mobFilter.Query()
	for mobQuery.Next() {
		pos, _, _, _, m := mobQuery.Get()
		if !m.Dead {
			a.mobGrid.Insert(mobQuery.Entity(), pos.X, pos.Y)
		}
	}

	a.shooterGrid.Clear()
	shooterQuery := a.shooterFilter.Query()
	for shooterQuery.Next() {
		pos, _, _, _, s := shooterQuery.Get()
		if s.Alive() {
			a.shooterGrid.Insert(shooterQuery.Entity(), pos.X, pos.Y)
		}
	}
}

// closestLive returns the nearest neighbor accepted by live, or nil.
func (a *Arena) closestLive(neighbors []systems.Neighbor, live func(ecs.Entity) bool) *systems.Neighbor {
	var best *systems.Neighbor
	for i := range neighbors {
		n := &neighbors[i]
		if !live(n.E) {
			continue
		}
		if best == nil || n.DistSq < best.DistSq {
			best = n
		}
	}
	return best
}
