// Package components defines ECS components for the arena.
package components

// Kind identifies what an arena entity is.
type Kind uint8

const (
	KindShooter Kind = iota
	KindMob
	KindBullet
)

// String returns the lowercase name used in logs and archives.
func (k Kind) String() string {
	switch k {
	case KindShooter:
		return "shooter"
	case KindMob:
		return "mob"
	case KindBullet:
		return "bullet"
	default:
		return "unknown"
	}
}

// Shooter is the AI-controlled defender ("borg").
// Its brain lives outside the ECS, keyed by ID.
type Shooter struct {
	ID       uint32
	Life     int
	Age      float64 // seconds alive
	Aim      float64 // absolute weapon bearing, radians
	Firing   bool    // trigger held this tick
	Cooldown float64 // seconds until the weapon can fire again
}

// Alive reports whether the shooter still has lives left.
func (s *Shooter) Alive() bool {
	return s.Life > 0
}

// Mob is an evolved attacker walking toward the shooters.
type Mob struct {
	ID   uint32
	Age  float64
	Dead bool // shot or spent on contact
}

// Bullet is a projectile fired by a shooter.
type Bullet struct {
	Owner uint32  // shooter ID
	TTL   float64 // seconds until expiry
	Spent bool
}
