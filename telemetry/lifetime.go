package telemetry

import "github.com/pthm-cable/laststand/components"

// LifetimeStats tracks per-entity statistics over its lifetime.
type LifetimeStats struct {
	Kind            components.Kind
	BirthTick       int32
	SurvivalTimeSec float64

	// Shooters
	ShotsFired int
	Hits       int // mobs killed

	// Mobs
	Contacts int
}

// LifetimeTracker manages per-entity lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new entity.
func (lt *LifetimeTracker) Register(entityID uint32, birthTick int32, kind components.Kind) {
	lt.stats[entityID] = &LifetimeStats{
		Kind:      kind,
		BirthTick: birthTick,
	}
}

// Get returns the lifetime stats for an entity, or nil if not found.
func (lt *LifetimeTracker) Get(entityID uint32) *LifetimeStats {
	return lt.stats[entityID]
}

// Remove removes an entity's stats and returns them.
func (lt *LifetimeTracker) Remove(entityID uint32) *LifetimeStats {
	stats := lt.stats[entityID]
	delete(lt.stats, entityID)
	return stats
}

// RecordShot increments the shots fired count.
func (lt *LifetimeTracker) RecordShot(entityID uint32) {
	if s := lt.stats[entityID]; s != nil {
		s.ShotsFired++
	}
}

// RecordHit increments the mobs killed count.
func (lt *LifetimeTracker) RecordHit(entityID uint32) {
	if s := lt.stats[entityID]; s != nil {
		s.Hits++
	}
}

// RecordContact increments the shooters damaged count.
func (lt *LifetimeTracker) RecordContact(entityID uint32) {
	if s := lt.stats[entityID]; s != nil {
		s.Contacts++
	}
}

// UpdateSurvivalTime updates the survival time based on current tick.
func (lt *LifetimeTracker) UpdateSurvivalTime(entityID uint32, currentTick int32, dt float64) {
	if s := lt.stats[entityID]; s != nil {
		s.SurvivalTimeSec = float64(currentTick-s.BirthTick) * dt
	}
}

// Count returns the number of tracked entities.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// Reset drops every tracked entity.
func (lt *LifetimeTracker) Reset() {
	clear(lt.stats)
}
