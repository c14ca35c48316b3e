package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pthm-cable/laststand/neural"
)

// HallEntry represents a preserved shooter's network and fitness.
type HallEntry struct {
	Network    neural.Network
	Fitness    float64
	EntityID   uint32
	Round      int
	ShotsFired int
	Hits       int
}

// HallOfFame keeps the fittest shooters seen across a run, best first.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a new hall of fame with the given capacity.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers a preserved shooter to the hall.
// Returns true if the shooter was added.
func (hof *HallOfFame) Consider(entry HallEntry) bool {
	if n := len(hof.entries); n >= hof.maxSize && entry.Fitness <= hof.entries[n-1].Fitness {
		return false
	}
	hof.entries = hof.insertEntry(hof.entries, entry)
	return true
}

// insertEntry adds an entry to the hall, maintaining sorted order by fitness.
// If the hall is full, the lowest-fitness entry is removed.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	// Find insertion point (sorted descending by fitness)
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})

	// If hall is full and entry would be last (lowest), skip it
	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall
	}

	// Insert at position
	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	// Trim if over capacity
	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}

	return hall
}

// Best returns the fittest entry, or false if the hall is empty.
func (hof *HallOfFame) Best() (HallEntry, bool) {
	if len(hof.entries) == 0 {
		return HallEntry{}, false
	}
	best := hof.entries[0]
	best.Network = best.Network.Clone()
	return best, true
}

// Len returns the number of entries.
func (hof *HallOfFame) Len() int {
	return len(hof.entries)
}

// TopFitness returns the highest fitness in the hall, or 0 if empty.
func (hof *HallOfFame) TopFitness() float64 {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

// hallEntryJSON is the JSON-serializable representation of a hall entry.
type hallEntryJSON struct {
	EntityID   uint32         `json:"entity_id"`
	Round      int            `json:"round"`
	Fitness    float64        `json:"fitness"`
	ShotsFired int            `json:"shots_fired"`
	Hits       int            `json:"hits"`
	Network    neural.Network `json:"brain"`
}

// MarshalJSON serializes the hall of fame to JSON, best first.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	entries := make([]hallEntryJSON, len(hof.entries))
	for i, entry := range hof.entries {
		entries[i] = hallEntryJSON{
			EntityID:   entry.EntityID,
			Round:      entry.Round,
			Fitness:    entry.Fitness,
			ShotsFired: entry.ShotsFired,
			Hits:       entry.Hits,
			Network:    entry.Network,
		}
	}
	return json.MarshalIndent(map[string][]hallEntryJSON{"shooter": entries}, "", "  ")
}

// LoadHallOfFameFromFile reads a hall of fame JSON file written by MarshalJSON.
// Entries whose network has the wrong shape for a shooter brain are rejected.
func LoadHallOfFameFromFile(path string) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var raw map[string][]hallEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	entries := raw["shooter"]
	hof := NewHallOfFame(len(entries))
	for i, ej := range entries {
		brain := neural.Brain{Network: ej.Network}
		if err := brain.Validate(); err != nil {
			return nil, fmt.Errorf("hall of fame entry %d: %w", i, err)
		}
		hof.entries = hof.insertEntry(hof.entries, HallEntry{
			Network:    ej.Network,
			Fitness:    ej.Fitness,
			EntityID:   ej.EntityID,
			Round:      ej.Round,
			ShotsFired: ej.ShotsFired,
			Hits:       ej.Hits,
		})
	}

	return hof, nil
}
