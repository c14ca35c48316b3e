package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkSurvivalRecord       BookmarkType = "survival_record"
	BookmarkAccuracyBreakthrough BookmarkType = "accuracy_breakthrough"
	BookmarkShooterCollapse      BookmarkType = "shooter_collapse"
	BookmarkStableDefense        BookmarkType = "stable_defense"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Round       int          `csv:"round"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"round", b.Round,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting rounds in a run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []RoundStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	bestSurvival      float64 // best single-shooter survival seen so far
	stableRoundsCount int     // consecutive rounds with steady survival
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable defense detection
	}
	return &BookmarkDetector{
		history:     make([]RoundStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest round and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats RoundStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Survival record: longest-lived shooter so far
		if b := bd.checkSurvivalRecord(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Accuracy breakthrough: accuracy > 2x rolling average
		if b := bd.checkAccuracyBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Shooter collapse: mean survival below half the rolling average
		if b := bd.checkShooterCollapse(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Stable defense: low survival variance over 5+ rounds
		if b := bd.checkStableDefense(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	if stats.SurvivalMax > bd.bestSurvival {
		bd.bestSurvival = stats.SurvivalMax
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats RoundStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []RoundStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkSurvivalRecord(stats RoundStats) *Bookmark {
	if bd.bestSurvival == 0 || stats.SurvivalMax <= bd.bestSurvival {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSurvivalRecord,
		Round:       stats.Round,
		Description: fmt.Sprintf("Shooter survived %.1fs, previous best %.1fs", stats.SurvivalMax, bd.bestSurvival),
	}
}

func (bd *BookmarkDetector) checkAccuracyBreakthrough(stats RoundStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	// Calculate rolling average accuracy
	var totalShot, totalFired int
	for _, h := range history {
		totalShot += h.MobsShot
		totalFired += h.ShotsFired
	}

	if totalFired == 0 || stats.ShotsFired == 0 {
		return nil
	}

	avgAccuracy := float64(totalShot) / float64(totalFired)
	if avgAccuracy == 0 {
		return nil
	}

	if stats.Accuracy > avgAccuracy*2.0 && stats.MobsShot >= 3 {
		return &Bookmark{
			Type:        BookmarkAccuracyBreakthrough,
			Round:       stats.Round,
			Description: fmt.Sprintf("Accuracy %.2f is %.1fx average (%.2f)", stats.Accuracy, stats.Accuracy/avgAccuracy, avgAccuracy),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkShooterCollapse(stats RoundStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.SurvivalMean
	}
	avg := total / float64(len(history))

	if avg > 0 && stats.SurvivalMean < avg*0.5 {
		return &Bookmark{
			Type:        BookmarkShooterCollapse,
			Round:       stats.Round,
			Description: fmt.Sprintf("Mean survival %.1fs fell below half the average (%.1fs)", stats.SurvivalMean, avg),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkStableDefense(stats RoundStats) *Bookmark {
	if stats.SurvivalMean <= 0 {
		bd.stableRoundsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	// Check variance in recent rounds
	recent := history[len(history)-4:]
	var sum float64
	for _, h := range recent {
		sum += h.SurvivalMean
	}
	mean := sum / 4

	var variance float64
	for _, h := range recent {
		d := h.SurvivalMean - mean
		variance += d * d
	}
	variance /= 4

	// Low variance: coefficient of variation < 20%
	cv2 := 0.0
	if mean > 0 {
		cv2 = variance / (mean * mean)
	}

	if cv2 < 0.04 {
		bd.stableRoundsCount++
	} else {
		bd.stableRoundsCount = 0
	}

	if bd.stableRoundsCount == 5 { // trigger exactly once at 5 rounds
		return &Bookmark{
			Type:        BookmarkStableDefense,
			Round:       stats.Round,
			Description: fmt.Sprintf("Survival steady around %.1fs over 5+ rounds", mean),
		}
	}

	return nil
}
