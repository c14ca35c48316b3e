package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/laststand/config"
	"github.com/pthm-cable/laststand/game"
	"github.com/pthm-cable/laststand/neural"
	"github.com/pthm-cable/laststand/storage"
	"github.com/pthm-cable/laststand/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output round stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	archivePath := flag.String("archive", "", "SQLite genotype archive (overrides archive.path)")
	resumePath := flag.String("resume", "", "Seed the shooter pool from the best entry of a hall_of_fame.json")
	resumeArchive := flag.Bool("resume-archive", false, "Seed the shooter pool from the fittest shooter in the archive")
	dot := flag.Bool("dot", false, "Write shooter.dot on every shooter spawn (needs -output-dir)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")
	maxRounds := flag.Int("max-rounds", 0, "Stop after N rounds (0 = until interrupted)")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *dot {
		cfg.Telemetry.DotExport = true
	}
	if *archivePath != "" {
		cfg.Archive.Path = *archivePath
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, game.Options{
		Seed:      rngSeed,
		OutputDir: *outputDir,
		LogStats:  *logStats,
	}, runFlags{
		resumePath:    *resumePath,
		resumeArchive: *resumeArchive,
		maxRounds:     *maxRounds,
	}); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// runFlags carries the command-line choices that shape a run but not the arena.
type runFlags struct {
	resumePath    string
	resumeArchive bool
	maxRounds     int
}

func run(ctx context.Context, cfg *config.Config, opts game.Options, flags runFlags) error {
	if flags.resumePath != "" && flags.resumeArchive {
		return errors.New("-resume and -resume-archive are mutually exclusive")
	}
	if flags.resumeArchive && cfg.Archive.Path == "" {
		return errors.New("-resume-archive needs an archive path")
	}

	if flags.resumePath != "" {
		hof, err := telemetry.LoadHallOfFameFromFile(flags.resumePath)
		if err != nil {
			return err
		}
		if best, ok := hof.Best(); ok {
			opts.ShooterSeed = &neural.Brain{Network: best.Network}
			slog.Info("resuming from hall of fame", "path", flags.resumePath, "fitness", best.Fitness, "round", best.Round)
		} else {
			slog.Warn("hall_of_fame_empty_fallback", "path", flags.resumePath)
		}
	}

	if cfg.Archive.Path != "" {
		archive := storage.NewSQLiteArchive(cfg.Archive.Path)
		if err := archive.Init(ctx); err != nil {
			return err
		}
		defer archive.Close()
		opts.Archive = archive

		if flags.resumeArchive {
			seed, err := archiveSeed(ctx, archive)
			if err != nil {
				return err
			}
			if seed != nil {
				opts.ShooterSeed = seed
			} else {
				slog.Warn("archive_empty_fallback", "path", cfg.Archive.Path)
			}
		}
	}

	arena, err := game.NewArena(cfg, opts)
	if err != nil {
		return err
	}
	defer arena.Close()

	slog.Info("starting arena",
		"seed", opts.Seed,
		"max_rounds", flags.maxRounds,
		"shooters", cfg.Arena.Shooters,
		"output_dir", opts.OutputDir,
		"archive", cfg.Archive.Path,
	)

	if err := arena.Run(ctx, flags.maxRounds); err != nil {
		return err
	}

	if archive, ok := opts.Archive.(*storage.SQLiteArchive); ok {
		// The run context may already be cancelled.
		shooters, err := archive.Count(context.Background(), "shooter")
		if err != nil {
			return err
		}
		slog.Info("archive_summary", "path", cfg.Archive.Path, "shooters", shooters)
	}
	return nil
}

// archiveSeed returns the fittest archived shooter as a brain, or nil when the
// archive holds no shooters.
func archiveSeed(ctx context.Context, archive *storage.SQLiteArchive) (*neural.Brain, error) {
	top, err := archive.Top(ctx, "shooter", 1)
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return nil, nil
	}
	best := top[0]
	brain := &neural.Brain{Network: best.Network}
	if err := brain.Validate(); err != nil {
		return nil, fmt.Errorf("archived shooter %d: %w", best.EntityID, err)
	}
	slog.Info("resuming from archive", "fitness", best.Fitness, "round", best.Round, "entity", best.EntityID)
	return brain, nil
}
