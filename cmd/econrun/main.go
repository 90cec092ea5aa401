// Command econrun runs one model to its horizon and prints a weekly report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/engine"
	"github.com/KhuramC/EconomySim-sub000/internal/entropy"
	"github.com/KhuramC/EconomySim-sub000/internal/persistence"
)

func main() {
	var (
		configPath = flag.String("config", "", "model configuration (YAML or JSON); defaults are used when empty")
		people     = flag.Int("people", 1000, "population when no config is given")
		weeks      = flag.Int("weeks", 52, "simulation length when no config is given")
		seed       = flag.Int64("seed", 0, "random seed; 0 draws one")
		dbPath     = flag.String("db", "", "archive the finished run to this SQLite file")
		interval   = flag.Duration("interval", 0, "pause between weeks")
		every      = flag.Int("every", 1, "report every n weeks")
		dump       = flag.Bool("dump-config", false, "print the effective configuration as YAML and exit")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.DefaultModelConfig(*people, *weeks)
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if *dump {
		out, err := config.EncodeYAML(cfg)
		if err != nil {
			slog.Error("encode config", "error", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	if *seed == 0 {
		*seed = entropy.NewClient(os.Getenv("RANDOM_ORG_API_KEY")).Seed(context.Background())
	}

	model, err := engine.New(cfg, *seed)
	if err != nil {
		slog.Error("failed to build model", "error", err)
		os.Exit(1)
	}
	slog.Info("model ready",
		"people", humanize.Comma(int64(len(model.People))),
		"weeks", model.MaxSimulationLength,
		"seed", *seed,
	)

	eng := engine.NewEngine(model)
	eng.Interval = *interval
	eng.OnWeek = func(week int) {
		if week%max(*every, 1) != 0 && !model.Finished() {
			return
		}
		row := model.Latest()
		slog.Info("weekly report",
			"week", week,
			"gdp", "$"+humanize.CommafWithDigits(row.GDP, 2),
			"unemployment", fmt.Sprintf("%.1f%%", row.Unemployment*100),
			"median_income", "$"+humanize.CommafWithDigits(row.MedianIncome, 2),
			"gini", fmt.Sprintf("%.3f", row.Gini),
			"government", "$"+humanize.CommafWithDigits(row.GovernmentBalance, 2),
		)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	runErr := eng.Run(ctx)
	if runErr != nil && ctx.Err() == nil {
		slog.Error("run failed", "week", model.Week(), "error", runErr)
	}

	first := model.History.Indicators[0]
	last := model.Latest()
	fmt.Printf("\n%d weeks in %s\n", model.Week(), time.Since(start).Round(time.Millisecond))
	fmt.Printf("GDP            $%s (week 1: $%s)\n", humanize.CommafWithDigits(last.GDP, 2), humanize.CommafWithDigits(weekOneGDP(model), 2))
	fmt.Printf("Unemployment   %.1f%% (start %.1f%%)\n", last.Unemployment*100, first.Unemployment*100)
	fmt.Printf("Gini           %.3f (start %.3f)\n", last.Gini, first.Gini)
	fmt.Printf("Government     $%s\n", humanize.CommafWithDigits(last.GovernmentBalance, 2))
	fmt.Printf("Total balance  $%s\n", humanize.CommafWithDigits(last.TotalBalance, 2))

	if *dbPath != "" {
		db, err := persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		id := uuid.New().String()
		if err := db.SaveModel(id, model); err != nil {
			slog.Error("archive failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Archived as %s in %s\n", id, *dbPath)
	}

	if runErr != nil && ctx.Err() == nil {
		os.Exit(1)
	}
}

// weekOneGDP is the GDP of the first simulated week, or 0 if none ran.
func weekOneGDP(m *engine.Model) float64 {
	if len(m.History.Indicators) < 2 {
		return 0
	}
	return m.History.Indicators[1].GDP
}
