package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wesm/interviewlens/internal/config"
	"github.com/wesm/interviewlens/internal/dashboard"
	"github.com/wesm/interviewlens/internal/record"
	"github.com/wesm/interviewlens/internal/view"
)

// SummaryConfig holds parsed CLI options for the summary command.
type SummaryConfig struct {
	Identity record.Identity
	Timezone string
}

func parseSummaryFlags(args []string) (SummaryConfig, error) {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	user := fs.String("user", "", "User id")
	email := fs.String("email", "", "User email (used when -user is empty)")
	tz := fs.String("timezone", "", "IANA timezone for displayed dates")
	if err := fs.Parse(args); err != nil {
		return SummaryConfig{}, err
	}

	sc := SummaryConfig{
		Identity: record.Identity{UserID: *user, Email: *email}.Normalize(),
		Timezone: *tz,
	}
	if sc.Identity.Empty() {
		return SummaryConfig{}, fmt.Errorf(
			"%w: use -user or -email", dashboard.ErrNoIdentity,
		)
	}
	if sc.Timezone != "" {
		if _, err := time.LoadLocation(sc.Timezone); err != nil {
			return SummaryConfig{}, fmt.Errorf(
				"invalid timezone %q: %w", sc.Timezone, err,
			)
		}
	}
	return sc, nil
}

// summaryOutput is what the summary command prints.
type summaryOutput struct {
	Directory view.Directory   `json:"directory"`
	Summary   view.SummaryView `json:"summary"`
	Warnings  []string         `json:"warnings"`
}

func buildSummary(
	ctx context.Context, loader *dashboard.Loader,
	id record.Identity, opts view.Options,
) (summaryOutput, error) {
	dir, err := loader.Directory(ctx, id)
	if err != nil {
		return summaryOutput{}, err
	}
	sum, err := loader.Summary(ctx, dir.Sessions)
	if err != nil {
		return summaryOutput{}, err
	}
	return summaryOutput{
		Directory: view.NewDirectory(
			dir.Sessions, sum.Summary.TotalTurns, opts,
		),
		Summary:  view.NewSummaryView(sum.Summary, opts),
		Warnings: append(dir.Warnings, sum.Warnings...),
	}, nil
}

func runSummary(args []string) {
	sc, err := parseSummaryFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	cfg, err := config.LoadMinimal()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if sc.Timezone == "" {
		sc.Timezone = cfg.Timezone
	}

	database := mustOpenStore(cfg)
	defer database.Close()
	loader := dashboard.NewLoader(
		newSource(cfg, database), cfg.FetchWorkers,
	)

	out, err := buildSummary(
		context.Background(), loader, sc.Identity,
		view.Options{Timezone: sc.Timezone},
	)
	if err != nil {
		log.Fatalf("summary: %v", err)
	}
	for _, w := range out.Warnings {
		log.Printf("warning: %s", w)
	}
	if err := writeJSON(os.Stdout, out); err != nil {
		log.Fatalf("writing summary: %v", err)
	}
}
