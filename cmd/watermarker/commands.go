package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/watermarker/internal/config"
	"github.com/aliskhannn/watermarker/internal/discover"
	"github.com/aliskhannn/watermarker/internal/preview"
	"github.com/aliskhannn/watermarker/internal/processor"
	runrepo "github.com/aliskhannn/watermarker/internal/repository/run"
)

// runPreview renders a contact sheet from samples of the input directory.
func runPreview(args []string) int {
	fs := config.NewFlagSet("preview")
	sheet := fs.String("sheet", "watermark_preview.png", "Where to write the contact sheet")

	cfg, code, ok := loadConfig(fs, args)
	if !ok {
		return code
	}

	placement, err := cfg.Settings.Placement()
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("invalid placement")
		return exitConfig
	}
	output, err := cfg.Settings.Output()
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("invalid output settings")
		return exitConfig
	}

	if info, err := os.Stat(cfg.InputDir); err != nil || !info.IsDir() {
		zlog.Logger.Error().Str("input", cfg.InputDir).Msg("input directory not found")
		return exitConfig
	}

	overlay, err := processor.LoadOverlay(cfg.Watermark)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("watermark", cfg.Watermark).Msg("failed to load watermark")
		return exitConfig
	}

	files, err := discover.Images(cfg.InputDir, cfg.Settings.Recurse, nil)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list images")
		return exitConfig
	}

	img, err := preview.Render(files, overlay, placement, output)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to render preview")
		return exitFailures
	}
	if err := preview.Save(*sheet, img); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to save preview")
		return exitFailures
	}

	fmt.Println(*sheet)
	return exitOK
}

// runPreset handles "preset save" and "preset show".
func runPreset(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: watermarker preset save --name NAME [--file PATH] [settings flags]")
		fmt.Fprintln(os.Stderr, "       watermarker preset show PATH")
		return exitConfig
	}

	switch args[0] {
	case "save":
		fs := config.NewFlagSet("preset save")
		name := fs.String("name", "", "Preset name")
		path := fs.String("file", "", "Preset file (default: <name>"+config.PresetExtension+")")

		cfg, code, ok := loadConfig(fs, args[1:])
		if !ok {
			return code
		}
		if *name == "" {
			zlog.Logger.Error().Msg("preset name is required")
			return exitConfig
		}
		if *path == "" {
			*path = *name + config.PresetExtension
		}

		if err := config.SavePreset(*path, *name, cfg.Settings); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to save preset")
			return exitFailures
		}

		fmt.Println(*path)
		return exitOK

	case "show":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: watermarker preset show PATH")
			return exitConfig
		}

		p, err := config.LoadPreset(args[1])
		if err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to load preset")
			return exitConfig
		}

		fmt.Printf("%s (version %s", p.Name, p.Version)
		if !p.Created.IsZero() {
			fmt.Printf(", created %s", p.Created.Format(time.DateTime))
		}
		fmt.Println(")")

		settings := p.Settings.Map()
		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s\t%v\n", k, settings[k])
		}
		w.Flush()
		return exitOK

	default:
		fmt.Fprintf(os.Stderr, "unknown preset command %q\n", args[0])
		return exitConfig
	}
}

// runHistory lists recorded runs, or the files of one run.
func runHistory(ctx context.Context, args []string) int {
	fs := config.NewFlagSet("history")
	limit := fs.Int("limit", 20, "Number of runs to list")
	runID := fs.String("run", "", "Show the files of this run")

	cfg, code, ok := loadConfig(fs, args)
	if !ok {
		return code
	}
	if cfg.History.Path == "" {
		zlog.Logger.Error().Msg("history database not configured, use --history")
		return exitConfig
	}
	if _, err := os.Stat(cfg.History.Path); err != nil {
		zlog.Logger.Error().Err(err).Msg("history database not found")
		return exitConfig
	}

	db, err := runrepo.Open(ctx, cfg.History.Path)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to open history")
		return exitFailures
	}
	defer db.Close()

	repo := runrepo.NewRepository(db)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if *runID != "" {
		id, err := uuid.Parse(*runID)
		if err != nil {
			zlog.Logger.Error().Err(err).Msg("invalid run id")
			return exitConfig
		}

		if _, err := repo.GetRun(ctx, id); err != nil {
			zlog.Logger.Error().Err(err).Str("run", *runID).Msg("failed to get run")
			return exitFailures
		}

		outcomes, err := repo.ListOutcomes(ctx, id)
		if err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to list outcomes")
			return exitFailures
		}

		fmt.Fprintln(w, "STATUS\tFILE\tOUTPUTS\tERROR")
		for _, o := range outcomes {
			outputs := make([]string, len(o.Outputs))
			for i, out := range o.Outputs {
				outputs[i] = filepath.Base(out)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Status, o.SourcePath, strings.Join(outputs, ","), o.Reason)
		}
		return exitOK
	}

	runs, err := repo.ListRuns(ctx, *limit)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list runs")
		return exitFailures
	}

	fmt.Fprintln(w, "RUN\tSTARTED\tFILES\tOK\tSKIPPED\tFAILED\tWRITTEN\tINPUT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, humanize.Time(r.StartedAt), r.Total,
			r.Counts.Success, r.Counts.Skipped, r.Counts.Failed,
			humanize.Bytes(uint64(r.WrittenBytes)), r.InputDir)
	}
	return exitOK
}
