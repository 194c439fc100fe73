// Package pipeline drives the full packaging flow: duplicate check,
// episode download, folder cleanup, consistency analysis, report and
// torrent creation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podshare/internal/analysis"
	"podshare/internal/cache"
	"podshare/internal/config"
	"podshare/internal/downloader"
	"podshare/internal/dupes"
	"podshare/internal/logger"
	"podshare/internal/media"
	"podshare/internal/organize"
	"podshare/internal/provider"
	"podshare/internal/provider/podcastindex"
	"podshare/internal/report"
	"podshare/internal/torrent"
	"podshare/pkg/utils"
)

// ErrAborted is returned when the operator declines to continue at a
// confirmation point that cannot be skipped.
var ErrAborted = errors.New("aborted by operator")

// Options selects what the pipeline run covers.
type Options struct {
	FolderPath string
	// Name overrides the podcast name derived from the folder.
	Name string
	// RSSPath points at a saved feed file; when set, episodes are
	// downloaded before analysis.
	RSSPath string
	// CheckFilesOnly stops after the analysis report, skipping the
	// torrent steps.
	CheckFilesOnly bool
	// TorrentOnly skips the duplicate check, download, organizing and
	// metadata lookup and goes straight to torrent creation.
	TorrentOnly   bool
	SkipDupeCheck bool
}

// Hooks let callers observe and steer the pipeline. Nil hooks auto-accept
// confirmations, which is what non-interactive callers want.
type Hooks struct {
	Confirm         func(prompt string) bool
	Prompt          func(prompt string) string
	OnStage         func(stage string)
	OnPieceProgress func(done, total int)
	OnWarning       func(msg string)
}

// Result summarizes a completed pipeline run.
type Result struct {
	Name       string
	FolderPath string
	ReportPath string
	// TorrentPath is empty when no torrent was created (declined, or a
	// files-only run).
	TorrentPath string
	Descriptor  *torrent.Descriptor
	Candidates  []dupes.Candidate
	Completed   bool
}

// Run executes the packaging pipeline for one podcast folder.
func Run(ctx context.Context, cfg config.Config, log *logger.Logger, opts Options, hooks Hooks) (*Result, error) {
	name := opts.Name
	if name == "" {
		name = nameFromFolder(opts.FolderPath)
	}
	res := &Result{Name: name, FolderPath: opts.FolderPath}

	if !opts.TorrentOnly && !opts.SkipDupeCheck {
		stage(hooks, "duplicate check")
		candidates, err := checkDuplicates(ctx, cfg, log, hooks, name)
		if err != nil {
			return res, err
		}
		res.Candidates = candidates
	}

	if opts.RSSPath != "" && !opts.TorrentOnly {
		stage(hooks, "download")
		dl := downloader.New(cfg, log)
		if err := dl.Fetch(ctx, opts.RSSPath, opts.FolderPath); err != nil {
			return res, fmt.Errorf("download failed: %w", err)
		}
	}

	stage(hooks, "analysis")
	inspector := media.NewInspector(log)
	scan, err := inspector.Scan(opts.FolderPath)
	if err != nil {
		return res, err
	}
	an := analysis.Analyze(scan.Files)

	if !opts.TorrentOnly {
		stage(hooks, "organize")
		org, err := organize.New(&cfg, log)
		if err != nil {
			return res, err
		}
		org.Confirm = confirmFunc(cfg, hooks)
		org.Prompt = hooks.Prompt

		orgRes, err := org.Organize(name, opts.FolderPath, an)
		if err != nil {
			return res, fmt.Errorf("failed to organize files: %w", err)
		}
		res.FolderPath = orgRes.FolderPath
		res.Completed = orgRes.Completed

		// Renames and deletions invalidated the previous scan.
		scan, err = inspector.Scan(res.FolderPath)
		if err != nil {
			return res, err
		}
		an = analysis.Analyze(scan.Files)
	}

	warnUnreadable(log, hooks, scan)

	var show *provider.Show
	if !opts.TorrentOnly && !opts.CheckFilesOnly {
		show = lookupShow(ctx, cfg, log, name)
	}

	if !opts.TorrentOnly {
		stage(hooks, "report")
		doc := report.Build(report.Params{
			Name:       name,
			Completed:  res.Completed,
			Analysis:   an,
			Unreadable: scan.Unreadable,
			Show:       show,
			FilesOnly:  opts.CheckFilesOnly,
		})

		if !an.Clean() {
			log.Info("%s", report.BreakdownTable("Bitrates", an.Bitrates))
			log.Info("%s", report.BreakdownTable("Formats", an.Formats))
		}

		path, err := writeReport(cfg, hooks, res.FolderPath, doc)
		if err != nil {
			return res, err
		}
		res.ReportPath = path
		if path != "" {
			log.Info("Report written to %s", path)
		}
	}

	if opts.CheckFilesOnly {
		return res, nil
	}

	stage(hooks, "torrent")
	totalSize, err := utils.DirSize(res.FolderPath)
	if err != nil {
		return res, err
	}

	pieceLength := torrent.SelectPieceSize(totalSize, torrent.PieceSizeConfig{
		Min:          cfg.MinPieceSize,
		Max:          cfg.MaxPieceSize,
		TargetPieces: cfg.TargetPieceCount,
	})
	log.Info("Payload is %s, piece size %s", utils.HumanSize(totalSize), utils.HumanSize(pieceLength))

	confirm := confirmFunc(cfg, hooks)
	if !confirm(fmt.Sprintf("Create a torrent for '%s'", filepath.Base(res.FolderPath))) {
		log.Info("Torrent creation skipped")
		return res, nil
	}

	torrentPath := filepath.Join(outputDir(cfg, res.FolderPath), filepath.Base(res.FolderPath)+".torrent")
	if _, err := os.Stat(torrentPath); err == nil {
		if !confirm(fmt.Sprintf("'%s' already exists, replace it", torrentPath)) {
			log.Info("Keeping existing torrent")
			return res, nil
		}
	}

	builder := torrent.NewBuilder(log)
	desc, err := builder.Build(ctx, torrent.BuildRequest{
		FolderPath:   res.FolderPath,
		OutputPath:   torrentPath,
		PieceLength:  pieceLength,
		AnnounceURL:  cfg.AnnounceURL,
		Source:       cfg.SourceTag,
		Private:      cfg.PrivateTorrent,
		CreationDate: time.Now(),
		OnPiece:      hooks.OnPieceProgress,
	})
	if err != nil {
		return res, fmt.Errorf("failed to build torrent: %w", err)
	}

	res.TorrentPath = torrentPath
	res.Descriptor = desc
	log.Info("Created %s (infohash %s, %d pieces)", torrentPath, desc.InfoHash, desc.PieceCount)
	return res, nil
}

// checkDuplicates queries the registry and asks the operator whether to
// continue when anything suspicious turns up. A failed check is loud but
// not fatal on its own.
func checkDuplicates(ctx context.Context, cfg config.Config, log *logger.Logger, hooks Hooks, name string) ([]dupes.Candidate, error) {
	if cfg.DupeCheckURL == "" {
		log.Debug("Duplicate registry not configured, skipping check")
		return nil, nil
	}

	confirm := confirmFunc(cfg, hooks)

	checker, err := dupes.New(cfg.DupeCheckURL, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	candidates, err := checker.Check(ctx, name, name)
	if err != nil {
		msg := fmt.Sprintf("Duplicate check failed: %v", err)
		log.Warn(msg)
		warn(hooks, msg)
		if !confirm("Could not verify duplicates, continue anyway") {
			return nil, fmt.Errorf("duplicate check failed: %w", ErrAborted)
		}
		return nil, nil
	}

	var suspicious []dupes.Candidate
	for _, c := range candidates {
		if c.Confidence >= cfg.DupeConfidenceThreshold {
			suspicious = append(suspicious, c)
		}
	}
	if len(suspicious) == 0 {
		log.Info("No likely duplicates found for '%s'", name)
		return candidates, nil
	}

	log.Warn("Found %d possible duplicate(s) for '%s':", len(suspicious), name)
	for _, c := range suspicious {
		log.Warn("  %.0f%%  %s  %s", c.Confidence*100, c.Name, c.Link)
	}
	warn(hooks, fmt.Sprintf("%d possible duplicate(s) found for '%s'", len(suspicious), name))

	if !confirm("Possible duplicates exist, continue anyway") {
		return candidates, fmt.Errorf("possible duplicates: %w", ErrAborted)
	}
	return candidates, nil
}

// lookupShow fetches catalog metadata for the report. Failures only cost
// the metadata sections, never the run.
func lookupShow(ctx context.Context, cfg config.Config, log *logger.Logger, name string) *provider.Show {
	if cfg.PodcastIndexKey == "" {
		return nil
	}

	var c *cache.Cache
	if cfg.CacheDir != "" {
		c = cache.New(cfg.CacheDir, 0)
	}

	client := podcastindex.New(cfg.PodcastIndexURL, cfg.PodcastIndexKey, cfg.PodcastIndexSecret, c)
	shows, err := client.FindShows(ctx, name)
	if err != nil {
		log.Warn("Metadata lookup failed: %v", err)
		return nil
	}
	if len(shows) == 0 {
		log.Debug("No %s results for '%s'", client.Name(), name)
		return nil
	}

	best := shows[0]
	bestScore := dupes.Similarity(name, best.Title)
	for _, s := range shows[1:] {
		if score := dupes.Similarity(name, s.Title); score > bestScore {
			best, bestScore = s, score
		}
	}
	log.Debug("Matched '%s' to %s entry '%s' (%.0f%%)", name, client.Name(), best.Title, bestScore*100)
	return &best
}

// writeReport renders the document next to the torrent output. An existing
// report is only replaced after confirmation; declining keeps it and is
// not an error.
func writeReport(cfg config.Config, hooks Hooks, folderPath string, doc report.Document) (string, error) {
	path := filepath.Join(outputDir(cfg, folderPath), filepath.Base(folderPath)+".txt")

	if _, err := os.Stat(path); err == nil {
		if !confirmFunc(cfg, hooks)(fmt.Sprintf("'%s' already exists, replace it", path)) {
			return path, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(report.Render(doc)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// outputDir is where the report and torrent land: the configured output
// directory, or the folder's parent when unset.
func outputDir(cfg config.Config, folderPath string) string {
	if cfg.OutputDir != "" {
		return cfg.OutputDir
	}
	return filepath.Dir(folderPath)
}

// nameFromFolder derives the podcast name from the folder, dropping a
// parenthesized suffix from a previous run.
func nameFromFolder(folderPath string) string {
	base := filepath.Base(folderPath)
	if i := strings.Index(base, " ("); i > 0 {
		return base[:i]
	}
	return base
}

func confirmFunc(cfg config.Config, hooks Hooks) func(string) bool {
	return func(prompt string) bool {
		if cfg.AssumeYes || hooks.Confirm == nil {
			return true
		}
		return hooks.Confirm(prompt)
	}
}

func warnUnreadable(log *logger.Logger, hooks Hooks, scan *media.Scan) {
	for _, f := range scan.Unreadable {
		msg := fmt.Sprintf("Unreadable file %s: %s", f.RelPath, f.Reason)
		log.Warn(msg)
		warn(hooks, msg)
	}
}

func stage(hooks Hooks, name string) {
	if hooks.OnStage != nil {
		hooks.OnStage(name)
	}
}

func warn(hooks Hooks, msg string) {
	if hooks.OnWarning != nil {
		hooks.OnWarning(msg)
	}
}
