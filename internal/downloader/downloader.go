// Package downloader fetches podcast episodes from an RSS feed into a
// local folder using podcast-dl.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"podshare/internal/config"
	"podshare/internal/logger"
)

// Backend runs one episode download batch. The production backend shells
// out to podcast-dl; tests substitute a fake.
type Backend interface {
	// Available reports whether the backend's external tooling is installed.
	Available() error
	// Download fetches every episode from the feed file into outDir.
	Download(ctx context.Context, feedPath, outDir string) error
}

// Downloader drives a Backend and handles folder setup and logging.
type Downloader struct {
	Config  config.Config
	Logger  *logger.Logger
	Backend Backend
}

// New creates a Downloader backed by podcast-dl.
func New(cfg config.Config, log *logger.Logger) *Downloader {
	d := &Downloader{Config: cfg, Logger: log}
	d.Backend = &podcastDL{cfg: cfg, verbose: cfg.Verbose}
	return d
}

// Fetch downloads all episodes listed in the feed file into outDir,
// creating it if needed.
func (d *Downloader) Fetch(ctx context.Context, feedPath, outDir string) error {
	if err := d.Backend.Available(); err != nil {
		return err
	}

	if _, err := os.Stat(feedPath); err != nil {
		return fmt.Errorf("feed file not found: %w", err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create download folder: %w", err)
	}

	d.Logger.Info("=== Downloading episodes ===")
	d.Logger.Debug("Feed: %s", feedPath)
	d.Logger.Debug("Destination: %s", outDir)

	if err := d.Backend.Download(ctx, feedPath, outDir); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("download cancelled")
		}
		return err
	}

	d.Logger.Info("Download completed")
	return nil
}

// podcastDL shells out to the podcast-dl CLI.
type podcastDL struct {
	cfg     config.Config
	verbose bool
}

func (p *podcastDL) Available() error {
	if _, err := exec.LookPath("podcast-dl"); err != nil {
		return fmt.Errorf("podcast-dl is not installed or not in PATH")
	}
	return nil
}

func (p *podcastDL) Download(ctx context.Context, feedPath, outDir string) error {
	cmd := exec.CommandContext(ctx, "podcast-dl",
		"--file", feedPath,
		"--out-dir", outDir,
		"--episode-template", p.cfg.EpisodeTemplate,
		"--include-meta",
		"--threads", strconv.Itoa(p.cfg.Threads),
		"--add-mp3-metadata",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if p.verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("podcast-dl failed: %w\nDetails: %s", err, stderr.String())
	}
	return nil
}
