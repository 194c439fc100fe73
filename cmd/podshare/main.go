package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"podshare/internal/config"
	"podshare/internal/dupes"
	"podshare/internal/logger"
	"podshare/internal/pipeline"
	"podshare/internal/progress"
	"podshare/internal/shutdown"
	"podshare/pkg/utils"
)

func main() {
	cfg, opts, configPath, err := parseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}

	sh := shutdown.New()
	sh.Listen()
	defer sh.Wait()

	log := logger.New(cfg.Verbose)
	defer log.Close()

	if !cfg.Verbose {
		logDir := config.GetDefaultLogPath()
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to create log directory: %v\n", err)
		} else {
			logFile := filepath.Join(logDir, fmt.Sprintf("podshare_%s.log", time.Now().Format("2006-01-02_15-04-05")))
			if err := log.SetFileLog(logFile); err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] Failed to setup file logging: %v\n", err)
			} else {
				log.Debug("Logging to file: %s", logFile)
			}
		}
	}

	if cfg.Verbose && configPath != "" {
		log.Debug("Loaded configuration from: %s", configPath)
	}

	if err := cfg.Validate(); err != nil {
		log.Error("Configuration error: %v", err)
		os.Exit(1)
	}

	if opts.dupeCheckName != "" {
		if err := runDupeCheck(sh, cfg, log, opts.dupeCheckName); err != nil {
			log.Error("%v", err)
			os.Exit(1)
		}
		return
	}

	if err := run(sh, cfg, log, opts); err != nil {
		if errors.Is(err, pipeline.ErrAborted) {
			log.Info("Aborted")
			return
		}
		log.Error("%v", err)
		os.Exit(1)
	}
}

// runDupeCheck queries the registry for a name and prints whatever it
// finds. Any failure here is fatal since the check is the whole point.
func runDupeCheck(sh *shutdown.Handler, cfg config.Config, log *logger.Logger, name string) error {
	checker, err := dupes.New(cfg.DupeCheckURL, cfg.APIKey)
	if err != nil {
		return err
	}

	candidates, err := checker.Check(sh.Context(), name, "")
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		log.Info("Nothing found for \"%s\"", name)
		return nil
	}

	log.Info("Possible duplicates for \"%s\":", name)
	for _, c := range candidates {
		log.Info("  %3.0f%%  %s  %s", c.Confidence*100, c.Name, c.Link)
	}
	return nil
}

func run(sh *shutdown.Handler, cfg config.Config, log *logger.Logger, opts options) error {
	var bar *progress.Bar
	hooks := pipeline.Hooks{
		Confirm: utils.AskYesNo,
		Prompt:  utils.TakeInput,
		OnPieceProgress: func(done, total int) {
			if cfg.Verbose {
				return
			}
			if bar == nil {
				bar = progress.New(total)
				log.SetProgressBar(true)
			}
			bar.Set(done)
		},
	}

	res, err := pipeline.Run(sh.Context(), cfg, log, pipeline.Options{
		FolderPath:     opts.folderPath,
		Name:           opts.name,
		RSSPath:        opts.rssPath,
		CheckFilesOnly: opts.checkFilesOnly,
		TorrentOnly:    opts.torrentOnly,
		SkipDupeCheck:  opts.skipDupeCheck,
	}, hooks)

	if bar != nil {
		bar.Finish()
		log.SetProgressBar(false)
	}

	if err != nil {
		return err
	}

	if res.TorrentPath != "" {
		log.Info("=== Torrent ready: %s ===", res.TorrentPath)
	} else {
		log.Info("=== Process completed ===")
	}
	return nil
}
