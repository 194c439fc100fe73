package main

import (
	"fmt"
	"os"

	"podshare/internal/config"
)

// options holds the run mode picked on the command line.
type options struct {
	folderPath     string
	name           string
	rssPath        string
	dupeCheckName  string
	checkFilesOnly bool
	torrentOnly    bool
	skipDupeCheck  bool
}

// parseArgs parses command-line arguments and loads configuration.
// Priority: CLI flags > config file > defaults
func parseArgs() (config.Config, options, string, error) {
	args := os.Args[1:]
	var opts options

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			printUsage()
			os.Exit(0)
		}
		if arg == "--init-config" {
			return config.Config{}, opts, "", initConfigFile()
		}
	}

	var configPath string
	var cfg config.Config
	var err error

	for i := 0; i < len(args); i++ {
		if args[i] == "--config" || args[i] == "-c" {
			if i+1 >= len(args) {
				return config.Config{}, opts, "", fmt.Errorf("--config requires a path argument")
			}
			configPath = args[i+1]
			break
		}
	}

	cfg, err = config.LoadConfigFile(configPath)
	if err != nil {
		return config.Config{}, opts, "", fmt.Errorf("failed to load config: %w", err)
	}
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--verbose", "-v":
			cfg.Verbose = true

		case "--yes", "-y":
			cfg.AssumeYes = true

		case "--check-files":
			opts.checkFilesOnly = true

		case "--torrent-only":
			opts.torrentOnly = true

		case "--skip-dupe-check":
			opts.skipDupeCheck = true

		case "--dupe-check":
			if i+1 >= len(args) {
				return config.Config{}, opts, "", fmt.Errorf("--dupe-check requires a name argument")
			}
			i++
			opts.dupeCheckName = args[i]

		case "--name":
			if i+1 >= len(args) {
				return config.Config{}, opts, "", fmt.Errorf("--name requires a name argument")
			}
			i++
			opts.name = args[i]

		case "--rss":
			if i+1 >= len(args) {
				return config.Config{}, opts, "", fmt.Errorf("--rss requires a file path argument")
			}
			i++
			opts.rssPath = args[i]

		case "--config", "-c":
			i++

		default:
			if len(arg) > 0 && arg[0] == '-' {
				return config.Config{}, opts, "", fmt.Errorf("unknown flag: %s", arg)
			}
			opts.folderPath = arg
		}
	}

	if opts.folderPath == "" && opts.dupeCheckName == "" {
		return config.Config{}, opts, "", fmt.Errorf("a podcast folder is required")
	}

	return cfg, opts, configPath, nil
}

// initConfigFile creates a new config file with default values
func initConfigFile() error {
	path := config.GetDefaultConfigPath()

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config file already exists at: %s\n", path)
		fmt.Println("Delete it first if you want to recreate it.")
		os.Exit(0)
	}

	cfg := config.DefaultConfig()

	if err := config.SaveConfigFile(cfg, path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Printf("Created default config file at: %s\n", path)
	fmt.Println("\nYou can now edit this file to customize your settings.")
	fmt.Println("Available options:")
	fmt.Println("  announce_url: tracker announce URL written into torrents")
	fmt.Println("  source_tag: tracker source tag for cross-tracker uniqueness")
	fmt.Println("  dupecheck_url / api_key: duplicate registry endpoint")
	fmt.Println("  podcastindex_key / podcastindex_secret: catalog metadata lookup")
	fmt.Println("  unwanted_files: filename fragments to offer for removal")
	fmt.Println("  file_replacements: regex filename cleanup rules")

	os.Exit(0)
	return nil
}

// printUsage displays the help message
func printUsage() {
	fmt.Println("podshare - Package podcast episode folders as torrents")
	fmt.Println()
	fmt.Println("Usage: podshare [options] <podcast_folder>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v, --verbose              Show detailed output")
	fmt.Println("  -y, --yes                  Answer yes to every confirmation")
	fmt.Println("      --name <name>          Podcast name (default: derived from the folder)")
	fmt.Println("      --rss <file>           Download episodes from a saved RSS feed first")
	fmt.Println("      --check-files          Analyze files and write the report, skip the torrent")
	fmt.Println("      --torrent-only         Skip checks and cleanup, only create the torrent")
	fmt.Println("      --skip-dupe-check      Skip the duplicate registry check")
	fmt.Println("      --dupe-check <name>    Only query the duplicate registry for a name")
	fmt.Println("  -c, --config <path>        Path to config file")
	fmt.Println("  -h, --help                 Show this help message")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  --init-config              Create a default config file")
	fmt.Println()
	fmt.Println("Config file locations (checked in order):")
	fmt.Println("  ./podshare.yaml")
	fmt.Println("  ~/.config/podshare/config.yaml")
	fmt.Println("  ~/.podshare.yaml")
	fmt.Println()
	fmt.Println("Logging:")
	fmt.Println("  Normal mode: Progress bar shown, detailed logs saved to:")
	fmt.Println("    ~/.local/share/podshare/logs/")
	fmt.Println("  Verbose mode: All output to stdout, no progress bar, no file logging")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Check a folder's consistency without touching it")
	fmt.Println("  podshare --check-files ~/podcasts/My\\ Show")
	fmt.Println()
	fmt.Println("  # Full run: dupe check, cleanup, report and torrent")
	fmt.Println("  podshare ~/podcasts/My\\ Show")
	fmt.Println()
	fmt.Println("  # Download episodes from a saved feed, then package")
	fmt.Println("  podshare --rss feed.xml ~/podcasts/My\\ Show")
	fmt.Println()
	fmt.Println("  # Only ask the registry about a name")
	fmt.Println("  podshare --dupe-check \"My Show\"")
	fmt.Println()
	fmt.Println("  # Create a config file to persist settings")
	fmt.Println("  podshare --init-config")
}
