package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podshare/internal/config"
	"podshare/internal/logger"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.AssumeYes = true
	cfg.OutputDir = t.TempDir()
	return cfg
}

func makeFolder(t *testing.T, name string) string {
	t.Helper()
	folder := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(filepath.Join(folder, "Metadata"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]int{
		"notes.txt":         400,
		"Metadata/feed.xml": 900,
	}
	for rel, size := range files {
		if err := os.WriteFile(filepath.Join(folder, rel), make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return folder
}

func TestRunCheckFilesOnly(t *testing.T) {
	cfg := testConfig(t)
	folder := makeFolder(t, "My Show (Archive)")

	res, err := Run(context.Background(), cfg, logger.New(false), Options{
		FolderPath:     folder,
		CheckFilesOnly: true,
	}, Hooks{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.Name != "My Show" {
		t.Errorf("Name = %q, want My Show", res.Name)
	}
	if res.ReportPath == "" {
		t.Fatal("check-files run should write a report")
	}
	data, err := os.ReadFile(res.ReportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(data), "Summary") {
		t.Errorf("report missing summary:\n%s", data)
	}
	if res.TorrentPath != "" {
		t.Error("check-files run should not create a torrent")
	}
}

func TestRunTorrentOnly(t *testing.T) {
	cfg := testConfig(t)
	folder := makeFolder(t, "My Show (Archive)")

	res, err := Run(context.Background(), cfg, logger.New(false), Options{
		FolderPath:  folder,
		TorrentOnly: true,
	}, Hooks{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := filepath.Join(cfg.OutputDir, "My Show (Archive).torrent")
	if res.TorrentPath != want {
		t.Errorf("TorrentPath = %q, want %q", res.TorrentPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("torrent not written: %v", err)
	}
	if res.Descriptor == nil {
		t.Fatal("Descriptor should be set")
	}
	if res.Descriptor.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", res.Descriptor.FileCount)
	}
	if res.ReportPath != "" {
		t.Error("torrent-only run should not write a report")
	}
}

func TestRunDeclinedTorrentIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	cfg.AssumeYes = false
	folder := makeFolder(t, "My Show (Archive)")

	res, err := Run(context.Background(), cfg, logger.New(false), Options{
		FolderPath:  folder,
		TorrentOnly: true,
	}, Hooks{
		Confirm: func(string) bool { return false },
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.TorrentPath != "" {
		t.Error("declined torrent should leave TorrentPath empty")
	}
	entries, _ := os.ReadDir(cfg.OutputDir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".torrent") {
			t.Errorf("unexpected torrent file %s", e.Name())
		}
	}
}

func TestRunAbortsOnDuplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"attributes":{"name":"My Show (Complete)","details_link":"https://registry.example/t/1"}}]}`)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.AssumeYes = false
	cfg.DupeCheckURL = srv.URL
	cfg.APIKey = "k"
	cfg.DupeConfidenceThreshold = 0.4
	folder := makeFolder(t, "My Show (Archive)")

	var warned []string
	_, err := Run(context.Background(), cfg, logger.New(false), Options{
		FolderPath: folder,
	}, Hooks{
		Confirm:   func(string) bool { return false },
		OnWarning: func(msg string) { warned = append(warned, msg) },
	})

	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Run() = %v, want ErrAborted", err)
	}
	if len(warned) == 0 {
		t.Error("duplicate hit should fire the warning hook")
	}
}

func TestRunDupeCheckFailureConfirmContinues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.DupeCheckURL = srv.URL
	cfg.APIKey = "k"
	folder := makeFolder(t, "My Show (Archive)")

	// AssumeYes accepts the "continue anyway" prompt.
	res, err := Run(context.Background(), cfg, logger.New(false), Options{
		FolderPath:     folder,
		CheckFilesOnly: true,
	}, Hooks{})
	if err != nil {
		t.Fatalf("Run() should continue past a failed check: %v", err)
	}
	if res.ReportPath == "" {
		t.Error("run should have completed the report")
	}
}

func TestRunSkipDupeCheck(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.DupeCheckURL = srv.URL
	cfg.APIKey = "k"
	folder := makeFolder(t, "My Show (Archive)")

	if _, err := Run(context.Background(), cfg, logger.New(false), Options{
		FolderPath:     folder,
		CheckFilesOnly: true,
		SkipDupeCheck:  true,
	}, Hooks{}); err != nil {
		t.Fatal(err)
	}
	if hits != 0 {
		t.Errorf("registry hit %d times, want 0", hits)
	}
}

func TestRunMissingFolder(t *testing.T) {
	cfg := testConfig(t)
	if _, err := Run(context.Background(), cfg, logger.New(false), Options{
		FolderPath:  filepath.Join(t.TempDir(), "nope"),
		TorrentOnly: true,
	}, Hooks{}); err == nil {
		t.Fatal("Run() should fail on a missing folder")
	}
}

func TestNameFromFolder(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/library/My Show", "My Show"},
		{"/library/My Show (2018-November 30 2021)", "My Show"},
		{"/library/My Show (Complete)", "My Show"},
		{"/library/(weird)", "(weird)"},
	}
	for _, tt := range tests {
		if got := nameFromFolder(tt.in); got != tt.want {
			t.Errorf("nameFromFolder(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
