// Package organize cleans up a downloaded podcast folder before it is
// packaged: configured filename rewrites, episode number reordering,
// unwanted file removal and the final folder rename.
package organize

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"podshare/internal/analysis"
	"podshare/internal/config"
	"podshare/internal/logger"
)

// episodeNumberAtEnd matches "Show - 2021-03-05 Title - 12.mp3" style
// names where the episode number trails the title.
var episodeNumberAtEnd = regexp.MustCompile(`^(.* - )(\d{4}-\d{2}-\d{2}) (.*?)( - )(\d+)(\.\w+)$`)

// Result describes what the organizer did to the folder.
type Result struct {
	FolderPath string
	Completed  bool
	Renamed    int
	Removed    int
}

type rule struct {
	re          *regexp.Regexp
	replacement string
	repeat      bool
}

// Organizer applies the configured cleanup rules to a podcast folder.
// Confirm and Prompt are asked before destructive steps; they default to
// declining everything when nil.
type Organizer struct {
	log                *logger.Logger
	rules              []rule
	unwanted           []string
	completedThreshold time.Duration

	Confirm func(prompt string) bool
	Prompt  func(prompt string) string

	now func() time.Time
}

// New compiles the configured replacement rules into an Organizer.
func New(cfg *config.Config, log *logger.Logger) (*Organizer, error) {
	o := &Organizer{
		log:                log,
		unwanted:           cfg.UnwantedFiles,
		completedThreshold: time.Duration(cfg.CompletedThresholdDays) * 24 * time.Hour,
		now:                time.Now,
	}
	for i, r := range cfg.FileReplacements {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("file_replacements[%d]: invalid pattern %q: %w", i, r.Pattern, err)
		}
		o.rules = append(o.rules, rule{re: re, replacement: r.Replacement, repeat: r.Repeat})
	}
	return o, nil
}

// Organize runs the full cleanup sequence. The folder rename comes first
// so the later steps see the final path. Returns the (possibly renamed)
// folder path and whether the show was marked complete.
func (o *Organizer) Organize(name, folderPath string, an analysis.Result) (Result, error) {
	res := Result{FolderPath: folderPath}

	newPath, completed, err := o.renameFolder(name, folderPath, an)
	if err != nil {
		return res, err
	}
	res.FolderPath = newPath
	res.Completed = completed

	renamed, err := o.renameFiles(res.FolderPath)
	if err != nil {
		return res, err
	}
	res.Renamed = renamed

	removed, err := o.removeUnwanted(res.FolderPath)
	if err != nil {
		return res, err
	}
	res.Removed = removed

	return res, nil
}

// renameFolder proposes "Name (Complete)" for shows whose last episode is
// older than the completed threshold, "Name (startYear-lastDate)"
// otherwise, and finally a custom name. A folder that already carries a
// parenthesized suffix is left alone.
func (o *Organizer) renameFolder(name, folderPath string, an analysis.Result) (string, bool, error) {
	if strings.Contains(filepath.Base(folderPath), "(") {
		return folderPath, false, nil
	}

	startYear := "Unknown"
	if an.EarliestYear > 0 {
		startYear = fmt.Sprintf("%d", an.EarliestYear)
	}
	lastDate := "Unknown"
	if an.LastEpisodeDate != "" {
		lastDate = formatLongDate(an.LastEpisodeDate)
	}

	var newName string
	completed := false
	if o.isCompleted(an.LastEpisodeDate) {
		if o.confirm(fmt.Sprintf("Rename the folder to '%s (Complete)'", name)) {
			newName = fmt.Sprintf("%s (Complete)", name)
			completed = true
		}
	}
	if newName == "" {
		proposed := fmt.Sprintf("%s (%s-%s)", name, startYear, lastDate)
		if o.confirm(fmt.Sprintf("Rename the folder to '%s'", proposed)) {
			newName = proposed
		}
	}
	if newName == "" && o.Prompt != nil {
		newName = strings.TrimSpace(o.Prompt("Enter a custom folder name (blank skips)"))
	}
	if newName == "" {
		return folderPath, false, nil
	}

	newPath := filepath.Join(filepath.Dir(folderPath), newName)
	o.log.Debug("Renaming folder %s to %s", folderPath, newPath)
	if err := os.Rename(folderPath, newPath); err != nil {
		return folderPath, false, fmt.Errorf("failed to rename folder: %w", err)
	}
	return newPath, completed, nil
}

func (o *Organizer) isCompleted(lastDate string) bool {
	if lastDate == "" {
		return false
	}
	t, err := time.Parse("2006-01-02", lastDate)
	if err != nil {
		return false
	}
	return o.now().Sub(t) > o.completedThreshold
}

// renameFiles applies the replacement rules and episode number fix to
// every file in the folder.
func (o *Organizer) renameFiles(folderPath string) (int, error) {
	var paths []string
	err := filepath.WalkDir(folderPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk folder: %w", err)
	}
	sort.Strings(paths)

	var renamed int
	for _, path := range paths {
		newPath, err := o.renameFile(path)
		if err != nil {
			return renamed, err
		}
		if newPath != path {
			renamed++
		}
	}
	return renamed, nil
}

func (o *Organizer) renameFile(path string) (string, error) {
	name := filepath.Base(path)
	newName := fixEpisodeNumbering(o.applyRules(name))
	if newName == name {
		return path, nil
	}

	newPath := filepath.Join(filepath.Dir(path), newName)
	o.log.Debug("Renaming '%s' to '%s'", name, newName)
	if err := os.Rename(path, newPath); err != nil {
		return path, fmt.Errorf("failed to rename %s: %w", name, err)
	}
	return newPath, nil
}

func (o *Organizer) applyRules(name string) string {
	for _, r := range o.rules {
		if r.repeat {
			for {
				next := r.re.ReplaceAllString(name, r.replacement)
				if next == name {
					break
				}
				name = next
			}
		} else {
			name = r.re.ReplaceAllString(name, r.replacement)
		}
	}
	return name
}

// fixEpisodeNumbering moves a trailing episode number in front of the
// title: "Show - 2021-03-05 Title - 12.mp3" becomes
// "Show - 2021-03-05 12. Title.mp3".
func fixEpisodeNumbering(name string) string {
	m := episodeNumberAtEnd.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	title := strings.TrimSpace(strings.TrimRight(m[3], " -"))
	return fmt.Sprintf("%s%s %s. %s%s", m[1], m[2], m[5], title, m[6])
}

// removeUnwanted deletes files whose names contain a configured unwanted
// substring, each behind a confirmation.
func (o *Organizer) removeUnwanted(folderPath string) (int, error) {
	if len(o.unwanted) == 0 {
		return 0, nil
	}

	var removed int
	err := filepath.WalkDir(folderPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !o.isUnwanted(d.Name()) {
			return nil
		}
		if !o.confirm(fmt.Sprintf("Remove '%s'", d.Name())) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", d.Name(), err)
		}
		removed++
		return nil
	})
	return removed, err
}

func (o *Organizer) isUnwanted(name string) bool {
	lower := strings.ToLower(name)
	for _, u := range o.unwanted {
		if strings.Contains(lower, strings.ToLower(u)) {
			return true
		}
	}
	return false
}

func (o *Organizer) confirm(prompt string) bool {
	if o.Confirm == nil {
		return false
	}
	return o.Confirm(prompt)
}

func formatLongDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("January 2 2006")
}
