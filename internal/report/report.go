// Package report turns analysis results and catalog metadata into a
// structured document model, then renders it separately. The
// data-to-sections step is a pure function so the conditional logic is
// testable without any markup.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"podshare/internal/analysis"
	"podshare/internal/media"
	"podshare/internal/provider"
)

// Section is one titled block of the report.
type Section struct {
	Title string
	Body  string
}

// Document is the ordered report model handed to a renderer.
type Document struct {
	Name     string
	Sections []Section
}

// Params collects everything the report is built from.
type Params struct {
	Name       string
	Completed  bool
	Analysis   analysis.Result
	Unreadable []media.FileInfo
	Show       *provider.Show
	// FilesOnly limits the report to file statistics and always includes
	// the full breakdown tables.
	FilesOnly bool
}

// Build produces the document model. Breakdown sections appear only when
// more than one group exists (or in files-only mode, where the full
// breakdown is the point).
func Build(p Params) Document {
	doc := Document{Name: releaseName(p)}

	overallFormat := p.Analysis.OverallFormat()
	overallBitrate := p.Analysis.OverallBitrate()

	doc.Sections = append(doc.Sections, Section{
		Title: "Summary",
		Body: fmt.Sprintf("Format: %s\nBitrate: %s\nNumber of files: %d",
			overallFormat, overallBitrate, len(p.Analysis.Files)),
	})

	if p.Show != nil && !p.FilesOnly {
		if p.Show.Description != "" {
			doc.Sections = append(doc.Sections, Section{Title: "Description", Body: p.Show.Description})
		}
		if len(p.Show.Categories) > 0 {
			doc.Sections = append(doc.Sections, Section{Title: "Tags", Body: strings.Join(p.Show.Categories, ", ")})
		}
		if body := linksBody(p.Show); body != "" {
			doc.Sections = append(doc.Sections, Section{Title: "Links", Body: body})
		}
	}

	if !p.FilesOnly && !p.Completed && p.Analysis.LastEpisodeDate != "" {
		doc.Sections = append(doc.Sections, Section{
			Title: "Last episode included",
			Body:  p.Analysis.LastEpisodeDate,
		})
	}

	if overallBitrate == "Mixed" || p.FilesOnly {
		if body := groupListing(sortedByBitrate(p.Analysis.Bitrates.Groups())); body != "" {
			doc.Sections = append(doc.Sections, Section{Title: "Bitrate breakdown", Body: body})
		}
	} else if p.Analysis.Bitrates.Len() > 1 && !p.Analysis.AllVBR {
		body := groupListing(p.Analysis.Bitrates.Groups()[1:])
		doc.Sections = append(doc.Sections, Section{Title: "Differing bitrates", Body: body})
	}

	if overallFormat == "Mixed" || p.FilesOnly {
		if body := groupListing(p.Analysis.Formats.Groups()); body != "" {
			doc.Sections = append(doc.Sections, Section{Title: "Format breakdown", Body: body})
		}
	} else if p.Analysis.Formats.Len() > 1 {
		body := groupListing(p.Analysis.Formats.Groups()[1:])
		doc.Sections = append(doc.Sections, Section{Title: "Differing formats", Body: body})
	}

	if len(p.Unreadable) > 0 {
		var b strings.Builder
		for _, f := range p.Unreadable {
			fmt.Fprintf(&b, "%s: %s\n", f.RelPath, f.Reason)
		}
		doc.Sections = append(doc.Sections, Section{
			Title: "Unreadable files (excluded from statistics)",
			Body:  strings.TrimRight(b.String(), "\n"),
		})
	}

	return doc
}

// releaseName decorates the podcast name with its year span, or with
// "(Complete)" for a finished show.
func releaseName(p Params) string {
	if p.Completed {
		return fmt.Sprintf("%s (Complete)", p.Name)
	}
	if p.Analysis.EarliestYear == 0 {
		return p.Name
	}
	last := formatLastDate(p.Analysis.LastEpisodeDate)
	if last == "" {
		return fmt.Sprintf("%s (%d)", p.Name, p.Analysis.EarliestYear)
	}
	return fmt.Sprintf("%s (%d-%s)", p.Name, p.Analysis.EarliestYear, last)
}

// formatLastDate renders a YYYY-MM-DD date in long form, e.g.
// "November 30 2021". Unparseable dates come back unchanged.
func formatLastDate(date string) string {
	if date == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("January 2 2006")
}

func linksBody(show *provider.Show) string {
	var lines []string
	if show.Link != "" {
		lines = append(lines, "Website: "+show.Link)
	}
	if show.FeedURL != "" {
		lines = append(lines, "Feed: "+show.FeedURL)
	}
	return strings.Join(lines, "\n")
}

// groupListing renders groups as "value:" headers with indented file names.
func groupListing(groups []analysis.Group) string {
	var b strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&b, "%s:\n", g.Value)
		names := make([]string, 0, len(g.Files))
		for _, f := range g.Files {
			names = append(names, f.RelPath)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// sortedByBitrate orders groups numerically ascending, with VBR and
// unknown groups at the end.
func sortedByBitrate(groups []analysis.Group) []analysis.Group {
	sorted := make([]analysis.Group, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bitrateSortKey(sorted[i].Value) < bitrateSortKey(sorted[j].Value)
	})
	return sorted
}

func bitrateSortKey(label string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(label, " kbps"))
	if err != nil {
		return 1 << 30
	}
	return n
}
