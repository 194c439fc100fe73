// Package analysis aggregates per-file attributes into format and bitrate
// breakdowns and flags files that diverge from the dominant value.
package analysis

import (
	"sort"
	"strconv"
	"strings"

	"podshare/internal/media"
)

// UnknownValue is the dominant value reported for an empty file set.
const UnknownValue = "unknown"

// Group is one distinct value (format or bitrate label) with the files
// carrying it, in folder-listing order.
type Group struct {
	Value string
	Files []media.FileInfo
}

// Count returns the number of files in the group.
func (g Group) Count() int { return len(g.Files) }

// Breakdown maps distinct values to file groups, ordered by descending
// count. Ties keep first-encountered order.
type Breakdown struct {
	groups []Group
}

// Groups returns the groups in descending-count order.
func (b Breakdown) Groups() []Group { return b.groups }

// Len returns the number of distinct values.
func (b Breakdown) Len() int { return len(b.groups) }

// Total returns the number of files across all groups.
func (b Breakdown) Total() int {
	var n int
	for _, g := range b.groups {
		n += len(g.Files)
	}
	return n
}

// Dominant returns the most frequent value, or UnknownValue when the
// breakdown is empty.
func (b Breakdown) Dominant() string {
	if len(b.groups) == 0 {
		return UnknownValue
	}
	return b.groups[0].Value
}

// Deviation is a file whose attribute differs from the dominant value.
type Deviation struct {
	File  media.FileInfo
	Value string
}

// Result holds the full consistency analysis for one folder scan.
type Result struct {
	Files             []media.FileInfo
	Formats           Breakdown
	Bitrates          Breakdown
	DominantFormat    string
	DominantBitrate   string
	DifferingFormats  []Deviation
	DifferingBitrates []Deviation
	AllVBR            bool
	EarliestYear      int    // 0 when no recording dates were found
	LastEpisodeDate   string // "" when no recording dates were found
}

// Clean reports whether the folder is homogeneous on both axes.
func (r Result) Clean() bool {
	return len(r.DifferingFormats) == 0 && len(r.DifferingBitrates) == 0
}

// Analyze is a pure function of the scanned files: it groups by format and
// bitrate, picks the mode of each axis as dominant (ties go to the
// earliest-seen group) and collects the files diverging from it.
func Analyze(files []media.FileInfo) Result {
	res := Result{
		Files:    files,
		Formats:  groupBy(files, func(f media.FileInfo) string { return f.Format }),
		Bitrates: groupBy(files, media.FileInfo.BitrateLabel),
		AllVBR:   len(files) > 0,
	}

	res.DominantFormat = res.Formats.Dominant()
	res.DominantBitrate = res.Bitrates.Dominant()
	res.DifferingFormats = deviations(res.Formats)
	res.DifferingBitrates = deviations(res.Bitrates)

	for _, f := range files {
		if !f.VBR {
			res.AllVBR = false
		}
		if year := recordingYear(f.RecordingDate); year > 0 {
			if res.EarliestYear == 0 || year < res.EarliestYear {
				res.EarliestYear = year
			}
		}
		if f.RecordingDate > res.LastEpisodeDate {
			res.LastEpisodeDate = f.RecordingDate
		}
	}

	return res
}

func groupBy(files []media.FileInfo, key func(media.FileInfo) string) Breakdown {
	index := make(map[string]int)
	var groups []Group

	for _, f := range files {
		v := key(f)
		i, ok := index[v]
		if !ok {
			i = len(groups)
			index[v] = i
			groups = append(groups, Group{Value: v})
		}
		groups[i].Files = append(groups[i].Files, f)
	}

	// Stable sort keeps first-encountered order on equal counts.
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Files) > len(groups[j].Files)
	})

	return Breakdown{groups: groups}
}

// deviations lists every file outside the dominant group, annotated with
// its divergent value. A single-group breakdown yields nothing.
func deviations(b Breakdown) []Deviation {
	if b.Len() < 2 {
		return nil
	}
	var devs []Deviation
	for _, g := range b.groups[1:] {
		for _, f := range g.Files {
			devs = append(devs, Deviation{File: f, Value: g.Value})
		}
	}
	return devs
}

func recordingYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// majorityShare is the fraction of files the dominant group must hold for
// its value to label the whole folder.
const majorityShare = 0.8

// OverallFormat returns the folder-wide format label: the dominant format
// when it covers a clear majority, "Mixed" otherwise.
func (r Result) OverallFormat() string {
	if r.Formats.Len() == 0 {
		return UnknownValue
	}
	top := r.Formats.Groups()[0]
	if float64(top.Count()) > majorityShare*float64(r.Formats.Total()) {
		return strings.ToUpper(top.Value)
	}
	return "Mixed"
}

// OverallBitrate returns the folder-wide bitrate label: the dominant
// bitrate when it covers a clear majority, "VBR" when every file is VBR,
// "Mixed" otherwise.
func (r Result) OverallBitrate() string {
	if r.Bitrates.Len() == 0 {
		return UnknownValue
	}
	top := r.Bitrates.Groups()[0]
	if float64(top.Count()) > majorityShare*float64(r.Bitrates.Total()) {
		return top.Value
	}
	if r.AllVBR {
		return "VBR"
	}
	return "Mixed"
}
