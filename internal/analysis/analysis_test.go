package analysis

import (
	"fmt"
	"testing"

	"podshare/internal/media"
)

func mp3File(name string, bitrate int) media.FileInfo {
	return media.FileInfo{Path: name, RelPath: name, Format: "MP3", Bitrate: bitrate}
}

func TestAnalyzeCountsSumToTotal(t *testing.T) {
	var files []media.FileInfo
	for i := 0; i < 7; i++ {
		files = append(files, mp3File(fmt.Sprintf("a%d.mp3", i), 128))
	}
	for i := 0; i < 3; i++ {
		files = append(files, mp3File(fmt.Sprintf("b%d.mp3", i), 192))
	}
	files = append(files, media.FileInfo{Path: "c.m4a", Format: "M4A", Bitrate: 128})

	res := Analyze(files)

	if got := res.Formats.Total(); got != len(files) {
		t.Errorf("format counts sum to %d, want %d", got, len(files))
	}
	if got := res.Bitrates.Total(); got != len(files) {
		t.Errorf("bitrate counts sum to %d, want %d", got, len(files))
	}
}

func TestAnalyzeDominantIsMode(t *testing.T) {
	files := []media.FileInfo{
		mp3File("a.mp3", 192),
		mp3File("b.mp3", 128),
		mp3File("c.mp3", 128),
	}
	res := Analyze(files)

	if res.DominantBitrate != "128 kbps" {
		t.Errorf("DominantBitrate = %q, want %q", res.DominantBitrate, "128 kbps")
	}
	if res.DominantFormat != "MP3" {
		t.Errorf("DominantFormat = %q, want MP3", res.DominantFormat)
	}
}

func TestAnalyzeTieBreakFirstSeen(t *testing.T) {
	files := []media.FileInfo{
		mp3File("a.mp3", 192),
		mp3File("b.mp3", 128),
		mp3File("c.mp3", 192),
		mp3File("d.mp3", 128),
	}
	res := Analyze(files)

	if res.DominantBitrate != "192 kbps" {
		t.Errorf("tie should go to first-seen group, got %q", res.DominantBitrate)
	}
}

func TestAnalyzeHomogeneousFolderIsClean(t *testing.T) {
	files := []media.FileInfo{
		mp3File("a.mp3", 128),
		mp3File("b.mp3", 128),
		mp3File("c.mp3", 128),
	}
	res := Analyze(files)

	if !res.Clean() {
		t.Error("homogeneous folder should be clean")
	}
	if len(res.DifferingFormats) != 0 || len(res.DifferingBitrates) != 0 {
		t.Errorf("differing lists should be empty, got %d/%d",
			len(res.DifferingFormats), len(res.DifferingBitrates))
	}
}

func TestAnalyzeSingleFileIsClean(t *testing.T) {
	res := Analyze([]media.FileInfo{mp3File("a.mp3", 64)})
	if !res.Clean() {
		t.Error("single file folder should be clean")
	}
}

func TestAnalyzeNineToOneSplit(t *testing.T) {
	var files []media.FileInfo
	for i := 0; i < 9; i++ {
		files = append(files, mp3File(fmt.Sprintf("ep%d.mp3", i), 128))
	}
	files = append(files, mp3File("odd.mp3", 192))

	res := Analyze(files)

	groups := res.Bitrates.Groups()
	if len(groups) != 2 {
		t.Fatalf("got %d bitrate groups, want 2", len(groups))
	}
	if groups[0].Value != "128 kbps" || groups[0].Count() != 9 {
		t.Errorf("first group = %s x%d, want 128 kbps x9", groups[0].Value, groups[0].Count())
	}
	if groups[1].Value != "192 kbps" || groups[1].Count() != 1 {
		t.Errorf("second group = %s x%d, want 192 kbps x1", groups[1].Value, groups[1].Count())
	}
	if res.DominantBitrate != "128 kbps" {
		t.Errorf("DominantBitrate = %q", res.DominantBitrate)
	}
	if len(res.DifferingBitrates) != 1 || res.DifferingBitrates[0].File.Path != "odd.mp3" {
		t.Errorf("DifferingBitrates = %+v, want just odd.mp3", res.DifferingBitrates)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	res := Analyze(nil)

	if res.DominantFormat != UnknownValue || res.DominantBitrate != UnknownValue {
		t.Errorf("dominants = %q/%q, want unknown", res.DominantFormat, res.DominantBitrate)
	}
	if res.Formats.Len() != 0 || res.Bitrates.Len() != 0 {
		t.Error("breakdowns should be empty")
	}
	if res.AllVBR {
		t.Error("AllVBR should be false for empty input")
	}
}

func TestAnalyzeVBRIsItsOwnGroup(t *testing.T) {
	files := []media.FileInfo{
		mp3File("a.mp3", 128),
		{Path: "b.mp3", Format: "MP3", Bitrate: 190, VBR: true},
		{Path: "c.mp3", Format: "MP3", Bitrate: 210, VBR: true},
	}
	res := Analyze(files)

	if res.DominantBitrate != "VBR" {
		t.Errorf("DominantBitrate = %q, want VBR", res.DominantBitrate)
	}
	if res.Bitrates.Len() != 2 {
		t.Errorf("got %d bitrate groups, want 2 (VBR collapses into one)", res.Bitrates.Len())
	}
}

func TestAnalyzeDates(t *testing.T) {
	files := []media.FileInfo{
		{Path: "a.mp3", Format: "MP3", Bitrate: 128, RecordingDate: "2019-06-01"},
		{Path: "b.mp3", Format: "MP3", Bitrate: 128, RecordingDate: "2007-01-15"},
		{Path: "c.mp3", Format: "MP3", Bitrate: 128, RecordingDate: "2021-11-30"},
	}
	res := Analyze(files)

	if res.EarliestYear != 2007 {
		t.Errorf("EarliestYear = %d, want 2007", res.EarliestYear)
	}
	if res.LastEpisodeDate != "2021-11-30" {
		t.Errorf("LastEpisodeDate = %q, want 2021-11-30", res.LastEpisodeDate)
	}
}

func TestOverallLabels(t *testing.T) {
	tests := []struct {
		name        string
		files       []media.FileInfo
		wantFormat  string
		wantBitrate string
	}{
		{
			name: "clear majority",
			files: []media.FileInfo{
				mp3File("a.mp3", 128), mp3File("b.mp3", 128), mp3File("c.mp3", 128),
				mp3File("d.mp3", 128), mp3File("e.mp3", 128),
			},
			wantFormat:  "MP3",
			wantBitrate: "128 kbps",
		},
		{
			name: "even split is mixed",
			files: []media.FileInfo{
				mp3File("a.mp3", 128), mp3File("b.mp3", 192),
			},
			wantFormat:  "MP3",
			wantBitrate: "Mixed",
		},
		{
			name: "all vbr",
			files: []media.FileInfo{
				{Path: "a.mp3", Format: "MP3", Bitrate: 180, VBR: true},
				{Path: "b.mp3", Format: "MP3", Bitrate: 200, VBR: true},
			},
			wantFormat:  "MP3",
			wantBitrate: "VBR",
		},
		{
			name:        "empty",
			files:       nil,
			wantFormat:  UnknownValue,
			wantBitrate: UnknownValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Analyze(tt.files)
			if got := res.OverallFormat(); got != tt.wantFormat {
				t.Errorf("OverallFormat() = %q, want %q", got, tt.wantFormat)
			}
			if got := res.OverallBitrate(); got != tt.wantBitrate {
				t.Errorf("OverallBitrate() = %q, want %q", got, tt.wantBitrate)
			}
		})
	}
}
