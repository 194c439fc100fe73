package report

import (
	"strings"
	"testing"

	"podshare/internal/analysis"
	"podshare/internal/media"
	"podshare/internal/provider"
)

func file(rel, format string, bitrate int, vbr bool, date string) media.FileInfo {
	return media.FileInfo{
		Path:          "/library/" + rel,
		RelPath:       rel,
		Format:        format,
		Bitrate:       bitrate,
		VBR:           vbr,
		RecordingDate: date,
	}
}

func uniformFiles(n int) []media.FileInfo {
	files := make([]media.FileInfo, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, file(
			strings.Repeat("a", i+1)+".mp3", "mp3", 128, false, "2020-03-15"))
	}
	return files
}

func sectionTitles(doc Document) []string {
	titles := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		titles = append(titles, s.Title)
	}
	return titles
}

func findSection(t *testing.T, doc Document, title string) Section {
	t.Helper()
	for _, s := range doc.Sections {
		if s.Title == title {
			return s
		}
	}
	t.Fatalf("section %q not found, have %v", title, sectionTitles(doc))
	return Section{}
}

func hasSection(doc Document, title string) bool {
	for _, s := range doc.Sections {
		if s.Title == title {
			return true
		}
	}
	return false
}

func TestReleaseName(t *testing.T) {
	tests := []struct {
		name      string
		completed bool
		files     []media.FileInfo
		want      string
	}{
		{
			name:  "year span",
			files: []media.FileInfo{file("a.mp3", "mp3", 128, false, "2018-01-05"), file("b.mp3", "mp3", 128, false, "2021-11-30")},
			want:  "My Show (2018-November 30 2021)",
		},
		{
			name:      "completed",
			completed: true,
			files:     []media.FileInfo{file("a.mp3", "mp3", 128, false, "2018-01-05")},
			want:      "My Show (Complete)",
		},
		{
			name:  "no dates",
			files: []media.FileInfo{file("a.mp3", "mp3", 128, false, "")},
			want:  "My Show",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Build(Params{
				Name:      "My Show",
				Completed: tt.completed,
				Analysis:  analysis.Analyze(tt.files),
			})
			if doc.Name != tt.want {
				t.Errorf("Name = %q, want %q", doc.Name, tt.want)
			}
		})
	}
}

func TestSummarySection(t *testing.T) {
	doc := Build(Params{Name: "My Show", Analysis: analysis.Analyze(uniformFiles(10))})

	sec := doc.Sections[0]
	if sec.Title != "Summary" {
		t.Fatalf("first section = %q, want Summary", sec.Title)
	}
	for _, want := range []string{"Format: MP3", "Bitrate: 128 kbps", "Number of files: 10"} {
		if !strings.Contains(sec.Body, want) {
			t.Errorf("summary missing %q:\n%s", want, sec.Body)
		}
	}
}

func TestHomogeneousFolderHasNoBreakdowns(t *testing.T) {
	doc := Build(Params{Name: "My Show", Analysis: analysis.Analyze(uniformFiles(5))})

	for _, title := range []string{"Bitrate breakdown", "Format breakdown", "Differing bitrates", "Differing formats"} {
		if hasSection(doc, title) {
			t.Errorf("unexpected section %q for homogeneous folder", title)
		}
	}
}

func TestDifferingBitratesListsMinority(t *testing.T) {
	files := uniformFiles(9)
	files = append(files, file("odd.mp3", "mp3", 192, false, "2020-03-15"))

	doc := Build(Params{Name: "My Show", Analysis: analysis.Analyze(files)})

	sec := findSection(t, doc, "Differing bitrates")
	if !strings.Contains(sec.Body, "192 kbps:") || !strings.Contains(sec.Body, "odd.mp3") {
		t.Errorf("differing bitrates body:\n%s", sec.Body)
	}
	if strings.Contains(sec.Body, "128 kbps:") {
		t.Errorf("dominant group should not be listed:\n%s", sec.Body)
	}
	if hasSection(doc, "Bitrate breakdown") {
		t.Error("majority folder should not get the full breakdown")
	}
}

func TestMixedBitratesGetFullBreakdownSortedAscending(t *testing.T) {
	files := []media.FileInfo{
		file("a.mp3", "mp3", 192, false, ""),
		file("b.mp3", "mp3", 192, false, ""),
		file("c.mp3", "mp3", 128, false, ""),
		file("d.mp3", "mp3", 0, true, ""),
	}

	doc := Build(Params{Name: "My Show", Analysis: analysis.Analyze(files)})

	sec := findSection(t, doc, "Bitrate breakdown")
	i128 := strings.Index(sec.Body, "128 kbps:")
	i192 := strings.Index(sec.Body, "192 kbps:")
	iVBR := strings.Index(sec.Body, "VBR:")
	if i128 < 0 || i192 < 0 || iVBR < 0 {
		t.Fatalf("breakdown missing groups:\n%s", sec.Body)
	}
	if !(i128 < i192 && i192 < iVBR) {
		t.Errorf("groups not sorted ascending with VBR last:\n%s", sec.Body)
	}
	if hasSection(doc, "Differing bitrates") {
		t.Error("mixed folder should not also list differing bitrates")
	}
}

func TestFilesOnlyAlwaysIncludesBreakdowns(t *testing.T) {
	doc := Build(Params{
		Name:      "My Show",
		Analysis:  analysis.Analyze(uniformFiles(3)),
		FilesOnly: true,
		Show:      &provider.Show{Description: "should be skipped"},
	})

	if !hasSection(doc, "Bitrate breakdown") || !hasSection(doc, "Format breakdown") {
		t.Errorf("files-only report missing breakdowns: %v", sectionTitles(doc))
	}
	if hasSection(doc, "Description") {
		t.Error("files-only report should not include catalog metadata")
	}
}

func TestShowMetadataSections(t *testing.T) {
	doc := Build(Params{
		Name:     "My Show",
		Analysis: analysis.Analyze(uniformFiles(2)),
		Show: &provider.Show{
			Description: "A show about examples.",
			Categories:  []string{"News", "Politics"},
			Link:        "https://example.org",
			FeedURL:     "https://example.org/feed.xml",
		},
	})

	if got := findSection(t, doc, "Description").Body; got != "A show about examples." {
		t.Errorf("Description = %q", got)
	}
	if got := findSection(t, doc, "Tags").Body; got != "News, Politics" {
		t.Errorf("Tags = %q", got)
	}
	links := findSection(t, doc, "Links").Body
	if !strings.Contains(links, "https://example.org") || !strings.Contains(links, "feed.xml") {
		t.Errorf("Links = %q", links)
	}
}

func TestLastEpisodeIncluded(t *testing.T) {
	an := analysis.Analyze([]media.FileInfo{
		file("a.mp3", "mp3", 128, false, "2020-01-01"),
		file("b.mp3", "mp3", 128, false, "2021-06-10"),
	})

	doc := Build(Params{Name: "My Show", Analysis: an})
	if got := findSection(t, doc, "Last episode included").Body; got != "2021-06-10" {
		t.Errorf("last episode = %q", got)
	}

	done := Build(Params{Name: "My Show", Completed: true, Analysis: an})
	if hasSection(done, "Last episode included") {
		t.Error("completed show should not advertise a last episode")
	}
}

func TestUnreadableFilesWarning(t *testing.T) {
	doc := Build(Params{
		Name:     "My Show",
		Analysis: analysis.Analyze(uniformFiles(2)),
		Unreadable: []media.FileInfo{
			{RelPath: "broken.mp3", Unreadable: true, Reason: "no audio frames"},
		},
	})

	sec := findSection(t, doc, "Unreadable files (excluded from statistics)")
	if !strings.Contains(sec.Body, "broken.mp3") || !strings.Contains(sec.Body, "no audio frames") {
		t.Errorf("unreadable body:\n%s", sec.Body)
	}
}

func TestRender(t *testing.T) {
	doc := Document{
		Name: "My Show (Complete)",
		Sections: []Section{
			{Title: "Summary", Body: "Format: MP3"},
			{Title: "Description", Body: "A show."},
		},
	}

	out := Render(doc)
	if !strings.HasPrefix(out, "My Show (Complete)\n==================\n") {
		t.Errorf("render header:\n%s", out)
	}
	for _, want := range []string{"Summary\n-------\nFormat: MP3", "Description\n-----------\nA show."} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") || strings.HasSuffix(out, "\n\n") {
		t.Errorf("render should end with exactly one newline:\n%q", out)
	}
}

func TestBreakdownTable(t *testing.T) {
	an := analysis.Analyze([]media.FileInfo{
		file("a.mp3", "mp3", 128, false, ""),
		file("b.mp3", "mp3", 128, false, ""),
		file("c.mp3", "mp3", 192, false, ""),
	})

	out := BreakdownTable("Bitrates", an.Bitrates)
	for _, want := range []string{"Bitrates", "128 kbps", "192 kbps", "Total", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
