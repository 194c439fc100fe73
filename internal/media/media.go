package media

import "fmt"

// FileInfo describes one audio file found in a podcast folder.
// Instances are rebuilt on every scan; paths are not stable across
// reorganization, so results must not be cached between runs.
type FileInfo struct {
	Path          string
	RelPath       string
	Format        string // container format derived from file content, e.g. "MP3"
	Bitrate       int    // kbps, 0 when unknown
	VBR           bool
	Size          int64
	RecordingDate string // raw date tag, "" when absent
	Unreadable    bool
	Reason        string // why the file could not be read
}

// BitrateLabel returns the bitrate as a grouping key. VBR files form their
// own group rather than collapsing into a numeric bucket.
func (f FileInfo) BitrateLabel() string {
	if f.VBR {
		return "VBR"
	}
	if f.Bitrate <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d kbps", f.Bitrate)
}

// Scan is the result of inspecting a podcast folder.
type Scan struct {
	Folder     string
	Files      []FileInfo // readable audio files, in stable folder-listing order
	Unreadable []FileInfo // flagged files, excluded from statistics
}

// TotalSize returns the combined size of all readable audio files.
func (s *Scan) TotalSize() int64 {
	var total int64
	for _, f := range s.Files {
		total += f.Size
	}
	return total
}
