package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
	"go.senan.xyz/taglib"

	"podshare/internal/logger"
)

// Supported audio file extensions
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".aac":  true,
	".ogg":  true,
	".opus": true,
	".flac": true,
	".wav":  true,
}

// probeResult holds the technical attributes read from a single file.
type probeResult struct {
	format        string
	bitrate       int
	vbr           bool
	recordingDate string
}

type probeFunc func(path string) (probeResult, error)

// Inspector reads per-file technical attributes for every audio file in a
// folder. It never modifies the folder.
type Inspector struct {
	log   *logger.Logger
	probe probeFunc
}

// NewInspector creates a new Inspector
func NewInspector(log *logger.Logger) *Inspector {
	return &Inspector{
		log:   log,
		probe: probeFile,
	}
}

// Scan walks the folder recursively and returns a FileInfo for every
// recognized audio file. A file that cannot be read is flagged and listed
// under Unreadable instead of aborting the scan. A missing folder is a
// fatal error.
func (ins *Inspector) Scan(folder string) (*Scan, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("podcast folder %s: %w", folder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("podcast folder %s is not a directory", folder)
	}

	scan := &Scan{Folder: folder}

	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			ins.log.Warn("Skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, relErr := filepath.Rel(folder, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}

		fi := FileInfo{Path: path, RelPath: filepath.ToSlash(rel)}
		if stat, statErr := os.Stat(path); statErr == nil {
			fi.Size = stat.Size()
		}

		res, probeErr := ins.probe(path)
		if probeErr != nil {
			fi.Unreadable = true
			fi.Reason = probeErr.Error()
			ins.log.Warn("Unreadable file %s: %v", path, probeErr)
			scan.Unreadable = append(scan.Unreadable, fi)
			return nil
		}

		fi.Format = res.format
		fi.Bitrate = res.bitrate
		fi.VBR = res.vbr
		fi.RecordingDate = res.recordingDate
		scan.Files = append(scan.Files, fi)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking folder %s: %w", folder, err)
	}

	ins.log.Debug("Scanned %s: %d audio files, %d unreadable", folder, len(scan.Files), len(scan.Unreadable))
	return scan, nil
}

// probeFile reads container format, bitrate and recording date for one file.
func probeFile(path string) (probeResult, error) {
	var res probeResult

	format, err := identifyFormat(path)
	if err != nil {
		return res, err
	}
	res.format = format

	props, err := taglib.ReadProperties(path)
	if err != nil {
		return res, fmt.Errorf("failed to read audio properties: %w", err)
	}
	res.bitrate = int(props.Bitrate)

	switch format {
	case "MP3":
		vbr, vbrErr := mp3IsVBR(path)
		if vbrErr == nil {
			res.vbr = vbr
		}
	default:
		// No frame-level probe for other containers; a zero bitrate is the
		// only VBR signal we get.
		res.vbr = res.bitrate == 0
	}

	if tags, tagErr := taglib.ReadTags(path); tagErr == nil {
		if vals := tags[taglib.Date]; len(vals) > 0 {
			res.recordingDate = vals[0]
		}
	}

	return res, nil
}

// identifyFormat sniffs the container format from file content. Files whose
// content carries no recognizable tag header fall back to the extension.
func identifyFormat(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, fileType, err := tag.Identify(f)
	if err == nil && fileType != tag.UnknownFileType {
		return string(fileType), nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !audioExtensions[ext] {
		return "", fmt.Errorf("unrecognized audio container")
	}
	return strings.ToUpper(strings.TrimPrefix(ext, ".")), nil
}

// mp3IsVBR scans the first MP3 frames and reports whether their bitrates
// differ. A constant bitrate across the sampled frames means CBR.
func mp3IsVBR(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	const sampleFrames = 64

	dec := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	first := -1

	for i := 0; i < sampleFrames; i++ {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return false, err
		}
		rate := int(frame.Header().BitRate())
		if first == -1 {
			first = rate
		} else if rate != first {
			return true, nil
		}
	}

	return false, nil
}
