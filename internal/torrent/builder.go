package torrent

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"

	"podshare/internal/logger"
)

// ErrEmptyFolder is returned when the folder to package contains no files.
// A torrent must describe at least one file.
var ErrEmptyFolder = errors.New("folder contains no files")

// GeneratorString identifies this tool in created torrents.
const GeneratorString = "podshare/1.0"

// BuildRequest describes one torrent to create.
type BuildRequest struct {
	FolderPath  string
	OutputPath  string
	PieceLength int64
	AnnounceURL string
	Source      string // optional tracker source tag for cross-tracker uniqueness
	Private     bool
	Comment     string
	// CreationDate is an explicit input so that repeated builds of unchanged
	// content can produce byte-identical descriptors. It is never part of
	// the hashed info dictionary.
	CreationDate time.Time
	OnPiece      func(done, total int)
}

// Descriptor summarizes a written torrent file.
type Descriptor struct {
	Path        string
	InfoHash    string
	Name        string
	TotalSize   int64
	FileCount   int
	PieceLength int64
	PieceCount  int
}

// Builder assembles and serializes torrent descriptors.
type Builder struct {
	log *logger.Logger
}

// NewBuilder creates a new Builder
func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{log: log}
}

type fileEntry struct {
	relPath string
	size    int64
}

// Build enumerates the folder in lexicographic order, hashes the
// concatenated payload into fixed-size pieces and writes the bencoded
// descriptor to OutputPath. The output file is placed atomically: nothing
// is written until the full descriptor is assembled.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*Descriptor, error) {
	files, totalSize, err := enumerateFiles(req.FolderPath)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", req.FolderPath, ErrEmptyFolder)
	}
	if req.PieceLength <= 0 {
		return nil, fmt.Errorf("invalid piece length %d", req.PieceLength)
	}

	b.log.Debug("Hashing %d files (%d bytes) with piece length %d", len(files), totalSize, req.PieceLength)

	pieces, err := hashPieces(ctx, req.FolderPath, files, req.PieceLength, totalSize, req.OnPiece)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pieces: %w", err)
	}

	info := metainfo.Info{
		Name:        filepath.Base(req.FolderPath),
		PieceLength: req.PieceLength,
		Pieces:      pieces,
		Source:      req.Source,
	}
	if req.Private {
		private := true
		info.Private = &private
	}
	for _, fe := range files {
		info.Files = append(info.Files, metainfo.FileInfo{
			Length: fe.size,
			Path:   strings.Split(fe.relPath, "/"),
		})
	}

	infoBytes, err := bencode.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode info dictionary: %w", err)
	}

	mi := metainfo.MetaInfo{
		InfoBytes:    infoBytes,
		Announce:     req.AnnounceURL,
		Comment:      req.Comment,
		CreatedBy:    GeneratorString,
		CreationDate: req.CreationDate.Unix(),
	}

	if err := writeAtomic(req.OutputPath, mi); err != nil {
		return nil, err
	}

	desc := &Descriptor{
		Path:        req.OutputPath,
		InfoHash:    mi.HashInfoBytes().HexString(),
		Name:        info.Name,
		TotalSize:   totalSize,
		FileCount:   len(files),
		PieceLength: req.PieceLength,
		PieceCount:  len(pieces) / sha1.Size,
	}

	b.log.Debug("Wrote %s (infohash %s, %d pieces)", desc.Path, desc.InfoHash, desc.PieceCount)
	return desc, nil
}

// enumerateFiles lists every regular file under folder with its size,
// sorted lexicographically by relative path. WalkDir visits entries in
// lexical order, which keeps repeated builds deterministic.
func enumerateFiles(folder string) ([]fileEntry, int64, error) {
	if _, err := os.Stat(folder); err != nil {
		return nil, 0, fmt.Errorf("folder %s: %w", folder, err)
	}

	var files []fileEntry
	var total int64

	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		files = append(files, fileEntry{relPath: filepath.ToSlash(rel), size: info.Size()})
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to enumerate %s: %w", folder, err)
	}

	return files, total, nil
}

// hashPieces streams all files in enumeration order through a SHA-1 piece
// hasher and returns the concatenated piece hashes.
func hashPieces(ctx context.Context, folder string, files []fileEntry, pieceLength, totalSize int64, onPiece func(done, total int)) ([]byte, error) {
	totalPieces := pieceCount(totalSize, pieceLength)
	pieces := make([]byte, 0, totalPieces*sha1.Size)

	h := sha1.New()
	var inPiece int64
	done := 0

	flush := func() {
		pieces = h.Sum(pieces)
		h.Reset()
		inPiece = 0
		done++
		if onPiece != nil {
			onPiece(done, totalPieces)
		}
	}

	buf := make([]byte, 64*1024)
	for _, fe := range files {
		f, err := os.Open(filepath.Join(folder, filepath.FromSlash(fe.relPath)))
		if err != nil {
			return nil, err
		}

		for {
			select {
			case <-ctx.Done():
				f.Close()
				return nil, ctx.Err()
			default:
			}

			n, readErr := f.Read(buf)
			for off := 0; off < n; {
				room := pieceLength - inPiece
				chunk := int64(n - off)
				if chunk > room {
					chunk = room
				}
				h.Write(buf[off : off+int(chunk)])
				inPiece += chunk
				off += int(chunk)
				if inPiece == pieceLength {
					flush()
				}
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				f.Close()
				return nil, readErr
			}
		}
		f.Close()
	}

	if inPiece > 0 {
		flush()
	}

	return pieces, nil
}

// writeAtomic serializes the metainfo into a temp file in the destination
// directory, then renames it into place so no partial torrent is ever
// visible.
func writeAtomic(path string, mi metainfo.MetaInfo) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".podshare-*.torrent")
	if err != nil {
		return fmt.Errorf("failed to create torrent file in %s: %w", dir, err)
	}

	if err := mi.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write torrent file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close torrent file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to place torrent file at %s: %w", path, err)
	}

	return nil
}
