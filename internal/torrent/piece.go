// Package torrent selects piece sizes and builds .torrent descriptor files.
package torrent

// PieceSizeConfig bounds the piece-size step function.
type PieceSizeConfig struct {
	Min          int64 // smallest piece size, power of two
	Max          int64 // largest piece size, power of two
	TargetPieces int   // stop growing once the piece count fits
}

// DefaultPieceSizeConfig bounds pieces to [16 KiB, 16 MiB] and aims for a
// piece count around 1000.
func DefaultPieceSizeConfig() PieceSizeConfig {
	return PieceSizeConfig{
		Min:          16 * 1024,
		Max:          16 * 1024 * 1024,
		TargetPieces: 1000,
	}
}

// SelectPieceSize returns the piece length for a payload of totalSize bytes:
// the smallest power-of-two piece size within [Min, Max] that keeps the
// piece count at or below TargetPieces. Pure and monotonic non-decreasing
// in totalSize, so re-creating a torrent for unchanged content always picks
// the same piece length.
func SelectPieceSize(totalSize int64, cfg PieceSizeConfig) int64 {
	piece := cfg.Min
	for piece < cfg.Max && pieceCount(totalSize, piece) > cfg.TargetPieces {
		piece <<= 1
	}
	return piece
}

func pieceCount(totalSize, pieceLength int64) int {
	if totalSize <= 0 {
		return 0
	}
	return int((totalSize + pieceLength - 1) / pieceLength)
}
