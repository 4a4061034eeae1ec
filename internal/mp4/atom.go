// Package mp4 extracts chapter markers from MPEG-4/ISO-BMFF audiobook
// containers. It walks the atom tree, locates the chapter text track
// referenced by the main audio track, rebuilds the track's sample table,
// and reads each text sample into an ordered chapter list.
package mp4

import (
	"github.com/alnah/audiospine/internal/binread"
)

// Atom is a single length-prefixed record in the container. Atoms exist
// only for the duration of one walk; nothing retains them afterwards.
type Atom struct {
	Type     string // 4-character type code
	Offset   int64  // position of the atom header in the file
	Size     uint64 // total size including header
	Extended bool   // 64-bit extended size header
}

// headerSize returns the size of the atom header in bytes.
func (a Atom) headerSize() int64 {
	if a.Extended {
		return 16
	}
	return 8
}

// DataOffset returns the file offset where the atom's payload starts.
func (a Atom) DataOffset() int64 {
	return a.Offset + a.headerSize()
}

// DataSize returns the size of the atom's payload.
func (a Atom) DataSize() int64 {
	hs := uint64(a.headerSize())
	if a.Size < hs {
		return 0
	}
	return int64(a.Size - hs)
}

// containerTypes are the atom types the walker recurses into. Everything
// else is either dispatched to a leaf handler or skipped opaquely.
var containerTypes = map[string]bool{
	"moov": true, // movie
	"trak": true, // track
	"mdia": true, // media
	"minf": true, // media information
	"stbl": true, // sample table
	"udta": true, // user data
}

// IsContainer reports whether the walker descends into this atom.
func (a Atom) IsContainer() bool {
	return containerTypes[a.Type]
}

// readAtomHeader reads an atom header at offset. The boundary is the end of
// the enclosing atom (or file): a declared size of zero means "extends to
// the boundary", and any size overshooting the boundary is clamped to it.
func readAtomHeader(src *binread.Source, offset, boundary int64) (Atom, error) {
	size32, err := binread.Read[uint32](src, offset, "atom size")
	if err != nil {
		return Atom{}, err
	}

	typeBytes := make([]byte, 4)
	if err := src.ReadAt(typeBytes, offset+4, "atom type"); err != nil {
		return Atom{}, err
	}

	atom := Atom{
		Type:   string(typeBytes),
		Offset: offset,
	}

	switch size32 {
	case 0:
		// Atom extends to the enclosing boundary.
		atom.Size = uint64(boundary - offset)
	case 1:
		size64, err := binread.Read[uint64](src, offset+8, "extended atom size")
		if err != nil {
			return Atom{}, err
		}
		atom.Size = size64
		atom.Extended = true
	default:
		atom.Size = uint64(size32)
	}

	// Clamp declared sizes that overshoot the boundary.
	if remaining := uint64(boundary - offset); atom.Size > remaining {
		atom.Size = remaining
	}

	return atom, nil
}

// findAtom scans [start, end) for the first atom of the given type.
// Returns ErrTrackNotFound-style absence as (zero, false) rather than an
// error: absence of an optional atom is a normal condition.
func findAtom(src *binread.Source, start, end int64, atomType string) (Atom, bool) {
	offset := start
	for offset < end {
		atom, err := readAtomHeader(src, offset, end)
		if err != nil {
			return Atom{}, false
		}
		if atom.Type == atomType {
			return atom, true
		}
		if atom.Size <= uint64(atom.headerSize()) {
			// Non-advancing atom; abandon the scan to guarantee termination.
			return Atom{}, false
		}
		offset += int64(atom.Size)
	}
	return Atom{}, false
}
