package mp4

import (
	"github.com/alnah/audiospine/internal/binread"
)

// maxWalkDepth bounds recursion on pathological containers. Real files nest
// at most moov/trak/mdia/minf/stbl plus udta descendants.
const maxWalkDepth = 16

// walkContext carries per-branch state through the recursive walk. It is
// immutable per call: entering a trak produces a new value, so sibling
// tracks never see each other's ids.
type walkContext struct {
	trackID uint32 // 0 means "not inside a trak"
}

// leafHandler processes a non-container atom. Handler errors abort only the
// handling of that one atom; the walk continues with the next sibling.
type leafHandler func(w *walker, atom Atom, wc walkContext) error

// walker accumulates per-track state while traversing the atom tree.
type walker struct {
	src      *binread.Source
	handlers map[string]leafHandler

	// tracks is keyed by numeric track id, built incrementally as leaf
	// handlers fire.
	tracks map[uint32]*trackState

	// chapterRefs holds track ids referenced by a tref/chap box, i.e. the
	// ids of chapter-bearing text tracks.
	chapterRefs map[uint32]bool
}

func newWalker(src *binread.Source) *walker {
	w := &walker{
		src:         src,
		tracks:      make(map[uint32]*trackState),
		chapterRefs: make(map[uint32]bool),
	}
	w.handlers = map[string]leafHandler{
		"tkhd": handleTrackHeader,
		"mdhd": handleMediaHeader,
		"tref": handleTrackReference,
		"stts": handleTimeToSample,
		"stsz": handleSampleSizes,
		"stco": handleChunkOffsets,
		"co64": handleChunkOffsets,
		"stsc": handleSampleToChunk,
	}
	return w
}

// track returns the state record for a track id, creating it on first use.
func (w *walker) track(id uint32) *trackState {
	ts, ok := w.tracks[id]
	if !ok {
		ts = &trackState{id: id}
		w.tracks[id] = ts
	}
	return ts
}

// walk traverses all sibling atoms in [start, end). One corrupt atom aborts
// only its own branch: the loop breaks, but whatever was accumulated before
// it stays usable, and outer levels keep walking.
func (w *walker) walk(start, end int64, wc walkContext, depth int) {
	if depth > maxWalkDepth {
		return
	}

	offset := start
	for offset < end {
		atom, err := readAtomHeader(w.src, offset, end)
		if err != nil {
			return
		}

		// A computed size at or below the header size cannot advance the
		// cursor; abandon this branch to guarantee termination.
		if atom.Size <= uint64(atom.headerSize()) {
			return
		}

		if atom.IsContainer() {
			childCtx := wc
			if atom.Type == "trak" {
				// Resolve the track id up front so every descendant handler
				// sees it in its context.
				childCtx = walkContext{trackID: w.peekTrackID(atom)}
			}
			w.walk(atom.DataOffset(), atom.DataOffset()+atom.DataSize(), childCtx, depth+1)
		} else if handler, ok := w.handlers[atom.Type]; ok {
			w.dispatch(handler, atom, wc)
		}

		offset += int64(atom.Size)
	}
}

// dispatch runs one leaf handler. A failing handler, error or panic, costs
// only its own atom; the rest of the file may still carry good data.
func (w *walker) dispatch(handler leafHandler, atom Atom, wc walkContext) {
	defer func() { _ = recover() }()
	_ = handler(w, atom, wc)
}

// peekTrackID reads the track id from a trak's tkhd before descending, so
// the walk context can carry it. Returns 0 when the tkhd is absent or
// unreadable; such a track accumulates no state.
func (w *walker) peekTrackID(trak Atom) uint32 {
	tkhd, ok := findAtom(w.src, trak.DataOffset(), trak.DataOffset()+trak.DataSize(), "tkhd")
	if !ok {
		return 0
	}
	id, err := readTrackHeaderID(w.src, tkhd)
	if err != nil {
		return 0
	}
	return id
}
