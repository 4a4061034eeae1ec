package mp4

import (
	"github.com/alnah/audiospine/internal/binread"
)

// defaultTimescale is used when a track carries no usable mdhd timescale.
// 600 is the QuickTime convention and avoids division by zero downstream.
const defaultTimescale = 600

// timeToSampleEntry is one stts run: count samples sharing one duration.
type timeToSampleEntry struct {
	count    uint32
	duration uint32
}

// sampleToChunkEntry is one stsc breakpoint: from firstChunk (1-based)
// onward, each chunk holds samplesPerChunk samples, until the next entry.
type sampleToChunkEntry struct {
	firstChunk      uint32
	samplesPerChunk uint32
}

// trackState is the per-track mapping accumulated while walking. It holds
// the four parallel sample tables plus the media timescale, exactly what
// sample reconstruction needs and nothing more.
type trackState struct {
	id        uint32
	timescale uint32

	durations   []timeToSampleEntry
	uniformSize uint32
	sampleSizes []uint32
	sampleCount uint32

	chunkOffsets []int64
	chunkRuns    []sampleToChunkEntry
}

// Timescale returns the track's ticks-per-second, defaulting when the mdhd
// was absent or declared zero.
func (ts *trackState) Timescale() uint32 {
	if ts.timescale == 0 {
		return defaultTimescale
	}
	return ts.timescale
}

// readTrackHeaderID reads the track id from a tkhd atom. The id field sits
// at a version-dependent offset past the version byte.
func readTrackHeaderID(src *binread.Source, tkhd Atom) (uint32, error) {
	version, err := binread.Read[uint8](src, tkhd.DataOffset(), "tkhd version")
	if err != nil {
		return 0, err
	}

	idOffset := tkhd.DataOffset() + 12 // version 0: 4 flags + 2x 32-bit times
	if version == 1 {
		idOffset = tkhd.DataOffset() + 20 // version 1: 4 flags + 2x 64-bit times
	}
	return binread.Read[uint32](src, idOffset, "track id")
}

// handleTrackHeader registers the track in the per-track mapping.
func handleTrackHeader(w *walker, atom Atom, wc walkContext) error {
	id, err := readTrackHeaderID(w.src, atom)
	if err != nil {
		return err
	}
	w.track(id)
	return nil
}

// handleMediaHeader records the media timescale for the current track.
func handleMediaHeader(w *walker, atom Atom, wc walkContext) error {
	if wc.trackID == 0 {
		return nil
	}

	version, err := binread.Read[uint8](w.src, atom.DataOffset(), "mdhd version")
	if err != nil {
		return err
	}

	tsOffset := atom.DataOffset() + 12 // version 0: 4 flags + 2x 32-bit times
	if version == 1 {
		tsOffset = atom.DataOffset() + 20 // version 1: 4 flags + 2x 64-bit times
	}

	timescale, err := binread.Read[uint32](w.src, tsOffset, "media timescale")
	if err != nil {
		return err
	}
	w.track(wc.trackID).timescale = timescale
	return nil
}

// handleTrackReference scans a tref payload for a chap sub-box and marks
// every referenced id as a chapter-bearing track. The reference lives in
// the referring (audio) track, so this is where chapter tracks get
// identified.
func handleTrackReference(w *walker, atom Atom, wc walkContext) error {
	chap, ok := findAtom(w.src, atom.DataOffset(), atom.DataOffset()+atom.DataSize(), "chap")
	if !ok {
		return nil
	}

	c := binread.NewCursor(w.src, chap.DataOffset())
	for read := int64(0); read+4 <= chap.DataSize(); read += 4 {
		id, err := binread.Next[uint32](c, "chapter track reference")
		if err != nil {
			return err
		}
		if id != 0 {
			w.chapterRefs[id] = true
		}
	}
	return nil
}

// handleTimeToSample reads the stts duration run-lengths.
func handleTimeToSample(w *walker, atom Atom, wc walkContext) error {
	if wc.trackID == 0 {
		return nil
	}

	c := binread.NewCursor(w.src, atom.DataOffset())
	c.Skip(4) // version + flags

	entryCount, err := binread.Next[uint32](c, "stts entry count")
	if err != nil {
		return err
	}
	entryCount = clampEntryCount(entryCount, atom.DataSize()-8, 8)

	entries := make([]timeToSampleEntry, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		count, err := binread.Next[uint32](c, "stts sample count")
		if err != nil {
			break // keep the consistent prefix
		}
		duration, err := binread.Next[uint32](c, "stts sample duration")
		if err != nil {
			break
		}
		entries = append(entries, timeToSampleEntry{count: count, duration: duration})
	}

	w.track(wc.trackID).durations = entries
	return nil
}

// handleSampleSizes reads the stsz table: either one uniform size plus a
// count, or one size per sample.
func handleSampleSizes(w *walker, atom Atom, wc walkContext) error {
	if wc.trackID == 0 {
		return nil
	}

	c := binread.NewCursor(w.src, atom.DataOffset())
	c.Skip(4) // version + flags

	uniform, err := binread.Next[uint32](c, "stsz uniform size")
	if err != nil {
		return err
	}
	count, err := binread.Next[uint32](c, "stsz sample count")
	if err != nil {
		return err
	}

	ts := w.track(wc.trackID)
	ts.uniformSize = uniform
	ts.sampleCount = count

	if uniform != 0 {
		return nil
	}

	count = clampEntryCount(count, atom.DataSize()-12, 4)
	sizes := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		size, err := binread.Next[uint32](c, "stsz sample size")
		if err != nil {
			break
		}
		sizes = append(sizes, size)
	}
	ts.sampleSizes = sizes
	return nil
}

// handleChunkOffsets reads stco (32-bit) or co64 (64-bit) chunk offsets.
func handleChunkOffsets(w *walker, atom Atom, wc walkContext) error {
	if wc.trackID == 0 {
		return nil
	}

	wide := atom.Type == "co64"
	entryWidth := int64(4)
	if wide {
		entryWidth = 8
	}

	c := binread.NewCursor(w.src, atom.DataOffset())
	c.Skip(4) // version + flags

	count, err := binread.Next[uint32](c, "chunk offset count")
	if err != nil {
		return err
	}
	count = clampEntryCount(count, atom.DataSize()-8, entryWidth)

	offsets := make([]int64, 0, count)
	for i := uint32(0); i < count; i++ {
		var off int64
		if wide {
			v, err := binread.Next[uint64](c, "chunk offset")
			if err != nil {
				break
			}
			off = int64(v)
		} else {
			v, err := binread.Next[uint32](c, "chunk offset")
			if err != nil {
				break
			}
			off = int64(v)
		}
		offsets = append(offsets, off)
	}

	w.track(wc.trackID).chunkOffsets = offsets
	return nil
}

// handleSampleToChunk reads the stsc breakpoint table.
func handleSampleToChunk(w *walker, atom Atom, wc walkContext) error {
	if wc.trackID == 0 {
		return nil
	}

	c := binread.NewCursor(w.src, atom.DataOffset())
	c.Skip(4) // version + flags

	count, err := binread.Next[uint32](c, "stsc entry count")
	if err != nil {
		return err
	}
	count = clampEntryCount(count, atom.DataSize()-8, 12)

	entries := make([]sampleToChunkEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		firstChunk, err := binread.Next[uint32](c, "stsc first chunk")
		if err != nil {
			break
		}
		samplesPerChunk, err := binread.Next[uint32](c, "stsc samples per chunk")
		if err != nil {
			break
		}
		c.Skip(4) // sample description index, unused
		entries = append(entries, sampleToChunkEntry{
			firstChunk:      firstChunk,
			samplesPerChunk: samplesPerChunk,
		})
	}

	w.track(wc.trackID).chunkRuns = entries
	return nil
}

// clampEntryCount limits a declared table entry count to what the atom
// payload can actually hold, so corrupt counts cannot trigger huge reads.
func clampEntryCount(declared uint32, payload, entryWidth int64) uint32 {
	if payload < 0 {
		return 0
	}
	maxEntries := payload / entryWidth
	if int64(declared) > maxEntries {
		return uint32(maxEntries)
	}
	return declared
}
