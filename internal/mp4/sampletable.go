package mp4

// maxSampleExpansion caps how many per-sample entries run-length expansion
// may produce. A chapter track with a million samples is not a chapter
// track; tables claiming more are corrupt.
const maxSampleExpansion = 1 << 20

// sample is one addressable sample on a track: where its bytes live and
// how long it plays, in track-local ticks.
type sample struct {
	offset   int64
	size     uint32
	duration uint64
}

// reconstructSamples rebuilds the per-sample (offset, size, duration) list
// from the four parallel tables. Inconsistent table lengths truncate to the
// shortest consistent prefix rather than indexing past any array.
func reconstructSamples(ts *trackState) []sample {
	durations := expandDurations(ts.durations)
	sizes := expandSizes(ts)
	perChunk := expandChunkRuns(ts.chunkRuns, len(ts.chunkOffsets))

	// Walk chunks in order, advancing a byte cursor by each sample's size
	// within its chunk. This mirrors how the container itself locates media
	// without a separate index.
	samples := make([]sample, 0, min(len(durations), len(sizes)))
	sampleIdx := 0
	for chunkIdx, base := range ts.chunkOffsets {
		cursor := base
		for i := uint32(0); i < perChunk[chunkIdx]; i++ {
			if sampleIdx >= len(sizes) || sampleIdx >= len(durations) {
				return samples
			}
			size := sizes[sampleIdx]
			samples = append(samples, sample{
				offset:   cursor,
				size:     size,
				duration: uint64(durations[sampleIdx]),
			})
			cursor += int64(size)
			sampleIdx++
		}
	}
	return samples
}

// expandDurations flattens stts run-lengths into one duration per sample,
// capped to reject tables claiming implausible sample counts.
func expandDurations(entries []timeToSampleEntry) []uint32 {
	var out []uint32
	for _, e := range entries {
		for i := uint32(0); i < e.count; i++ {
			if len(out) >= maxSampleExpansion {
				return out
			}
			out = append(out, e.duration)
		}
	}
	return out
}

// expandSizes resolves the stsz table to one size per sample.
func expandSizes(ts *trackState) []uint32 {
	if ts.uniformSize != 0 {
		count := ts.sampleCount
		if count > maxSampleExpansion {
			count = maxSampleExpansion
		}
		sizes := make([]uint32, count)
		for i := range sizes {
			sizes[i] = ts.uniformSize
		}
		return sizes
	}
	return ts.sampleSizes
}

// expandChunkRuns resolves stsc breakpoints into a sample count for every
// discovered chunk. Each breakpoint is valid from its firstChunk (1-based)
// until the next one; the final breakpoint extends to the last chunk. An
// absent table means one sample per chunk, which is how chapter text tracks
// are normally laid out.
func expandChunkRuns(entries []sampleToChunkEntry, chunkCount int) []uint32 {
	perChunk := make([]uint32, chunkCount)
	for i := range perChunk {
		perChunk[i] = 1
	}

	for idx, e := range entries {
		if e.firstChunk < 1 {
			continue
		}
		start := int(e.firstChunk - 1)
		end := chunkCount
		if idx+1 < len(entries) && int(entries[idx+1].firstChunk-1) < end {
			end = int(entries[idx+1].firstChunk - 1)
		}
		for c := start; c < end && c < chunkCount; c++ {
			perChunk[c] = e.samplesPerChunk
		}
	}
	return perChunk
}
