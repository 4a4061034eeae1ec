package mp4

import (
	"bytes"
	"encoding/binary"
)

// atom assembles a synthetic atom: 4-byte size, 4-byte type, payload.
func atom(typ string, payloads ...[]byte) []byte {
	buf := &bytes.Buffer{}
	total := 8
	for _, p := range payloads {
		total += len(p)
	}
	_ = binary.Write(buf, binary.BigEndian, uint32(total))
	buf.WriteString(typ)
	for _, p := range payloads {
		buf.Write(p)
	}
	return buf.Bytes()
}

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// tkhdAtom builds a version 0 track header with the given id.
func tkhdAtom(trackID uint32) []byte {
	payload := &bytes.Buffer{}
	payload.Write([]byte{0, 0, 0, 0}) // version + flags
	payload.Write(make([]byte, 8))    // creation + modification time
	payload.Write(be32(trackID))
	payload.Write(make([]byte, 8)) // reserved + duration
	return atom("tkhd", payload.Bytes())
}

// mdhdAtom builds a version 0 media header with the given timescale.
func mdhdAtom(timescale uint32) []byte {
	payload := &bytes.Buffer{}
	payload.Write([]byte{0, 0, 0, 0}) // version + flags
	payload.Write(make([]byte, 8))    // creation + modification time
	payload.Write(be32(timescale))
	payload.Write(be32(0)) // duration
	return atom("mdhd", payload.Bytes())
}

// trefChapAtom builds a tref box referencing the given chapter track ids.
func trefChapAtom(ids ...uint32) []byte {
	payload := &bytes.Buffer{}
	for _, id := range ids {
		payload.Write(be32(id))
	}
	return atom("tref", atom("chap", payload.Bytes()))
}

// sttsAtom builds a time-to-sample table from (count, duration) pairs.
func sttsAtom(entries ...[2]uint32) []byte {
	payload := &bytes.Buffer{}
	payload.Write([]byte{0, 0, 0, 0}) // version + flags
	payload.Write(be32(uint32(len(entries))))
	for _, e := range entries {
		payload.Write(be32(e[0]))
		payload.Write(be32(e[1]))
	}
	return atom("stts", payload.Bytes())
}

// stszAtom builds a per-sample size table.
func stszAtom(sizes ...uint32) []byte {
	payload := &bytes.Buffer{}
	payload.Write([]byte{0, 0, 0, 0}) // version + flags
	payload.Write(be32(0))            // no uniform size
	payload.Write(be32(uint32(len(sizes))))
	for _, s := range sizes {
		payload.Write(be32(s))
	}
	return atom("stsz", payload.Bytes())
}

// stcoAtom builds a 32-bit chunk offset table.
func stcoAtom(offsets ...uint32) []byte {
	payload := &bytes.Buffer{}
	payload.Write([]byte{0, 0, 0, 0}) // version + flags
	payload.Write(be32(uint32(len(offsets))))
	for _, o := range offsets {
		payload.Write(be32(o))
	}
	return atom("stco", payload.Bytes())
}

// stscAtom builds a sample-to-chunk table from (firstChunk, samplesPerChunk).
func stscAtom(entries ...[2]uint32) []byte {
	payload := &bytes.Buffer{}
	payload.Write([]byte{0, 0, 0, 0}) // version + flags
	payload.Write(be32(uint32(len(entries))))
	for _, e := range entries {
		payload.Write(be32(e[0]))
		payload.Write(be32(e[1]))
		payload.Write(be32(1)) // sample description index
	}
	return atom("stsc", payload.Bytes())
}

// textSample encodes one chapter text sample with its 2-byte length prefix.
func textSample(title string) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte(byte(len(title) >> 8))
	buf.WriteByte(byte(len(title)))
	buf.WriteString(title)
	return buf.Bytes()
}

// chapterContainer builds a complete synthetic container: an mdat atom
// carrying the text samples followed by a moov with an audio track (id 1)
// referencing a chapter text track (id 2). Sample durations are in ticks
// of the given timescale. Returns the file bytes.
func chapterContainer(timescale uint32, titles []string, durations []uint32) []byte {
	// Lay out text samples inside mdat and record their absolute offsets.
	data := &bytes.Buffer{}
	sizes := make([]uint32, len(titles))
	offsets := make([]uint32, len(titles))
	const mdatHeader = 8
	for i, title := range titles {
		s := textSample(title)
		offsets[i] = uint32(mdatHeader + data.Len())
		sizes[i] = uint32(len(s))
		data.Write(s)
	}
	mdat := atom("mdat", data.Bytes())

	sttsEntries := make([][2]uint32, len(durations))
	for i, d := range durations {
		sttsEntries[i] = [2]uint32{1, d}
	}

	audioTrak := atom("trak", tkhdAtom(1), trefChapAtom(2))
	textTrak := atom("trak",
		tkhdAtom(2),
		atom("mdia",
			mdhdAtom(timescale),
			atom("minf",
				atom("stbl",
					sttsAtom(sttsEntries...),
					stszAtom(sizes...),
					stcoAtom(offsets...),
				),
			),
		),
	)
	moov := atom("moov", audioTrak, textTrak)

	out := &bytes.Buffer{}
	out.Write(mdat)
	out.Write(moov)
	return out.Bytes()
}
