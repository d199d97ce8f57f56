package mp4source

import (
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
)

// readSample reads a progressive sample through the chunk tables.
func readSample(stbl *mp4.StblBox, reader io.ReadSeeker, sampleNr uint32) ([]byte, error) {
	if stbl == nil || stbl.Stsc == nil || stbl.Stsz == nil {
		return nil, fmt.Errorf("missing stsc or stsz box")
	}

	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return nil, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return nil, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return nil, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return nil, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < sampleNr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}

	data := make([]byte, stbl.Stsz.GetSampleSize(int(sampleNr)))
	if _, err := reader.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample: %w", err)
	}
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return data, nil
}

// parameterSets returns the SPS and PPS of an avcC box in Annex B form.
func parameterSets(avcC *mp4.AvcCBox) []byte {
	var out []byte
	for _, sps := range avcC.SPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, sps...)
	}
	for _, pps := range avcC.PPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, pps...)
	}
	return out
}

// avccToAnnexB converts 4-byte length-prefixed NAL units to start-code form.
// A truncated trailing unit is dropped.
func avccToAnnexB(data []byte) []byte {
	var result []byte
	offset := 0

	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4

		if naluLen < 0 || offset+naluLen > len(data) {
			break
		}

		result = append(result, 0, 0, 0, 1)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}

	return result
}
