// Binary encoding for pattern analysis blobs.
//
// Analysis format v1 (little-endian):
//
//	version:  uint8 (1)
//	length:   uint32
//	period:   uint32
//	lpsCount: uint32
//	lps:      [lpsCount]uint32
//	witCount: uint32
//	witness:  [witCount]uint32
//
// Scan reports are small and irregular; they use gob.
package bbolt

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/corey/pmatch/internal/ports"
)

const analysisVersion = 1

// AnalysisKey derives the cache key of a pattern: its xxhash64 and length.
// Keys are only a lookup aid; match.FromAnalysis recomputes the loaded tables
// and rejects any that differ.
func AnalysisKey(pattern []byte) string {
	return strconv.FormatUint(xxhash.Sum64(pattern), 16) + ":" + strconv.Itoa(len(pattern))
}

// encodeAnalysis encodes an analysis in a single pre-sized buffer.
func encodeAnalysis(a *ports.PatternAnalysis) ([]byte, error) {
	if a.Length < 0 || a.Period < 0 {
		return nil, fmt.Errorf("negative length or period")
	}
	size := 1 + 4 + 4 + 4 + 4*len(a.LPS) + 4 + 4*len(a.Witness)
	buf := make([]byte, size)
	offset := 0

	buf[offset] = analysisVersion
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], uint32(a.Length))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(a.Period))
	offset += 4
	offset = putInts(buf, offset, a.LPS)
	putInts(buf, offset, a.Witness)
	return buf, nil
}

func putInts(buf []byte, offset int, vals []int) int {
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(vals)))
	offset += 4
	for _, v := range vals {
		binary.LittleEndian.PutUint32(buf[offset:], uint32(v))
		offset += 4
	}
	return offset
}

// decodeAnalysis decodes an analysis blob.
// Every read is bounds-checked to avoid panics on corrupt data.
func decodeAnalysis(data []byte) (*ports.PatternAnalysis, error) {
	if len(data) < 9 {
		return nil, fmt.Errorf("analysis too short: %d bytes", len(data))
	}
	if data[0] != analysisVersion {
		return nil, fmt.Errorf("unsupported analysis version %d", data[0])
	}
	offset := 1
	a := &ports.PatternAnalysis{
		Length: int(binary.LittleEndian.Uint32(data[offset:])),
		Period: int(binary.LittleEndian.Uint32(data[offset+4:])),
	}
	offset += 8

	var err error
	if a.LPS, offset, err = readInts(data, offset, "lps"); err != nil {
		return nil, err
	}
	if a.Witness, offset, err = readInts(data, offset, "witness"); err != nil {
		return nil, err
	}
	if offset != len(data) {
		return nil, fmt.Errorf("trailing %d bytes after witness", len(data)-offset)
	}
	return a, nil
}

func readInts(data []byte, offset int, what string) ([]int, int, error) {
	if offset+4 > len(data) {
		return nil, offset, fmt.Errorf("truncated at %s count (offset %d)", what, offset)
	}
	count := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	if count > (len(data)-offset)/4 {
		return nil, offset, fmt.Errorf("truncated %s (offset %d, need %d entries)", what, offset, count)
	}
	vals := make([]int, count)
	for i := range vals {
		vals[i] = int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
	}
	return vals, offset, nil
}

// encodeGob encodes a value using gob.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob decodes gob-encoded data into target. Target must be a pointer.
func decodeGob(data []byte, target interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(target)
}
