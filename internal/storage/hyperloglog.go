package storage

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// The HyperLogLog overlay stores 64-bit xxhash digests of the observed
// members inside an ordinary string value, behind a magic header. Counting
// is therefore exact, which is the behavior an emulator wants: the
// probabilistic encoding is an implementation detail of the real server,
// while tests depend on the observable counts.

var ErrNotHyperLogLog = errors.New("WRONGTYPE Key is not a valid HyperLogLog string value.")

var hllMagic = []byte("HYLL")

// IsHyperLogLog checks the magic header
func IsHyperLogLog(data []byte) bool {
	return len(data) >= len(hllMagic) && string(data[:len(hllMagic)]) == string(hllMagic)
}

func hllDigests(data []byte) (map[uint64]struct{}, error) {
	if len(data) == 0 {
		return make(map[uint64]struct{}), nil
	}
	if !IsHyperLogLog(data) || (len(data)-len(hllMagic))%8 != 0 {
		return nil, ErrNotHyperLogLog
	}
	body := data[len(hllMagic):]
	out := make(map[uint64]struct{}, len(body)/8)
	for i := 0; i < len(body); i += 8 {
		out[binary.BigEndian.Uint64(body[i:i+8])] = struct{}{}
	}
	return out, nil
}

func hllEncode(digests map[uint64]struct{}) []byte {
	sorted := make([]uint64, 0, len(digests))
	for d := range digests {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make([]byte, len(hllMagic)+8*len(sorted))
	copy(out, hllMagic)
	for i, d := range sorted {
		binary.BigEndian.PutUint64(out[len(hllMagic)+8*i:], d)
	}
	return out
}

// HLLAdd registers members, returning the updated payload and whether it
// changed: a new member raised the cardinality, or the input payload was
// empty and a fresh one was created
func HLLAdd(data []byte, members [][]byte) ([]byte, bool, error) {
	digests, err := hllDigests(data)
	if err != nil {
		return nil, false, err
	}
	changed := false
	for _, m := range members {
		d := xxhash.Sum64(m)
		if _, ok := digests[d]; !ok {
			digests[d] = struct{}{}
			changed = true
		}
	}
	if !changed && len(data) > 0 {
		return data, false, nil
	}
	return hllEncode(digests), changed || len(data) == 0, nil
}

// HLLCount unions the payloads and returns the cardinality
func HLLCount(datas ...[]byte) (int64, error) {
	union := make(map[uint64]struct{})
	for _, data := range datas {
		digests, err := hllDigests(data)
		if err != nil {
			return 0, err
		}
		for d := range digests {
			union[d] = struct{}{}
		}
	}
	return int64(len(union)), nil
}

// HLLMerge unions the payloads into a single payload
func HLLMerge(datas ...[]byte) ([]byte, error) {
	union := make(map[uint64]struct{})
	for _, data := range datas {
		digests, err := hllDigests(data)
		if err != nil {
			return nil, err
		}
		for d := range digests {
			union[d] = struct{}{}
		}
	}
	return hllEncode(union), nil
}
