package storage

import "math/rand"

// Hash is a field to value mapping. Keys and values are binary safe;
// iteration order is unspecified.
type Hash map[string][]byte

func NewHash() Hash {
	return make(Hash)
}

// Set stores the field, returning true if it was newly created
func (h Hash) Set(field string, value []byte) bool {
	_, existed := h[field]
	h[field] = value
	return !existed
}

func (h Hash) Get(field string) ([]byte, bool) {
	v, ok := h[field]
	return v, ok
}

func (h Hash) Delete(field string) bool {
	if _, ok := h[field]; !ok {
		return false
	}
	delete(h, field)
	return true
}

func (h Hash) Fields() []string {
	out := make([]string, 0, len(h))
	for f := range h {
		out = append(out, f)
	}
	return out
}

// RandFields draws count distinct fields (count <= len). The caller handles
// the with-repetition case.
func (h Hash) RandFields(rng *rand.Rand, count int) []string {
	fields := h.Fields()
	rng.Shuffle(len(fields), func(i, j int) {
		fields[i], fields[j] = fields[j], fields[i]
	})
	if count < len(fields) {
		fields = fields[:count]
	}
	return fields
}

func (h Hash) Clone() Hash {
	out := make(Hash, len(h))
	for f, v := range h {
		b := make([]byte, len(v))
		copy(b, v)
		out[f] = b
	}
	return out
}
