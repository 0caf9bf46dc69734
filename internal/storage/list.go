package storage

// List is an ordered sequence of byte strings. The representation is a
// plain slice; pushes at the head shift, which keeps the code simple and is
// fine at emulator scale.
type List struct {
	items [][]byte
}

func NewList() *List {
	return &List{}
}

func (l *List) Len() int {
	return len(l.items)
}

func (l *List) PushHead(vals ...[]byte) {
	for _, v := range vals {
		l.items = append([][]byte{v}, l.items...)
	}
}

func (l *List) PushTail(vals ...[]byte) {
	l.items = append(l.items, vals...)
}

func (l *List) PopHead() ([]byte, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	v := l.items[0]
	l.items = l.items[1:]
	return v, true
}

func (l *List) PopTail() ([]byte, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	v := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	return v, true
}

// Index resolves a possibly negative index; ok is false when out of range
func (l *List) Index(i int) ([]byte, bool) {
	if i < 0 {
		i += len(l.items)
	}
	if i < 0 || i >= len(l.items) {
		return nil, false
	}
	return l.items[i], true
}

func (l *List) Set(i int, v []byte) bool {
	if i < 0 {
		i += len(l.items)
	}
	if i < 0 || i >= len(l.items) {
		return false
	}
	l.items[i] = v
	return true
}

// Range returns the elements between start and stop inclusive, with
// negative offsets counted from the tail
func (l *List) Range(start, stop int) [][]byte {
	n := len(l.items)
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil
	}
	out := make([][]byte, stop-start+1)
	copy(out, l.items[start:stop+1])
	return out
}

// Trim keeps only the inclusive range, removing everything else
func (l *List) Trim(start, stop int) {
	l.items = l.Range(start, stop)
}

// Insert places v before or after the first occurrence of pivot.
// Returns the new length, or -1 if the pivot is absent.
func (l *List) Insert(before bool, pivot, v []byte) int {
	for i, it := range l.items {
		if string(it) == string(pivot) {
			pos := i
			if !before {
				pos = i + 1
			}
			l.items = append(l.items, nil)
			copy(l.items[pos+1:], l.items[pos:])
			l.items[pos] = v
			return len(l.items)
		}
	}
	return -1
}

// Remove deletes up to count occurrences of v: count > 0 from the head,
// count < 0 from the tail, count == 0 all
func (l *List) Remove(count int, v []byte) int {
	removed := 0
	if count >= 0 {
		limit := count
		out := l.items[:0]
		for _, it := range l.items {
			if string(it) == string(v) && (limit == 0 && count == 0 || removed < limit) {
				removed++
				continue
			}
			out = append(out, it)
		}
		l.items = out
		return removed
	}

	limit := -count
	kept := make([][]byte, 0, len(l.items))
	for i := len(l.items) - 1; i >= 0; i-- {
		it := l.items[i]
		if string(it) == string(v) && removed < limit {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	// kept is reversed
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	l.items = kept
	return removed
}

// Pos finds occurrences of v. rank selects which match to start from
// (negative ranks scan from the tail); count 0 means all matches; maxlen
// bounds the number of comparisons (0 = unlimited).
func (l *List) Pos(v []byte, rank, count, maxlen int) []int {
	var out []int
	n := len(l.items)

	if rank == 0 {
		rank = 1
	}
	fromTail := rank < 0
	if fromTail {
		rank = -rank
	}

	seen := 0
	compared := 0
	for step := 0; step < n; step++ {
		i := step
		if fromTail {
			i = n - 1 - step
		}
		compared++
		if maxlen > 0 && compared > maxlen {
			break
		}
		if string(l.items[i]) == string(v) {
			seen++
			if seen >= rank {
				out = append(out, i)
				if count > 0 && len(out) >= count {
					break
				}
				if count == 0 {
					continue
				}
			}
		}
	}
	return out
}

func (l *List) Clone() *List {
	items := make([][]byte, len(l.items))
	for i, it := range l.items {
		b := make([]byte, len(it))
		copy(b, it)
		items[i] = b
	}
	return &List{items: items}
}
