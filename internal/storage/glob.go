package storage

// GlobMatch implements Redis-style glob matching over bytes: '*', '?',
// '[...]' character classes with ranges and '^' negation, and '\' escapes.
// Both pattern and subject are treated as raw bytes.
func GlobMatch(pattern, s string) bool {
	return globMatch(pattern, s)
}

func globMatch(p, s string) bool {
	pi, si := 0, 0
	starP, starS := -1, 0

	for si < len(s) {
		if pi < len(p) {
			switch p[pi] {
			case '*':
				starP, starS = pi, si
				pi++
				continue
			case '?':
				pi++
				si++
				continue
			case '[':
				if end := classEnd(p, pi); end > 0 {
					if classMatch(p[pi+1:end], s[si]) {
						pi = end + 1
						si++
						continue
					}
				} else if s[si] == '[' {
					pi++
					si++
					continue
				}
			case '\\':
				if pi+1 < len(p) {
					if p[pi+1] == s[si] {
						pi += 2
						si++
						continue
					}
				} else if s[si] == '\\' {
					pi++
					si++
					continue
				}
			default:
				if p[pi] == s[si] {
					pi++
					si++
					continue
				}
			}
		}

		// mismatch; backtrack to the last '*' if any
		if starP >= 0 {
			starS++
			pi = starP + 1
			si = starS
			continue
		}
		return false
	}

	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// classEnd returns the index of the closing ']', or 0 if the class is
// unterminated
func classEnd(p string, open int) int {
	i := open + 1
	if i < len(p) && p[i] == '^' {
		i++
	}
	// a ']' directly after the opening is a literal member
	if i < len(p) && p[i] == ']' {
		i++
	}
	for i < len(p) {
		if p[i] == '\\' {
			i += 2
			continue
		}
		if p[i] == ']' {
			return i
		}
		i++
	}
	return 0
}

func classMatch(class string, c byte) bool {
	neg := false
	i := 0
	if i < len(class) && class[i] == '^' {
		neg = true
		i++
	}
	matched := false
	for i < len(class) {
		if class[i] == '\\' && i+1 < len(class) {
			if class[i+1] == c {
				matched = true
			}
			i += 2
			continue
		}
		if i+2 < len(class) && class[i+1] == '-' {
			lo, hi := class[i], class[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if lo <= c && c <= hi {
				matched = true
			}
			i += 3
			continue
		}
		if class[i] == c {
			matched = true
		}
		i++
	}
	if neg {
		return !matched
	}
	return matched
}
