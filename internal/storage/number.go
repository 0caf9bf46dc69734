package storage

import (
	"errors"
	"strconv"
)

var ErrNotInteger = errors.New("ERR value is not an integer or out of range")

// ParseStrictInt64 accepts only a canonical base-10 signed 64-bit integer,
// the way string values are reinterpreted by INCR-family commands
func ParseStrictInt64(b []byte) (int64, error) {
	s := string(b)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	// reject non-canonical spellings such as "+1", " 1" or "01"
	if strconv.FormatInt(n, 10) != s {
		return 0, ErrNotInteger
	}
	return n, nil
}

// FormatInt renders an int64 the way string values store it
func FormatInt(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}
