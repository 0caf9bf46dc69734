package server

import (
	"math/bits"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

// Bitmaps are a structural overlay over plain string values: bit N lives in
// byte N/8, most significant bit first.

func setbit(ctx *context) resp.Value {
	key := ctx.argStr(0)
	offset, err := parseIntArg(ctx.argStr(1))
	if err != nil || offset < 0 || offset >= resp.MaxBulkLen*8 {
		return resp.MakeError(msgOffsetRange)
	}
	bit, err := parseIntArg(ctx.argStr(2))
	if err != nil || (bit != 0 && bit != 1) {
		return resp.MakeError(msgBitArgMustBit)
	}

	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	var data []byte
	if ent != nil {
		data = ent.Bytes()
	}

	byteIdx := int(offset / 8)
	bitIdx := uint(7 - offset%8)
	if byteIdx >= len(data) {
		grown := make([]byte, byteIdx+1)
		copy(grown, data)
		data = grown
	}
	old := int64((data[byteIdx] >> bitIdx) & 1)
	if bit == 1 {
		data[byteIdx] |= 1 << bitIdx
	} else {
		data[byteIdx] &^= 1 << bitIdx
	}

	db := ctx.db()
	if ent != nil {
		ent.SetBytes(data)
		db.Touch(key)
	} else {
		db.PutKeepTTL(key, storage.NewStringEntity(data))
	}
	ctx.signalWrite(classString, "setbit", key)
	return resp.MakeInteger(old)
}

func getbit(ctx *context) resp.Value {
	key := ctx.argStr(0)
	offset, err := parseIntArg(ctx.argStr(1))
	if err != nil || offset < 0 {
		return resp.MakeError(msgOffsetRange)
	}
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	data := ent.Bytes()
	byteIdx := int(offset / 8)
	if byteIdx >= len(data) {
		return resp.MakeInteger(0)
	}
	return resp.MakeInteger(int64((data[byteIdx] >> uint(7-offset%8)) & 1))
}

// resolveByteRange maps possibly negative start/end (inclusive) onto the
// data length; ok=false when the range is empty
func resolveByteRange(start, end, n int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if n == 0 || start > end {
		return 0, 0, false
	}
	return start, end, true
}

func bitcount(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	data := ent.Bytes()

	start, end := int64(0), int64(len(data)-1)
	byBit := false
	switch len(ctx.args) {
	case 1:
	case 3, 4:
		var err1, err2 error
		start, err1 = parseIntArg(ctx.argStr(1))
		end, err2 = parseIntArg(ctx.argStr(2))
		if err1 != nil || err2 != nil {
			return resp.MakeError(msgNotInteger)
		}
		if len(ctx.args) == 4 {
			switch ctx.argUpper(3) {
			case "BYTE":
			case "BIT":
				byBit = true
			default:
				return syntaxErrReply
			}
		}
	default:
		return syntaxErrReply
	}

	if byBit {
		s, e, ok := resolveByteRange(start, end, int64(len(data))*8)
		if !ok {
			return resp.MakeInteger(0)
		}
		count := int64(0)
		for i := s; i <= e; i++ {
			if data[i/8]&(1<<uint(7-i%8)) != 0 {
				count++
			}
		}
		return resp.MakeInteger(count)
	}

	s, e, ok := resolveByteRange(start, end, int64(len(data)))
	if !ok {
		return resp.MakeInteger(0)
	}
	count := int64(0)
	for _, b := range data[s : e+1] {
		count += int64(bits.OnesCount8(b))
	}
	return resp.MakeInteger(count)
}

func bitpos(ctx *context) resp.Value {
	key := ctx.argStr(0)
	bit, err := parseIntArg(ctx.argStr(1))
	if err != nil || (bit != 0 && bit != 1) {
		return resp.MakeError("ERR The bit argument must be 1 or 0.")
	}
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		if bit == 0 {
			return resp.MakeInteger(0)
		}
		return resp.MakeInteger(-1)
	}
	data := ent.Bytes()

	start, end := int64(0), int64(len(data)-1)
	rangeGiven := false
	endGiven := false
	if len(ctx.args) >= 3 {
		rangeGiven = true
		if start, err = parseIntArg(ctx.argStr(2)); err != nil {
			return resp.MakeError(msgNotInteger)
		}
	}
	if len(ctx.args) >= 4 {
		endGiven = true
		if end, err = parseIntArg(ctx.argStr(3)); err != nil {
			return resp.MakeError(msgNotInteger)
		}
	}
	if len(ctx.args) == 5 && ctx.argUpper(4) != "BYTE" {
		// BIT granularity follows the same scan, over bit offsets
		if ctx.argUpper(4) != "BIT" {
			return syntaxErrReply
		}
		s, e, ok := resolveByteRange(start, end, int64(len(data))*8)
		if !ok {
			return resp.MakeInteger(-1)
		}
		for i := s; i <= e; i++ {
			if int64((data[i/8]>>uint(7-i%8))&1) == bit {
				return resp.MakeInteger(i)
			}
		}
		return resp.MakeInteger(-1)
	}
	if len(ctx.args) > 5 {
		return syntaxErrReply
	}

	s, e, ok := resolveByteRange(start, end, int64(len(data)))
	if !ok {
		return resp.MakeInteger(-1)
	}
	for i := s; i <= e; i++ {
		for b := 0; b < 8; b++ {
			if int64((data[i]>>uint(7-b))&1) == bit {
				return resp.MakeInteger(i*8 + int64(b))
			}
		}
	}
	// searching for a clear bit in an all-ones string without an explicit
	// end behaves as if the string were followed by zeros
	if bit == 0 && rangeGiven && !endGiven {
		return resp.MakeInteger(int64(len(data)) * 8)
	}
	if bit == 0 && !rangeGiven {
		return resp.MakeInteger(int64(len(data)) * 8)
	}
	return resp.MakeInteger(-1)
}

func bitop(ctx *context) resp.Value {
	op := ctx.argUpper(0)
	dst := ctx.argStr(1)
	srcKeys := ctx.args[2:]

	if op == "NOT" && len(srcKeys) != 1 {
		return resp.MakeError(msgBitOpNotLen)
	}
	switch op {
	case "AND", "OR", "XOR", "NOT":
	default:
		return syntaxErrReply
	}

	srcs := make([][]byte, len(srcKeys))
	maxLen := 0
	for i := range srcKeys {
		ent, ok := ctx.lookupTyped(string(srcKeys[i]), storage.TypeString)
		if !ok {
			return wrongTypeReply
		}
		if ent != nil {
			srcs[i] = ent.Bytes()
		}
		if len(srcs[i]) > maxLen {
			maxLen = len(srcs[i])
		}
	}

	db := ctx.db()
	if maxLen == 0 {
		db.Delete(dst)
		return resp.MakeInteger(0)
	}

	out := make([]byte, maxLen)
	if op == "NOT" {
		for i, b := range srcs[0] {
			out[i] = ^b
		}
	} else {
		copy(out, srcs[0])
		for i := len(srcs[0]); i < maxLen; i++ {
			out[i] = 0
		}
		for _, src := range srcs[1:] {
			for i := 0; i < maxLen; i++ {
				var b byte
				if i < len(src) {
					b = src[i]
				}
				switch op {
				case "AND":
					out[i] &= b
				case "OR":
					out[i] |= b
				case "XOR":
					out[i] ^= b
				}
			}
		}
	}

	db.Put(dst, storage.NewStringEntity(out))
	ctx.signalWrite(classString, "set", dst)
	return resp.MakeInteger(int64(len(out)))
}
