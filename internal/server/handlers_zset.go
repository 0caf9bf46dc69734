package server

import (
	"strings"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

func (ctx *context) zsetForWrite(key string) (*storage.ZSet, resp.Value, bool) {
	ent, ok := ctx.lookupTyped(key, storage.TypeZSet)
	if !ok {
		return nil, wrongTypeReply, false
	}
	if ent == nil {
		z := storage.NewZSet(ctx.eng.rng)
		ctx.db().Put(key, &storage.Entity{Type: storage.TypeZSet, Value: z})
		return z, resp.Value{}, true
	}
	return ent.ZSet(), resp.Value{}, true
}

func (ctx *context) lookupZSet(key string) (*storage.ZSet, resp.Value, bool) {
	ent, ok := ctx.lookupTyped(key, storage.TypeZSet)
	if !ok {
		return nil, wrongTypeReply, false
	}
	if ent == nil {
		return nil, resp.Value{}, true
	}
	return ent.ZSet(), resp.Value{}, true
}

func zadd(ctx *context) resp.Value {
	key := ctx.argStr(0)

	var nx, xx, gt, lt, ch, incr bool
	i := 1
	for i < len(ctx.args) {
		done := false
		switch ctx.argUpper(i) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		case "CH":
			ch = true
		case "INCR":
			incr = true
		default:
			done = true
		}
		if done {
			break
		}
		i++
	}
	if nx && xx {
		return resp.MakeError(msgZaddNxXx)
	}
	if (gt && lt) || (nx && (gt || lt)) {
		return resp.MakeError(msgZaddGtLtNx)
	}

	pairs := ctx.args[i:]
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return syntaxErrReply
	}
	if incr && len(pairs) != 2 {
		return resp.MakeError(msgZaddIncrSingle)
	}

	// validate every score before mutating
	scores := make([]float64, len(pairs)/2)
	for j := 0; j < len(pairs); j += 2 {
		f, err := parseFloatArg(string(pairs[j]))
		if err != nil {
			return resp.MakeError(msgNotFloat)
		}
		scores[j/2] = f
	}

	z, errRes, ok := ctx.zsetForWrite(key)
	if !ok {
		return errRes
	}

	added, changed := int64(0), int64(0)
	var incrResult resp.Value
	for j := 0; j < len(pairs); j += 2 {
		score := scores[j/2]
		member := string(pairs[j+1])
		old, exists := z.Score(member)

		if (nx && exists) || (xx && !exists) {
			if incr {
				incrResult = nilBulk()
			}
			continue
		}
		if exists && ((gt && score <= old) || (lt && score >= old)) {
			if incr {
				incrResult = resp.MakeBulkString(resp.FormatFloat(old))
			}
			continue
		}

		if incr {
			next, err := z.IncrBy(member, score)
			if err != nil {
				return resp.MakeError(err.Error())
			}
			if exists && ((gt && next < old) || (lt && next > old)) {
				// the GT/LT guard applies to the resulting score too
				z.Add(member, old)
				incrResult = nilBulk()
				continue
			}
			incrResult = resp.MakeBulkString(resp.FormatFloat(next))
			if !exists {
				added++
			}
			continue
		}

		if z.Add(member, score) {
			added++
		} else if old != score {
			changed++
		}
	}

	db := ctx.db()
	db.Touch(key)
	db.DeleteIfEmpty(key)
	if added+changed > 0 || incr {
		ctx.signalWrite(classZSet, "zadd", key)
	}

	if incr {
		return incrResult
	}
	if ch {
		return resp.MakeInteger(added + changed)
	}
	return resp.MakeInteger(added)
}

func zscore(ctx *context) resp.Value {
	z, errRes, ok := ctx.lookupZSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	if z == nil {
		return nilBulk()
	}
	score, exists := z.Score(ctx.argStr(1))
	if !exists {
		return nilBulk()
	}
	return resp.MakeBulkString(resp.FormatFloat(score))
}

func zmscore(ctx *context) resp.Value {
	z, errRes, ok := ctx.lookupZSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	out := make([]resp.Value, len(ctx.args)-1)
	for i := 1; i < len(ctx.args); i++ {
		if z == nil {
			out[i-1] = nilBulk()
			continue
		}
		score, exists := z.Score(ctx.argStr(i))
		if !exists {
			out[i-1] = nilBulk()
		} else {
			out[i-1] = resp.MakeBulkString(resp.FormatFloat(score))
		}
	}
	return resp.MakeArray(out)
}

func zcard(ctx *context) resp.Value {
	z, errRes, ok := ctx.lookupZSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	if z == nil {
		return resp.MakeInteger(0)
	}
	return resp.MakeInteger(int64(z.Card()))
}

func zcount(ctx *context) resp.Value {
	spec, err := storage.ParseScoreRange(ctx.argStr(1), ctx.argStr(2))
	if err != nil {
		return resp.MakeError("ERR min or max is not a float")
	}
	z, errRes, ok := ctx.lookupZSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	if z == nil {
		return resp.MakeInteger(0)
	}
	return resp.MakeInteger(int64(z.Count(spec)))
}

func zlexcount(ctx *context) resp.Value {
	spec, err := storage.ParseLexRange(ctx.argStr(1), ctx.argStr(2))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	z, errRes, ok := ctx.lookupZSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	if z == nil {
		return resp.MakeInteger(0)
	}
	return resp.MakeInteger(int64(z.LexCount(spec)))
}

func zincrby(ctx *context) resp.Value {
	key := ctx.argStr(0)
	delta, err := parseFloatArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotFloat)
	}
	z, errRes, ok := ctx.zsetForWrite(key)
	if !ok {
		return errRes
	}
	score, err := z.IncrBy(ctx.argStr(2), delta)
	if err != nil {
		return resp.MakeError(err.Error())
	}
	ctx.db().Touch(key)
	ctx.signalWrite(classZSet, "zincr", key)
	return resp.MakeBulkString(resp.FormatFloat(score))
}

// zrangeSpec is the parsed ZRANGE grammar shared by ZRANGE/ZRANGESTORE
type zrangeSpec struct {
	byScore, byLex bool
	rev            bool
	limit          bool
	offset, count  int
	withScores     bool
	minArg, maxArg string
}

func parseZRange(ctx *context, from int, allowWithScores bool) (zrangeSpec, resp.Value, bool) {
	spec := zrangeSpec{minArg: ctx.argStr(from), maxArg: ctx.argStr(from + 1), count: -1}
	i := from + 2
	for i < len(ctx.args) {
		switch ctx.argUpper(i) {
		case "BYSCORE":
			spec.byScore = true
			i++
		case "BYLEX":
			spec.byLex = true
			i++
		case "REV":
			spec.rev = true
			i++
		case "LIMIT":
			if i+2 >= len(ctx.args) {
				return spec, syntaxErrReply, false
			}
			off, err1 := parseIntArg(ctx.argStr(i + 1))
			cnt, err2 := parseIntArg(ctx.argStr(i + 2))
			if err1 != nil || err2 != nil {
				return spec, resp.MakeError(msgNotInteger), false
			}
			spec.limit = true
			spec.offset, spec.count = int(off), int(cnt)
			i += 3
		case "WITHSCORES":
			if !allowWithScores {
				return spec, syntaxErrReply, false
			}
			spec.withScores = true
			i++
		default:
			return spec, syntaxErrReply, false
		}
	}
	if spec.byScore && spec.byLex {
		return spec, syntaxErrReply, false
	}
	if spec.limit && !spec.byScore && !spec.byLex {
		return spec, resp.MakeError("ERR syntax error, LIMIT is only supported in combination with either BYSCORE or BYLEX"), false
	}
	if spec.byLex && spec.withScores {
		return spec, syntaxErrReply, false
	}
	return spec, resp.Value{}, true
}

// evalZRange runs the parsed spec against a zset
func evalZRange(z *storage.ZSet, spec zrangeSpec) ([]storage.ZMember, resp.Value, bool) {
	if z == nil {
		return nil, resp.Value{}, true
	}
	switch {
	case spec.byScore:
		min, max := spec.minArg, spec.maxArg
		if spec.rev {
			min, max = max, min
		}
		sr, err := storage.ParseScoreRange(min, max)
		if err != nil {
			return nil, resp.MakeError("ERR min or max is not a float"), false
		}
		return z.RangeByScore(sr, spec.offset, spec.count, spec.rev), resp.Value{}, true
	case spec.byLex:
		min, max := spec.minArg, spec.maxArg
		if spec.rev {
			min, max = max, min
		}
		lr, err := storage.ParseLexRange(min, max)
		if err != nil {
			return nil, resp.MakeError(err.Error()), false
		}
		return z.RangeByLex(lr, spec.offset, spec.count, spec.rev), resp.Value{}, true
	default:
		start, err1 := parseIntArg(spec.minArg)
		stop, err2 := parseIntArg(spec.maxArg)
		if err1 != nil || err2 != nil {
			return nil, resp.MakeError(msgNotInteger), false
		}
		return z.RangeByRank(int(start), int(stop), spec.rev), resp.Value{}, true
	}
}

func zrange(ctx *context) resp.Value {
	spec, errRes, ok := parseZRange(ctx, 1, true)
	if !ok {
		return errRes
	}
	z, errRes, ok := ctx.lookupZSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	members, errRes, ok := evalZRange(z, spec)
	if !ok {
		return errRes
	}
	return replyMembers(members, spec.withScores)
}

func zrangestore(ctx *context) resp.Value {
	dst := ctx.argStr(0)
	spec, errRes, ok := parseZRange(ctx, 2, false)
	if !ok {
		return errRes
	}
	z, errRes, ok := ctx.lookupZSet(ctx.argStr(1))
	if !ok {
		return errRes
	}
	members, errRes, ok := evalZRange(z, spec)
	if !ok {
		return errRes
	}

	db := ctx.db()
	if len(members) == 0 {
		if db.Delete(dst) {
			ctx.notify(classGeneric, "del", dst)
		}
		return resp.MakeInteger(0)
	}
	out := storage.NewZSet(ctx.eng.rng)
	for _, m := range members {
		out.Add(m.Member, m.Score)
	}
	db.Put(dst, &storage.Entity{Type: storage.TypeZSet, Value: out})
	ctx.signalWrite(classZSet, "zrangestore", dst)
	return resp.MakeInteger(int64(out.Card()))
}

// legacy range commands share the modern machinery
func legacyZRange(ctx *context, byScore, rev bool) resp.Value {
	// the legacy REV forms take max before min, which is exactly the
	// argument order evalZRange expects for rev specs
	spec := zrangeSpec{
		minArg:  ctx.argStr(1),
		maxArg:  ctx.argStr(2),
		byScore: byScore,
		byLex:   !byScore,
		rev:     rev,
		count:   -1,
	}

	i := 3
	for i < len(ctx.args) {
		switch ctx.argUpper(i) {
		case "WITHSCORES":
			if !byScore {
				return syntaxErrReply
			}
			spec.withScores = true
			i++
		case "LIMIT":
			if i+2 >= len(ctx.args) {
				return syntaxErrReply
			}
			off, err1 := parseIntArg(ctx.argStr(i + 1))
			cnt, err2 := parseIntArg(ctx.argStr(i + 2))
			if err1 != nil || err2 != nil {
				return resp.MakeError(msgNotInteger)
			}
			spec.offset, spec.count = int(off), int(cnt)
			i += 3
		default:
			return syntaxErrReply
		}
	}

	z, errRes, ok := ctx.lookupZSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	members, errRes, ok := evalZRange(z, spec)
	if !ok {
		return errRes
	}
	return replyMembers(members, spec.withScores)
}

func zrangebyscore(ctx *context) resp.Value {
	return legacyZRange(ctx, true, false)
}

func zrevrangebyscore(ctx *context) resp.Value {
	return legacyZRange(ctx, true, true)
}

func zrangebylex(ctx *context) resp.Value {
	return legacyZRange(ctx, false, false)
}

func zrevrangebylex(ctx *context) resp.Value {
	return legacyZRange(ctx, false, true)
}

func zrevrange(ctx *context) resp.Value {
	start, err1 := parseIntArg(ctx.argStr(1))
	stop, err2 := parseIntArg(ctx.argStr(2))
	if err1 != nil || err2 != nil {
		return resp.MakeError(msgNotInteger)
	}
	withScores := false
	if len(ctx.args) == 4 {
		if ctx.argUpper(3) != "WITHSCORES" {
			return syntaxErrReply
		}
		withScores = true
	}
	z, errRes, ok := ctx.lookupZSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	if z == nil {
		return resp.MakeArray(nil)
	}
	return replyMembers(z.RangeByRank(int(start), int(stop), true), withScores)
}

func zrankGeneric(ctx *context, rev bool) resp.Value {
	withScore := false
	if len(ctx.args) == 3 {
		if ctx.argUpper(2) != "WITHSCORE" {
			return syntaxErrReply
		}
		withScore = true
	}
	z, errRes, ok := ctx.lookupZSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	if z == nil {
		if withScore {
			return resp.MakeNilArray()
		}
		return nilBulk()
	}
	rank := z.Rank(ctx.argStr(1), rev)
	if rank < 0 {
		if withScore {
			return resp.MakeNilArray()
		}
		return nilBulk()
	}
	if withScore {
		score, _ := z.Score(ctx.argStr(1))
		return resp.MakeArray([]resp.Value{
			resp.MakeInteger(int64(rank)),
			resp.MakeBulkString(resp.FormatFloat(score)),
		})
	}
	return resp.MakeInteger(int64(rank))
}

func zrank(ctx *context) resp.Value {
	return zrankGeneric(ctx, false)
}

func zrevrank(ctx *context) resp.Value {
	return zrankGeneric(ctx, true)
}

func zrem(ctx *context) resp.Value {
	key := ctx.argStr(0)
	z, errRes, ok := ctx.lookupZSet(key)
	if !ok {
		return errRes
	}
	if z == nil {
		return resp.MakeInteger(0)
	}
	removed := int64(0)
	for i := 1; i < len(ctx.args); i++ {
		if z.Remove(ctx.argStr(i)) {
			removed++
		}
	}
	if removed > 0 {
		db := ctx.db()
		db.Touch(key)
		ctx.notify(classZSet, "zrem", key)
		if z.Card() == 0 {
			db.Delete(key)
			ctx.notify(classGeneric, "del", key)
		}
	}
	return resp.MakeInteger(removed)
}

func zremrangeGeneric(ctx *context, mode string) resp.Value {
	key := ctx.argStr(0)
	z, errRes, ok := ctx.lookupZSet(key)
	if !ok {
		return errRes
	}
	if z == nil {
		return resp.MakeInteger(0)
	}

	var victims []storage.ZMember
	switch mode {
	case "rank":
		start, err1 := parseIntArg(ctx.argStr(1))
		stop, err2 := parseIntArg(ctx.argStr(2))
		if err1 != nil || err2 != nil {
			return resp.MakeError(msgNotInteger)
		}
		victims = z.RangeByRank(int(start), int(stop), false)
	case "score":
		spec, err := storage.ParseScoreRange(ctx.argStr(1), ctx.argStr(2))
		if err != nil {
			return resp.MakeError("ERR min or max is not a float")
		}
		victims = z.RangeByScore(spec, 0, -1, false)
	case "lex":
		spec, err := storage.ParseLexRange(ctx.argStr(1), ctx.argStr(2))
		if err != nil {
			return resp.MakeError(err.Error())
		}
		victims = z.RangeByLex(spec, 0, -1, false)
	}

	for _, m := range victims {
		z.Remove(m.Member)
	}
	if len(victims) > 0 {
		db := ctx.db()
		db.Touch(key)
		ctx.notify(classZSet, "zremrangeby"+mode, key)
		if z.Card() == 0 {
			db.Delete(key)
			ctx.notify(classGeneric, "del", key)
		}
	}
	return resp.MakeInteger(int64(len(victims)))
}

func zremrangebyrank(ctx *context) resp.Value {
	return zremrangeGeneric(ctx, "rank")
}

func zremrangebyscore(ctx *context) resp.Value {
	return zremrangeGeneric(ctx, "score")
}

func zremrangebylex(ctx *context) resp.Value {
	return zremrangeGeneric(ctx, "lex")
}

func zpopGeneric(ctx *context, max bool) resp.Value {
	key := ctx.argStr(0)
	count := 1
	if len(ctx.args) == 2 {
		n, err := parseIntArg(ctx.argStr(1))
		if err != nil || n < 0 {
			return resp.MakeError(msgValueRange)
		}
		count = int(n)
	}
	z, errRes, ok := ctx.lookupZSet(key)
	if !ok {
		return errRes
	}
	if z == nil {
		return resp.MakeArray(nil)
	}

	var popped []storage.ZMember
	if max {
		popped = z.PopMax(count)
	} else {
		popped = z.PopMin(count)
	}
	if len(popped) > 0 {
		db := ctx.db()
		db.Touch(key)
		if max {
			ctx.notify(classZSet, "zpopmax", key)
		} else {
			ctx.notify(classZSet, "zpopmin", key)
		}
		if z.Card() == 0 {
			db.Delete(key)
			ctx.notify(classGeneric, "del", key)
		}
	}
	return replyMembers(popped, true)
}

func zpopmin(ctx *context) resp.Value {
	return zpopGeneric(ctx, false)
}

func zpopmax(ctx *context) resp.Value {
	return zpopGeneric(ctx, true)
}

func bzpopGeneric(ctx *context, max bool) resp.Value {
	keyCount := len(ctx.args) - 1
	timeout, errRes, ok := parseTimeout(ctx.argStr(keyCount))
	if !ok {
		return errRes
	}
	keys := make([]string, keyCount)
	for i := 0; i < keyCount; i++ {
		keys[i] = ctx.argStr(i)
	}

	attempt := func() (resp.Value, bool) {
		for _, key := range keys {
			z, errRes, ok := ctx.lookupZSet(key)
			if !ok {
				return errRes, true
			}
			if z == nil || z.Card() == 0 {
				continue
			}
			var popped []storage.ZMember
			if max {
				popped = z.PopMax(1)
			} else {
				popped = z.PopMin(1)
			}
			db := ctx.db()
			db.Touch(key)
			if max {
				ctx.notify(classZSet, "zpopmax", key)
			} else {
				ctx.notify(classZSet, "zpopmin", key)
			}
			if z.Card() == 0 {
				db.Delete(key)
				ctx.notify(classGeneric, "del", key)
			}
			m := popped[0]
			return resp.MakeArray([]resp.Value{
				resp.MakeBulkString(key),
				resp.MakeBulkString(m.Member),
				resp.MakeBulkString(resp.FormatFloat(m.Score)),
			}), true
		}
		return resp.Value{}, false
	}

	return ctx.maybeBlock(&blockRequest{
		keys:      keys,
		timeout:   timeout,
		attempt:   attempt,
		onTimeout: resp.MakeNilArray(),
	})
}

func bzpopmin(ctx *context) resp.Value {
	return bzpopGeneric(ctx, false)
}

func bzpopmax(ctx *context) resp.Value {
	return bzpopGeneric(ctx, true)
}

func zrandmember(ctx *context) resp.Value {
	key := ctx.argStr(0)
	z, errRes, ok := ctx.lookupZSet(key)
	if !ok {
		return errRes
	}

	if len(ctx.args) == 1 {
		if z == nil {
			return nilBulk()
		}
		picked := z.RandMembers(ctx.eng.rng, 1, true)
		if len(picked) == 0 {
			return nilBulk()
		}
		return resp.MakeBulkString(picked[0].Member)
	}

	n, err := parseIntArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	withScores := false
	if len(ctx.args) == 3 {
		if ctx.argUpper(2) != "WITHSCORES" {
			return syntaxErrReply
		}
		withScores = true
	}
	if z == nil {
		return resp.MakeArray(nil)
	}
	var picked []storage.ZMember
	if n >= 0 {
		picked = z.RandMembers(ctx.eng.rng, int(n), true)
	} else {
		picked = z.RandMembers(ctx.eng.rng, int(-n), false)
	}
	return replyMembers(picked, withScores)
}

// zsetAlgebra evaluates ZUNION/ZINTER/ZDIFF with WEIGHTS and AGGREGATE
func zsetAlgebra(ctx *context, op string, numKeys int, tail int) ([]storage.ZMember, resp.Value, bool) {
	weights := make([]float64, numKeys)
	for i := range weights {
		weights[i] = 1
	}
	aggregate := "SUM"

	i := tail
	for i < len(ctx.args) {
		switch ctx.argUpper(i) {
		case "WEIGHTS":
			if op == "DIFF" || i+numKeys >= len(ctx.args) {
				return nil, syntaxErrReply, false
			}
			for j := 0; j < numKeys; j++ {
				f, err := parseFloatArg(ctx.argStr(i + 1 + j))
				if err != nil {
					return nil, resp.MakeError("ERR weight value is not a float"), false
				}
				weights[j] = f
			}
			i += numKeys + 1
		case "AGGREGATE":
			if op == "DIFF" || i+1 >= len(ctx.args) {
				return nil, syntaxErrReply, false
			}
			aggregate = ctx.argUpper(i + 1)
			switch aggregate {
			case "SUM", "MIN", "MAX":
			default:
				return nil, syntaxErrReply, false
			}
			i += 2
		case "WITHSCORES":
			i++
		default:
			return nil, syntaxErrReply, false
		}
	}

	// a plain set participates with every score at 1
	loadMembers := func(key string) ([]storage.ZMember, resp.Value, bool) {
		ent := ctx.db().Lookup(key)
		if ent == nil {
			return nil, resp.Value{}, true
		}
		switch ent.Type {
		case storage.TypeZSet:
			return ent.ZSet().Members(), resp.Value{}, true
		case storage.TypeSet:
			members := ent.Set().Members()
			out := make([]storage.ZMember, len(members))
			for i, m := range members {
				out[i] = storage.ZMember{Member: m, Score: 1}
			}
			return out, resp.Value{}, true
		}
		return nil, wrongTypeReply, false
	}

	acc := storage.NewZSet(ctx.eng.rng)
	first, errRes, ok := loadMembers(ctx.argStr(1))
	if !ok {
		return nil, errRes, false
	}

	switch op {
	case "DIFF":
		drop := storage.NewSet()
		for k := 1; k < numKeys; k++ {
			others, errRes, ok := loadMembers(ctx.argStr(1 + k))
			if !ok {
				return nil, errRes, false
			}
			for _, m := range others {
				drop.Add(m.Member)
			}
		}
		for _, m := range first {
			if !drop.Contains(m.Member) {
				acc.Add(m.Member, m.Score)
			}
		}

	case "UNION", "INTER":
		counts := make(map[string]int)
		for k := 0; k < numKeys; k++ {
			members, errRes, ok := loadMembers(ctx.argStr(1 + k))
			if !ok {
				return nil, errRes, false
			}
			for _, m := range members {
				weighted := m.Score * weights[k]
				counts[m.Member]++
				if old, exists := acc.Score(m.Member); exists {
					switch aggregate {
					case "SUM":
						acc.Add(m.Member, old+weighted)
					case "MIN":
						if weighted < old {
							acc.Add(m.Member, weighted)
						}
					case "MAX":
						if weighted > old {
							acc.Add(m.Member, weighted)
						}
					}
				} else {
					acc.Add(m.Member, weighted)
				}
			}
		}
		if op == "INTER" {
			for member, n := range counts {
				if n < numKeys {
					acc.Remove(member)
				}
			}
		}
	}

	return acc.Members(), resp.Value{}, true
}

func zsetAlgebraCmd(op string) func(ctx *context) resp.Value {
	return func(ctx *context) resp.Value {
		numKeys, err := parseIntArg(ctx.argStr(0))
		if err != nil || numKeys <= 0 || int(numKeys) > len(ctx.args)-1 {
			return resp.MakeError("ERR at least 1 input key is needed for " + strings.ToUpper(ctx.name))
		}
		withScores := false
		for i := 1 + int(numKeys); i < len(ctx.args); i++ {
			if ctx.argUpper(i) == "WITHSCORES" {
				withScores = true
			}
		}
		members, errRes, ok := zsetAlgebra(ctx, op, int(numKeys), 1+int(numKeys))
		if !ok {
			return errRes
		}
		return replyMembers(members, withScores)
	}
}

func zsetAlgebraStoreCmd(op string) func(ctx *context) resp.Value {
	return func(ctx *context) resp.Value {
		dst := ctx.argStr(0)
		numKeys, err := parseIntArg(ctx.argStr(1))
		if err != nil || numKeys <= 0 || int(numKeys) > len(ctx.args)-2 {
			return resp.MakeError("ERR at least 1 input key is needed for " + strings.ToUpper(ctx.name))
		}
		// zsetAlgebra reads keys starting at args[1]
		shifted := &context{
			eng: ctx.eng, conn: ctx.conn, name: ctx.name, now: ctx.now,
			args: ctx.args[1:],
		}
		members, errRes, ok := zsetAlgebra(shifted, op, int(numKeys), 1+int(numKeys))
		if !ok {
			return errRes
		}

		db := ctx.db()
		if len(members) == 0 {
			if db.Delete(dst) {
				ctx.notify(classGeneric, "del", dst)
			}
			return resp.MakeInteger(0)
		}
		out := storage.NewZSet(ctx.eng.rng)
		for _, m := range members {
			out.Add(m.Member, m.Score)
		}
		db.Put(dst, &storage.Entity{Type: storage.TypeZSet, Value: out})
		ctx.signalWrite(classZSet, strings.ToLower(ctx.name), dst)
		return resp.MakeInteger(int64(out.Card()))
	}
}

func zscan(ctx *context) resp.Value {
	key := ctx.argStr(0)
	cursor, err := parseIntArg(ctx.argStr(1))
	if err != nil || cursor < 0 {
		return resp.MakeError("ERR invalid cursor")
	}
	opts, errRes, ok := parseScanArgs(ctx, 2, false)
	if !ok {
		return errRes
	}
	z, errRes, typeOK := ctx.lookupZSet(key)
	if !typeOK {
		return errRes
	}
	if z == nil {
		return scanReply(0, nil)
	}
	members := z.Members()
	names := make([]string, len(members))
	scores := make(map[string]float64, len(members))
	for i, m := range members {
		names[i] = m.Member
		scores[m.Member] = m.Score
	}
	next, window := scanWindow(names, int(cursor), opts.count)
	items := make([]resp.Value, 0, len(window)*2)
	for _, m := range window {
		if opts.hasMatch && !storage.GlobMatch(opts.match, m) {
			continue
		}
		items = append(items,
			resp.MakeBulkString(m),
			resp.MakeBulkString(resp.FormatFloat(scores[m])))
	}
	return scanReply(next, items)
}
