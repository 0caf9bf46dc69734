package server

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func sortedCountKeys(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedGroupNames(s *storage.Stream) []string {
	out := make([]string, 0, len(s.Groups))
	for name := range s.Groups {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortedConsumerNames(g *storage.StreamGroup) []string {
	out := make([]string, 0, len(g.Consumers))
	for name := range g.Consumers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (ctx *context) lookupStream(key string) (*storage.Stream, resp.Value, bool) {
	ent, ok := ctx.lookupTyped(key, storage.TypeStream)
	if !ok {
		return nil, wrongTypeReply, false
	}
	if ent == nil {
		return nil, resp.Value{}, true
	}
	return ent.Stream(), resp.Value{}, true
}

// parseRangeID parses XRANGE bounds: '-', '+', optional '(' exclusive
// prefix, "ms" or "ms-seq"
func parseRangeID(s string, start bool) (storage.StreamID, bool, resp.Value, bool) {
	exclusive := false
	if strings.HasPrefix(s, "(") {
		exclusive = true
		s = s[1:]
	}
	if s == "-" {
		return storage.StreamID{}, exclusive, resp.Value{}, true
	}
	if s == "+" {
		return storage.StreamID{Ms: math.MaxUint64, Seq: math.MaxUint64}, exclusive, resp.Value{}, true
	}
	defSeq := uint64(0)
	if !start {
		defSeq = math.MaxUint64
	}
	id, err := storage.ParseStreamID(s, defSeq)
	if err != nil {
		return id, false, resp.MakeError(err.Error()), false
	}
	return id, exclusive, resp.Value{}, true
}

func xadd(ctx *context) resp.Value {
	key := ctx.argStr(0)
	i := 1

	nomkstream := false
	trimStrategy := ""
	trimValue := ""
	for i < len(ctx.args) {
		stop := false
		switch ctx.argUpper(i) {
		case "NOMKSTREAM":
			nomkstream = true
			i++
		case "MAXLEN", "MINID":
			strategy := ctx.argUpper(i)
			i++
			if i < len(ctx.args) && (ctx.argStr(i) == "~" || ctx.argStr(i) == "=") {
				i++
			}
			if i >= len(ctx.args) {
				return syntaxErrReply
			}
			trimStrategy = strategy
			trimValue = ctx.argStr(i)
			i++
			// an optional LIMIT only applies to approximate trims; accepted
			// and ignored since trimming here is always exact
			if i+1 < len(ctx.args) && ctx.argUpper(i) == "LIMIT" {
				i += 2
			}
		default:
			stop = true
		}
		if stop {
			break
		}
	}

	if i >= len(ctx.args) {
		return resp.MakeErrorWrongNumberOfArguments("xadd")
	}
	idArg := ctx.argStr(i)
	i++
	fields := ctx.args[i:]
	if len(fields) == 0 || len(fields)%2 != 0 {
		return resp.MakeErrorWrongNumberOfArguments("xadd")
	}

	ent, ok := ctx.lookupTyped(key, storage.TypeStream)
	if !ok {
		return wrongTypeReply
	}
	var stream *storage.Stream
	if ent == nil {
		if nomkstream {
			return nilBulk()
		}
		stream = storage.NewStream()
		ctx.db().Put(key, &storage.Entity{Type: storage.TypeStream, Value: stream})
	} else {
		stream = ent.Stream()
	}

	var id storage.StreamID
	if idArg == "*" {
		id = stream.NextAutoID(ctx.nowMs())
	} else {
		// an explicit "ms-*" asks for auto-seq within the millisecond
		if ms, found := strings.CutSuffix(idArg, "-*"); found {
			n, err := storage.ParseStreamID(ms, 0)
			if err != nil {
				return resp.MakeError(err.Error())
			}
			id = storage.StreamID{Ms: n.Ms}
			if stream.LastID.Ms == n.Ms {
				id.Seq = stream.LastID.Seq + 1
			}
		} else {
			parsed, err := storage.ParseStreamID(idArg, 0)
			if err != nil {
				return resp.MakeError(err.Error())
			}
			id = parsed
		}
	}

	if err := stream.Add(id, fields); err != nil {
		if ent == nil {
			ctx.db().Delete(key)
		}
		return resp.MakeError(err.Error())
	}

	if trimStrategy != "" {
		if res := applyTrim(ctx, key, stream, trimStrategy, trimValue); res.IsError() {
			return res
		}
	}

	ctx.db().Touch(key)
	ctx.signalWrite(classStream, "xadd", key)
	return resp.MakeBulkString(id.String())
}

func applyTrim(ctx *context, key string, stream *storage.Stream, strategy, value string) resp.Value {
	switch strategy {
	case "MAXLEN":
		n, err := parseIntArg(value)
		if err != nil || n < 0 {
			return resp.MakeError(msgNotInteger)
		}
		if removed := stream.TrimMaxLen(int(n)); removed > 0 {
			ctx.notify(classStream, "xtrim", key)
		}
	case "MINID":
		id, err := storage.ParseStreamID(value, 0)
		if err != nil {
			return resp.MakeError(err.Error())
		}
		if removed := stream.TrimMinID(id); removed > 0 {
			ctx.notify(classStream, "xtrim", key)
		}
	}
	return resp.Value{}
}

func xlen(ctx *context) resp.Value {
	stream, errRes, ok := ctx.lookupStream(ctx.argStr(0))
	if !ok {
		return errRes
	}
	if stream == nil {
		return resp.MakeInteger(0)
	}
	return resp.MakeInteger(int64(stream.Len()))
}

func xrangeGeneric(ctx *context, rev bool) resp.Value {
	startArg, endArg := ctx.argStr(1), ctx.argStr(2)
	if rev {
		startArg, endArg = endArg, startArg
	}

	start, startExcl, errRes, ok := parseRangeID(startArg, true)
	if !ok {
		return errRes
	}
	end, endExcl, errRes, ok := parseRangeID(endArg, false)
	if !ok {
		return errRes
	}
	if startExcl {
		start = start.Next()
	}
	if endExcl {
		if end.Ms == 0 && end.Seq == 0 {
			// nothing can precede 0-0
			return resp.MakeArray(nil)
		}
		if end.Seq == 0 {
			end = storage.StreamID{Ms: end.Ms - 1, Seq: math.MaxUint64}
		} else {
			end = storage.StreamID{Ms: end.Ms, Seq: end.Seq - 1}
		}
	}

	count := 0
	if len(ctx.args) == 5 {
		if ctx.argUpper(3) != "COUNT" {
			return syntaxErrReply
		}
		n, err := parseIntArg(ctx.argStr(4))
		if err != nil {
			return resp.MakeError(msgNotInteger)
		}
		count = int(n)
	} else if len(ctx.args) != 3 {
		return syntaxErrReply
	}

	stream, errRes, ok := ctx.lookupStream(ctx.argStr(0))
	if !ok {
		return errRes
	}
	if stream == nil {
		return resp.MakeArray(nil)
	}
	return replyStreamEntries(stream.Range(start, end, count, rev))
}

func xrange(ctx *context) resp.Value {
	return xrangeGeneric(ctx, false)
}

func xrevrange(ctx *context) resp.Value {
	return xrangeGeneric(ctx, true)
}

func xdel(ctx *context) resp.Value {
	key := ctx.argStr(0)
	stream, errRes, ok := ctx.lookupStream(key)
	if !ok {
		return errRes
	}
	if stream == nil {
		return resp.MakeInteger(0)
	}
	ids := make([]storage.StreamID, 0, len(ctx.args)-1)
	for i := 1; i < len(ctx.args); i++ {
		id, err := storage.ParseStreamID(ctx.argStr(i), 0)
		if err != nil {
			return resp.MakeError(err.Error())
		}
		ids = append(ids, id)
	}
	removed := stream.Delete(ids)
	if removed > 0 {
		ctx.db().Touch(key)
		ctx.notify(classStream, "xdel", key)
	}
	return resp.MakeInteger(int64(removed))
}

func xtrim(ctx *context) resp.Value {
	key := ctx.argStr(0)
	strategy := ctx.argUpper(1)
	if strategy != "MAXLEN" && strategy != "MINID" {
		return syntaxErrReply
	}
	i := 2
	if i < len(ctx.args) && (ctx.argStr(i) == "~" || ctx.argStr(i) == "=") {
		i++
	}
	if i >= len(ctx.args) {
		return syntaxErrReply
	}
	value := ctx.argStr(i)

	stream, errRes, ok := ctx.lookupStream(key)
	if !ok {
		return errRes
	}
	if stream == nil {
		return resp.MakeInteger(0)
	}
	before := stream.Len()
	if res := applyTrim(ctx, key, stream, strategy, value); res.IsError() {
		return res
	}
	removed := before - stream.Len()
	if removed > 0 {
		ctx.db().Touch(key)
	}
	return resp.MakeInteger(int64(removed))
}

func xsetid(ctx *context) resp.Value {
	key := ctx.argStr(0)
	id, err := storage.ParseStreamID(ctx.argStr(1), 0)
	if err != nil {
		return resp.MakeError(err.Error())
	}
	stream, errRes, ok := ctx.lookupStream(key)
	if !ok {
		return errRes
	}
	if stream == nil {
		return resp.MakeError("ERR The XSETID command requires the key to exist.")
	}
	if len(stream.Entries) > 0 && id.Less(stream.Entries[len(stream.Entries)-1].ID) {
		return resp.MakeError("ERR The ID specified in XSETID is smaller than the target stream top item")
	}
	stream.LastID = id
	ctx.db().Touch(key)
	return okReply
}

// parseXReadStreams splits the STREAMS tail into key/id pairs
func parseXReadStreams(ctx *context, from int) ([]string, []string, resp.Value, bool) {
	rest := ctx.args[from:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return nil, nil, resp.MakeError("ERR Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified."), false
	}
	n := len(rest) / 2
	keysOut := make([]string, n)
	idsOut := make([]string, n)
	for i := 0; i < n; i++ {
		keysOut[i] = string(rest[i])
		idsOut[i] = string(rest[n+i])
	}
	return keysOut, idsOut, resp.Value{}, true
}

func xread(ctx *context) resp.Value {
	count := 0
	var blockMs int64 = -1

	i := 0
	for i < len(ctx.args) {
		stop := false
		switch ctx.argUpper(i) {
		case "COUNT":
			if i+1 >= len(ctx.args) {
				return syntaxErrReply
			}
			n, err := parseIntArg(ctx.argStr(i + 1))
			if err != nil {
				return resp.MakeError(msgNotInteger)
			}
			count = int(n)
			i += 2
		case "BLOCK":
			if i+1 >= len(ctx.args) {
				return syntaxErrReply
			}
			n, err := parseIntArg(ctx.argStr(i + 1))
			if err != nil || n < 0 {
				return resp.MakeError(msgTimeoutNotFlt)
			}
			blockMs = n
			i += 2
		case "STREAMS":
			i++
			stop = true
		default:
			return syntaxErrReply
		}
		if stop {
			break
		}
	}

	streamKeys, idArgs, errRes, ok := parseXReadStreams(ctx, i)
	if !ok {
		return errRes
	}

	// resolve '$' against the state at call time
	afterIDs := make([]storage.StreamID, len(streamKeys))
	for j, arg := range idArgs {
		if arg == "$" {
			stream, errRes, ok := ctx.lookupStream(streamKeys[j])
			if !ok {
				return errRes
			}
			if stream != nil {
				afterIDs[j] = stream.LastID
			}
			continue
		}
		id, err := storage.ParseStreamID(arg, 0)
		if err != nil {
			return resp.MakeError(err.Error())
		}
		afterIDs[j] = id
	}

	attempt := func() (resp.Value, bool) {
		var out []resp.Value
		for j, key := range streamKeys {
			stream, errRes, ok := ctx.lookupStream(key)
			if !ok {
				return errRes, true
			}
			if stream == nil {
				continue
			}
			entries := stream.After(afterIDs[j], count)
			if len(entries) == 0 {
				continue
			}
			out = append(out, resp.MakeArray([]resp.Value{
				resp.MakeBulkString(key),
				replyStreamEntries(entries),
			}))
		}
		if out == nil {
			return resp.Value{}, false
		}
		return resp.MakeArray(out), true
	}

	if blockMs < 0 {
		if res, ok := attempt(); ok {
			return res
		}
		return resp.MakeNilArray()
	}
	return ctx.maybeBlock(&blockRequest{
		keys:      streamKeys,
		timeout:   msToDuration(blockMs),
		attempt:   attempt,
		onTimeout: resp.MakeNilArray(),
	})
}

func xgroup(ctx *context) resp.Value {
	sub := ctx.argUpper(0)
	switch sub {
	case "CREATE":
		if len(ctx.args) < 4 {
			return errUnknownSubcommand(ctx.argStr(0), "XGROUP")
		}
		key, group, idArg := ctx.argStr(1), ctx.argStr(2), ctx.argStr(3)
		mkstream := len(ctx.args) >= 5 && ctx.argUpper(4) == "MKSTREAM"

		stream, errRes, ok := ctx.lookupStream(key)
		if !ok {
			return errRes
		}
		if stream == nil {
			if !mkstream {
				return resp.MakeError("ERR The XGROUP subcommand requires the key to exist. Note that for CREATE you may want to use the MKSTREAM option to create an empty stream automatically.")
			}
			stream = storage.NewStream()
			ctx.db().Put(key, &storage.Entity{Type: storage.TypeStream, Value: stream})
		}

		var lastID storage.StreamID
		if idArg == "$" {
			lastID = stream.LastID
		} else {
			id, err := storage.ParseStreamID(idArg, 0)
			if err != nil {
				return resp.MakeError(err.Error())
			}
			lastID = id
		}
		if !stream.CreateGroup(group, lastID) {
			return resp.MakeError(msgBusyGroup)
		}
		ctx.db().Touch(key)
		return okReply

	case "DESTROY":
		if len(ctx.args) != 3 {
			return errUnknownSubcommand(ctx.argStr(0), "XGROUP")
		}
		key, group := ctx.argStr(1), ctx.argStr(2)
		stream, errRes, ok := ctx.lookupStream(key)
		if !ok {
			return errRes
		}
		if stream == nil || stream.Group(group) == nil {
			return resp.MakeInteger(0)
		}
		delete(stream.Groups, group)
		ctx.db().Touch(key)
		return resp.MakeInteger(1)

	case "CREATECONSUMER":
		if len(ctx.args) != 4 {
			return errUnknownSubcommand(ctx.argStr(0), "XGROUP")
		}
		key, group, consumer := ctx.argStr(1), ctx.argStr(2), ctx.argStr(3)
		g, errRes := ctx.requireGroup(key, group)
		if g == nil {
			return errRes
		}
		if _, exists := g.Consumers[consumer]; exists {
			return resp.MakeInteger(0)
		}
		g.EnsureConsumer(consumer, ctx.nowMs())
		return resp.MakeInteger(1)

	case "DELCONSUMER":
		if len(ctx.args) != 4 {
			return errUnknownSubcommand(ctx.argStr(0), "XGROUP")
		}
		key, group, consumer := ctx.argStr(1), ctx.argStr(2), ctx.argStr(3)
		g, errRes := ctx.requireGroup(key, group)
		if g == nil {
			return errRes
		}
		pending := int64(len(g.PendingIDs(consumer)))
		for _, id := range g.PendingIDs(consumer) {
			delete(g.Pending, id)
		}
		delete(g.Consumers, consumer)
		return resp.MakeInteger(pending)

	case "SETID":
		if len(ctx.args) < 4 {
			return errUnknownSubcommand(ctx.argStr(0), "XGROUP")
		}
		key, group, idArg := ctx.argStr(1), ctx.argStr(2), ctx.argStr(3)
		stream, errRes, ok := ctx.lookupStream(key)
		if !ok {
			return errRes
		}
		if stream == nil || stream.Group(group) == nil {
			return errNoGroup(key, group)
		}
		g := stream.Group(group)
		if idArg == "$" {
			g.LastDelivered = stream.LastID
		} else {
			id, err := storage.ParseStreamID(idArg, 0)
			if err != nil {
				return resp.MakeError(err.Error())
			}
			g.LastDelivered = id
		}
		return okReply
	}
	return errUnknownSubcommand(ctx.argStr(0), "XGROUP")
}

// requireGroup resolves (key, group) or produces the NOGROUP error
func (ctx *context) requireGroup(key, group string) (*storage.StreamGroup, resp.Value) {
	stream, errRes, ok := ctx.lookupStream(key)
	if !ok {
		return nil, errRes
	}
	if stream == nil || stream.Group(group) == nil {
		return nil, errNoGroup(key, group)
	}
	return stream.Group(group), resp.Value{}
}

func xreadgroup(ctx *context) resp.Value {
	if ctx.argUpper(0) != "GROUP" || len(ctx.args) < 3 {
		return syntaxErrReply
	}
	group, consumer := ctx.argStr(1), ctx.argStr(2)

	count := 0
	var blockMs int64 = -1
	noack := false
	i := 3
	for i < len(ctx.args) {
		stop := false
		switch ctx.argUpper(i) {
		case "COUNT":
			if i+1 >= len(ctx.args) {
				return syntaxErrReply
			}
			n, err := parseIntArg(ctx.argStr(i + 1))
			if err != nil {
				return resp.MakeError(msgNotInteger)
			}
			count = int(n)
			i += 2
		case "BLOCK":
			if i+1 >= len(ctx.args) {
				return syntaxErrReply
			}
			n, err := parseIntArg(ctx.argStr(i + 1))
			if err != nil || n < 0 {
				return resp.MakeError(msgTimeoutNotFlt)
			}
			blockMs = n
			i += 2
		case "NOACK":
			noack = true
			i++
		case "STREAMS":
			i++
			stop = true
		default:
			return syntaxErrReply
		}
		if stop {
			break
		}
	}

	streamKeys, idArgs, errRes, ok := parseXReadStreams(ctx, i)
	if !ok {
		return errRes
	}

	attempt := func() (resp.Value, bool) {
		var out []resp.Value
		sawData := false
		for j, key := range streamKeys {
			stream, errRes, ok := ctx.lookupStream(key)
			if !ok {
				return errRes, true
			}
			if stream == nil || stream.Group(group) == nil {
				return errNoGroup(key, group), true
			}
			g := stream.Group(group)
			g.EnsureConsumer(consumer, ctx.nowMs())

			var entries []storage.StreamEntry
			if idArgs[j] == ">" {
				entries = stream.After(g.LastDelivered, count)
				for _, e := range entries {
					g.LastDelivered = e.ID
					if !noack {
						g.Deliver(e.ID, consumer, ctx.nowMs())
					}
				}
				if len(entries) > 0 {
					sawData = true
					ctx.db().Touch(key)
				}
			} else {
				// history read: serve this consumer's PEL from the given id
				after, err := storage.ParseStreamID(idArgs[j], 0)
				if err != nil {
					return resp.MakeError(err.Error()), true
				}
				for _, id := range g.PendingIDs(consumer) {
					if id.Less(after) || id.Equal(after) {
						continue
					}
					if e, found := stream.Get(id); found {
						entries = append(entries, e)
						if count > 0 && len(entries) >= count {
							break
						}
					}
				}
				sawData = true
			}

			if idArgs[j] == ">" && len(entries) == 0 {
				continue
			}
			out = append(out, resp.MakeArray([]resp.Value{
				resp.MakeBulkString(key),
				replyStreamEntries(entries),
			}))
		}
		if !sawData && out == nil {
			return resp.Value{}, false
		}
		if out == nil {
			return resp.MakeNilArray(), true
		}
		return resp.MakeArray(out), true
	}

	if blockMs < 0 {
		if res, ok := attempt(); ok {
			return res
		}
		return resp.MakeNilArray()
	}
	return ctx.maybeBlock(&blockRequest{
		keys:      streamKeys,
		timeout:   msToDuration(blockMs),
		attempt:   attempt,
		onTimeout: resp.MakeNilArray(),
	})
}

func xack(ctx *context) resp.Value {
	key, group := ctx.argStr(0), ctx.argStr(1)
	stream, errRes, ok := ctx.lookupStream(key)
	if !ok {
		return errRes
	}
	if stream == nil || stream.Group(group) == nil {
		return resp.MakeInteger(0)
	}
	g := stream.Group(group)
	acked := int64(0)
	for i := 2; i < len(ctx.args); i++ {
		id, err := storage.ParseStreamID(ctx.argStr(i), 0)
		if err != nil {
			return resp.MakeError(err.Error())
		}
		if g.Ack(id) {
			acked++
		}
	}
	return resp.MakeInteger(acked)
}

func xpending(ctx *context) resp.Value {
	key, group := ctx.argStr(0), ctx.argStr(1)
	g, errRes := ctx.requireGroup(key, group)
	if g == nil {
		return errRes
	}

	// summary form
	if len(ctx.args) == 2 {
		ids := g.PendingIDs("")
		if len(ids) == 0 {
			return resp.MakeArray([]resp.Value{
				resp.MakeInteger(0),
				nilBulk(),
				nilBulk(),
				resp.MakeNilArray(),
			})
		}
		perConsumer := make(map[string]int64)
		for _, pe := range g.Pending {
			perConsumer[pe.Consumer]++
		}
		consumers := make([]resp.Value, 0, len(perConsumer))
		for _, name := range sortedCountKeys(perConsumer) {
			consumers = append(consumers, resp.MakeArray([]resp.Value{
				resp.MakeBulkString(name),
				resp.MakeBulkString(strconv.FormatInt(perConsumer[name], 10)),
			}))
		}
		return resp.MakeArray([]resp.Value{
			resp.MakeInteger(int64(len(ids))),
			resp.MakeBulkString(ids[0].String()),
			resp.MakeBulkString(ids[len(ids)-1].String()),
			resp.MakeArray(consumers),
		})
	}

	// extended form: [IDLE ms] start end count [consumer]
	i := 2
	var idleMs int64
	if ctx.argUpper(i) == "IDLE" {
		if i+1 >= len(ctx.args) {
			return syntaxErrReply
		}
		n, err := parseIntArg(ctx.argStr(i + 1))
		if err != nil {
			return resp.MakeError(msgNotInteger)
		}
		idleMs = n
		i += 2
	}
	if i+2 >= len(ctx.args) {
		return syntaxErrReply
	}
	start, startExcl, errVal, ok := parseRangeID(ctx.argStr(i), true)
	if !ok {
		return errVal
	}
	end, _, errVal, ok := parseRangeID(ctx.argStr(i+1), false)
	if !ok {
		return errVal
	}
	if startExcl {
		start = start.Next()
	}
	count, err := parseIntArg(ctx.argStr(i + 2))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	consumer := ""
	if i+3 < len(ctx.args) {
		consumer = ctx.argStr(i + 3)
	}

	var out []resp.Value
	for _, id := range g.PendingIDs(consumer) {
		if id.Less(start) || end.Less(id) {
			continue
		}
		pe := g.Pending[id]
		idle := ctx.nowMs() - pe.DeliveryTime
		if idle < idleMs {
			continue
		}
		out = append(out, resp.MakeArray([]resp.Value{
			resp.MakeBulkString(id.String()),
			resp.MakeBulkString(pe.Consumer),
			resp.MakeInteger(idle),
			resp.MakeInteger(pe.DeliveryCount),
		}))
		if int64(len(out)) >= count {
			break
		}
	}
	return resp.MakeArray(out)
}

// xclaim reassigns pending entries to a consumer; IDLE, TIME and RETRYCOUNT
// are parsed and their values ignored
func xclaim(ctx *context) resp.Value {
	key, group, consumer := ctx.argStr(0), ctx.argStr(1), ctx.argStr(2)
	minIdle, err := parseIntArg(ctx.argStr(3))
	if err != nil {
		return resp.MakeError("ERR Invalid min-idle-time argument for XCLAIM")
	}

	var ids []storage.StreamID
	i := 4
	for ; i < len(ctx.args); i++ {
		id, err := storage.ParseStreamID(ctx.argStr(i), 0)
		if err != nil {
			break
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return syntaxErrReply
	}

	justID := false
	force := false
	for ; i < len(ctx.args); i++ {
		switch ctx.argUpper(i) {
		case "JUSTID":
			justID = true
		case "FORCE":
			force = true
		case "IDLE", "TIME", "RETRYCOUNT":
			if i+1 >= len(ctx.args) {
				return syntaxErrReply
			}
			i++
		default:
			return syntaxErrReply
		}
	}

	stream, errRes, ok := ctx.lookupStream(key)
	if !ok {
		return errRes
	}
	if stream == nil || stream.Group(group) == nil {
		return errNoGroup(key, group)
	}
	g := stream.Group(group)
	g.EnsureConsumer(consumer, ctx.nowMs())

	var out []resp.Value
	for _, id := range ids {
		pe, pending := g.Pending[id]
		entry, exists := stream.Get(id)

		if pending && !exists {
			// the entry was deleted from the stream; drop the stale PEL slot
			delete(g.Pending, id)
			continue
		}
		if !pending {
			if !force || !exists {
				continue
			}
			g.Deliver(id, consumer, ctx.nowMs())
			pe = g.Pending[id]
		} else {
			if ctx.nowMs()-pe.DeliveryTime < minIdle {
				continue
			}
			pe.Consumer = consumer
			pe.DeliveryTime = ctx.nowMs()
			if !justID {
				pe.DeliveryCount++
			}
		}

		if justID {
			out = append(out, resp.MakeBulkString(id.String()))
		} else {
			out = append(out, resp.MakeArray([]resp.Value{
				resp.MakeBulkString(entry.ID.String()),
				resp.MakeBulkArray(entry.Fields),
			}))
		}
	}
	ctx.db().Touch(key)
	return resp.MakeArray(out)
}

func xautoclaim(ctx *context) resp.Value {
	key, group, consumer := ctx.argStr(0), ctx.argStr(1), ctx.argStr(2)
	minIdle, err := parseIntArg(ctx.argStr(3))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	start, startExcl, errVal, ok := parseRangeID(ctx.argStr(4), true)
	if !ok {
		return errVal
	}
	if startExcl {
		start = start.Next()
	}

	count := 100
	justID := false
	i := 5
	for i < len(ctx.args) {
		switch ctx.argUpper(i) {
		case "COUNT":
			if i+1 >= len(ctx.args) {
				return syntaxErrReply
			}
			n, err := parseIntArg(ctx.argStr(i + 1))
			if err != nil || n <= 0 {
				return resp.MakeError(msgNotInteger)
			}
			count = int(n)
			i += 2
		case "JUSTID":
			justID = true
			i++
		default:
			return syntaxErrReply
		}
	}

	stream, errRes, ok := ctx.lookupStream(key)
	if !ok {
		return errRes
	}
	if stream == nil || stream.Group(group) == nil {
		return errNoGroup(key, group)
	}
	g := stream.Group(group)
	g.EnsureConsumer(consumer, ctx.nowMs())

	var claimed []resp.Value
	var deleted []resp.Value
	next := storage.StreamID{}
	for _, id := range g.PendingIDs("") {
		if id.Less(start) {
			continue
		}
		if len(claimed) >= count {
			next = id
			break
		}
		pe := g.Pending[id]
		if ctx.nowMs()-pe.DeliveryTime < minIdle {
			continue
		}
		entry, exists := stream.Get(id)
		if !exists {
			delete(g.Pending, id)
			deleted = append(deleted, resp.MakeBulkString(id.String()))
			continue
		}
		pe.Consumer = consumer
		pe.DeliveryTime = ctx.nowMs()
		if !justID {
			pe.DeliveryCount++
		}
		if justID {
			claimed = append(claimed, resp.MakeBulkString(id.String()))
		} else {
			claimed = append(claimed, resp.MakeArray([]resp.Value{
				resp.MakeBulkString(entry.ID.String()),
				resp.MakeBulkArray(entry.Fields),
			}))
		}
	}
	ctx.db().Touch(key)
	return resp.MakeArray([]resp.Value{
		resp.MakeBulkString(next.String()),
		resp.MakeArray(claimed),
		resp.MakeArray(deleted),
	})
}

func xinfo(ctx *context) resp.Value {
	sub := ctx.argUpper(0)
	switch sub {
	case "STREAM":
		if len(ctx.args) != 2 {
			return errUnknownSubcommand(ctx.argStr(0), "XINFO")
		}
		stream, errRes, ok := ctx.lookupStream(ctx.argStr(1))
		if !ok {
			return errRes
		}
		if stream == nil {
			return resp.MakeError(msgNoSuchKey)
		}
		var first, last resp.Value
		if stream.Len() > 0 {
			first = replyStreamEntries(stream.Entries[:1]).Array[0]
			last = replyStreamEntries(stream.Entries[stream.Len()-1:]).Array[0]
		} else {
			first = nilBulk()
			last = nilBulk()
		}
		return resp.MakeMap([]resp.Value{
			resp.MakeBulkString("length"), resp.MakeInteger(int64(stream.Len())),
			resp.MakeBulkString("last-generated-id"), resp.MakeBulkString(stream.LastID.String()),
			resp.MakeBulkString("max-deleted-entry-id"), resp.MakeBulkString(stream.MaxDeleted.String()),
			resp.MakeBulkString("entries-added"), resp.MakeInteger(int64(stream.EntriesAdded)),
			resp.MakeBulkString("groups"), resp.MakeInteger(int64(len(stream.Groups))),
			resp.MakeBulkString("first-entry"), first,
			resp.MakeBulkString("last-entry"), last,
		})

	case "GROUPS":
		if len(ctx.args) != 2 {
			return errUnknownSubcommand(ctx.argStr(0), "XINFO")
		}
		stream, errRes, ok := ctx.lookupStream(ctx.argStr(1))
		if !ok {
			return errRes
		}
		if stream == nil {
			return resp.MakeError(msgNoSuchKey)
		}
		var out []resp.Value
		for _, name := range sortedGroupNames(stream) {
			g := stream.Groups[name]
			out = append(out, resp.MakeMap([]resp.Value{
				resp.MakeBulkString("name"), resp.MakeBulkString(name),
				resp.MakeBulkString("consumers"), resp.MakeInteger(int64(len(g.Consumers))),
				resp.MakeBulkString("pending"), resp.MakeInteger(int64(len(g.Pending))),
				resp.MakeBulkString("last-delivered-id"), resp.MakeBulkString(g.LastDelivered.String()),
				resp.MakeBulkString("entries-read"), resp.MakeInteger(g.EntriesRead),
			}))
		}
		return resp.MakeArray(out)

	case "CONSUMERS":
		if len(ctx.args) != 3 {
			return errUnknownSubcommand(ctx.argStr(0), "XINFO")
		}
		g, errRes := ctx.requireGroup(ctx.argStr(1), ctx.argStr(2))
		if g == nil {
			return errRes
		}
		var out []resp.Value
		for _, name := range sortedConsumerNames(g) {
			c := g.Consumers[name]
			out = append(out, resp.MakeMap([]resp.Value{
				resp.MakeBulkString("name"), resp.MakeBulkString(name),
				resp.MakeBulkString("pending"), resp.MakeInteger(int64(len(g.PendingIDs(name)))),
				resp.MakeBulkString("idle"), resp.MakeInteger(ctx.nowMs() - c.SeenTime),
			}))
		}
		return resp.MakeArray(out)
	}
	return errUnknownSubcommand(ctx.argStr(0), "XINFO")
}
