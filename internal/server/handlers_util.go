package server

import (
	"sort"
	"strconv"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

var (
	okReply        = resp.MakeSimpleString("OK")
	wrongTypeReply = resp.MakeError(msgWrongType)
	syntaxErrReply = resp.MakeError(msgSyntaxError)
)

func parseIntArg(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parseFloatArg(s string) (float64, error) {
	return storage.ParseFloat(s)
}

// nilBulk is the absent-value reply; the encoder renders it per protocol
func nilBulk() resp.Value {
	return resp.MakeNilBulkString()
}

// replyMembers renders ZMember lists: a flat member list, or a flat
// member/score list (the WITHSCORES shape)
func replyMembers(members []storage.ZMember, withScores bool) resp.Value {
	if !withScores {
		out := make([]resp.Value, len(members))
		for i, m := range members {
			out[i] = resp.MakeBulkString(m.Member)
		}
		return resp.MakeArray(out)
	}
	out := make([]resp.Value, 0, len(members)*2)
	for _, m := range members {
		out = append(out, resp.MakeBulkString(m.Member))
		out = append(out, resp.MakeBulkString(resp.FormatFloat(m.Score)))
	}
	return resp.MakeArray(out)
}

// replyStreamEntries renders entries as [id, [field, value, ...]] pairs
func replyStreamEntries(entries []storage.StreamEntry) resp.Value {
	out := make([]resp.Value, len(entries))
	for i, e := range entries {
		out[i] = resp.MakeArray([]resp.Value{
			resp.MakeBulkString(e.ID.String()),
			resp.MakeBulkArray(e.Fields),
		})
	}
	return resp.MakeArray(out)
}

// scanArgs holds the parsed tail of the SCAN-family grammar
type scanArgs struct {
	match    string
	hasMatch bool
	count    int
	typeName string
}

// parseScanArgs consumes MATCH/COUNT/TYPE options starting at args[from]
func parseScanArgs(ctx *context, from int, allowType bool) (scanArgs, resp.Value, bool) {
	out := scanArgs{count: 10}
	i := from
	for i < len(ctx.args) {
		switch ctx.argUpper(i) {
		case "MATCH":
			if i+1 >= len(ctx.args) {
				return out, syntaxErrReply, false
			}
			out.match = ctx.argStr(i + 1)
			out.hasMatch = true
			i += 2
		case "COUNT":
			if i+1 >= len(ctx.args) {
				return out, syntaxErrReply, false
			}
			n, err := parseIntArg(ctx.argStr(i + 1))
			if err != nil || n <= 0 {
				return out, syntaxErrReply, false
			}
			out.count = int(n)
			i += 2
		case "TYPE":
			if !allowType || i+1 >= len(ctx.args) {
				return out, syntaxErrReply, false
			}
			out.typeName = ctx.argStr(i + 1)
			i += 2
		default:
			return out, syntaxErrReply, false
		}
	}
	return out, resp.Value{}, true
}

// scanWindow implements cursor iteration over a sorted snapshot of element
// names: the cursor is simply the offset into the sorted order. A full
// rescan between calls keeps the guarantees Redis documents (elements
// present the whole time are returned at least once).
func scanWindow(elements []string, cursor, count int) (next int, window []string) {
	sort.Strings(elements)
	if cursor >= len(elements) {
		return 0, nil
	}
	end := cursor + count
	if end >= len(elements) {
		return 0, elements[cursor:]
	}
	return end, elements[cursor:end]
}

// scanReply renders the [cursor, items] pair
func scanReply(next int, items []resp.Value) resp.Value {
	return resp.MakeArray([]resp.Value{
		resp.MakeBulkString(strconv.Itoa(next)),
		resp.MakeArray(items),
	})
}
