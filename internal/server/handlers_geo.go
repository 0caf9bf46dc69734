package server

import (
	"strconv"
	"strings"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

func geoadd(ctx *context) resp.Value {
	key := ctx.argStr(0)

	var nx, xx, ch bool
	i := 1
	for i < len(ctx.args) {
		done := false
		switch ctx.argUpper(i) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "CH":
			ch = true
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
	triples := ctx.args[i:]
	if len(triples) == 0 || len(triples)%3 != 0 {
		return syntaxErrReply
	}

	z, errRes, ok := ctx.zsetForWrite(key)
	if !ok {
		return errRes
	}

	added, changed := int64(0), int64(0)
	for j := 0; j < len(triples); j += 3 {
		lon, err1 := parseFloatArg(string(triples[j]))
		lat, err2 := parseFloatArg(string(triples[j+1]))
		if err1 != nil || err2 != nil {
			return resp.MakeError(msgNotFloat)
		}
		score, err := storage.GeoEncode(lon, lat)
		if err != nil {
			return resp.MakeError("ERR invalid longitude,latitude pair " +
				resp.FormatFloat(lon) + "," + resp.FormatFloat(lat))
		}
		member := string(triples[j+2])
		old, exists := z.Score(member)
		if (nx && exists) || (xx && !exists) {
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
	if added+changed > 0 {
		ctx.signalWrite(classZSet, "geoadd", key)
	}
	if ch {
		return resp.MakeInteger(added + changed)
	}
	return resp.MakeInteger(added)
}

func geopos(ctx *context) resp.Value {
	z, errRes, ok := ctx.lookupZSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	out := make([]resp.Value, len(ctx.args)-1)
	for i := 1; i < len(ctx.args); i++ {
		if z == nil {
			out[i-1] = resp.MakeNilArray()
			continue
		}
		score, exists := z.Score(ctx.argStr(i))
		if !exists {
			out[i-1] = resp.MakeNilArray()
			continue
		}
		lon, lat := storage.GeoDecode(score)
		out[i-1] = resp.MakeArray([]resp.Value{
			resp.MakeBulkString(strconv.FormatFloat(lon, 'f', 17, 64)),
			resp.MakeBulkString(strconv.FormatFloat(lat, 'f', 17, 64)),
		})
	}
	return resp.MakeArray(out)
}

func geodist(ctx *context) resp.Value {
	unit := "m"
	if len(ctx.args) == 4 {
		unit = strings.ToLower(ctx.argStr(3))
	}
	factor, ok := storage.GeoUnitMeters(unit)
	if !ok {
		return resp.MakeError("ERR unsupported unit provided. please use m, km, ft, mi")
	}

	z, errRes, typeOK := ctx.lookupZSet(ctx.argStr(0))
	if !typeOK {
		return errRes
	}
	if z == nil {
		return nilBulk()
	}
	s1, ok1 := z.Score(ctx.argStr(1))
	s2, ok2 := z.Score(ctx.argStr(2))
	if !ok1 || !ok2 {
		return nilBulk()
	}
	lon1, lat1 := storage.GeoDecode(s1)
	lon2, lat2 := storage.GeoDecode(s2)
	meters := storage.GeoDist(lon1, lat1, lon2, lat2)
	return resp.MakeBulkString(strconv.FormatFloat(meters/factor, 'f', 4, 64))
}

func geohash(ctx *context) resp.Value {
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
			continue
		}
		out[i-1] = resp.MakeBulkString(storage.GeoHashString(score))
	}
	return resp.MakeArray(out)
}

// geoSearchSpec is the parsed GEOSEARCH grammar
type geoSearchSpec struct {
	fromMember string
	hasMember  bool
	lon, lat   float64
	hasLonLat  bool

	byRadius       bool
	radiusM        float64
	byBox          bool
	widthM, heightM float64

	asc, desc bool
	count     int
	any       bool

	withCoord, withDist, withHash bool
}

func parseGeoSearch(ctx *context, from int) (geoSearchSpec, resp.Value, bool) {
	var spec geoSearchSpec
	i := from
	for i < len(ctx.args) {
		switch ctx.argUpper(i) {
		case "FROMMEMBER":
			if i+1 >= len(ctx.args) {
				return spec, syntaxErrReply, false
			}
			spec.fromMember = ctx.argStr(i + 1)
			spec.hasMember = true
			i += 2
		case "FROMLONLAT":
			if i+2 >= len(ctx.args) {
				return spec, syntaxErrReply, false
			}
			lon, err1 := parseFloatArg(ctx.argStr(i + 1))
			lat, err2 := parseFloatArg(ctx.argStr(i + 2))
			if err1 != nil || err2 != nil {
				return spec, resp.MakeError(msgNotFloat), false
			}
			spec.lon, spec.lat = lon, lat
			spec.hasLonLat = true
			i += 3
		case "BYRADIUS":
			if i+2 >= len(ctx.args) {
				return spec, syntaxErrReply, false
			}
			r, err := parseFloatArg(ctx.argStr(i + 1))
			if err != nil {
				return spec, resp.MakeError(msgNotFloat), false
			}
			factor, ok := storage.GeoUnitMeters(strings.ToLower(ctx.argStr(i + 2)))
			if !ok {
				return spec, resp.MakeError("ERR unsupported unit provided. please use m, km, ft, mi"), false
			}
			spec.byRadius = true
			spec.radiusM = r * factor
			i += 3
		case "BYBOX":
			if i+3 >= len(ctx.args) {
				return spec, syntaxErrReply, false
			}
			w, err1 := parseFloatArg(ctx.argStr(i + 1))
			h, err2 := parseFloatArg(ctx.argStr(i + 2))
			if err1 != nil || err2 != nil {
				return spec, resp.MakeError(msgNotFloat), false
			}
			factor, ok := storage.GeoUnitMeters(strings.ToLower(ctx.argStr(i + 3)))
			if !ok {
				return spec, resp.MakeError("ERR unsupported unit provided. please use m, km, ft, mi"), false
			}
			spec.byBox = true
			spec.widthM, spec.heightM = w*factor, h*factor
			i += 4
		case "ASC":
			spec.asc = true
			i++
		case "DESC":
			spec.desc = true
			i++
		case "COUNT":
			if i+1 >= len(ctx.args) {
				return spec, syntaxErrReply, false
			}
			n, err := parseIntArg(ctx.argStr(i + 1))
			if err != nil || n <= 0 {
				return spec, resp.MakeError("ERR COUNT must be > 0"), false
			}
			spec.count = int(n)
			i += 2
			if i < len(ctx.args) && ctx.argUpper(i) == "ANY" {
				spec.any = true
				i++
			}
		case "WITHCOORD":
			spec.withCoord = true
			i++
		case "WITHDIST":
			spec.withDist = true
			i++
		case "WITHHASH":
			spec.withHash = true
			i++
		default:
			return spec, syntaxErrReply, false
		}
	}

	if spec.hasMember == spec.hasLonLat {
		return spec, syntaxErrReply, false
	}
	if spec.byRadius == spec.byBox {
		return spec, syntaxErrReply, false
	}
	return spec, resp.Value{}, true
}

type geoHit struct {
	member string
	score  float64
	dist   float64
	lon    float64
	lat    float64
}

// geoSearch walks every member; the emulator favors clarity over geohash
// cell pruning
func geoSearch(ctx *context, z *storage.ZSet, spec geoSearchSpec) ([]geoHit, resp.Value, bool) {
	centerLon, centerLat := spec.lon, spec.lat
	if spec.hasMember {
		score, exists := z.Score(spec.fromMember)
		if !exists {
			return nil, resp.MakeError("ERR could not decode requested zset member"), false
		}
		centerLon, centerLat = storage.GeoDecode(score)
	}

	var hits []geoHit
	for _, m := range z.Members() {
		lon, lat := storage.GeoDecode(m.Score)
		dist := storage.GeoDist(centerLon, centerLat, lon, lat)
		if spec.byRadius {
			if dist > spec.radiusM {
				continue
			}
		} else {
			latDist := storage.GeoDist(centerLon, centerLat, centerLon, lat)
			lonDist := storage.GeoDist(centerLon, lat, lon, lat)
			if lonDist > spec.widthM/2 || latDist > spec.heightM/2 {
				continue
			}
		}
		hits = append(hits, geoHit{member: m.Member, score: m.Score, dist: dist, lon: lon, lat: lat})
	}

	if spec.desc {
		sortGeoHits(hits, false)
	} else {
		sortGeoHits(hits, true)
	}
	if spec.count > 0 && len(hits) > spec.count {
		hits = hits[:spec.count]
	}
	return hits, resp.Value{}, true
}

func sortGeoHits(hits []geoHit, asc bool) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0; j-- {
			if (asc && hits[j].dist < hits[j-1].dist) ||
				(!asc && hits[j].dist > hits[j-1].dist) {
				hits[j], hits[j-1] = hits[j-1], hits[j]
			} else {
				break
			}
		}
	}
}

func geosearch(ctx *context) resp.Value {
	spec, errRes, ok := parseGeoSearch(ctx, 1)
	if !ok {
		return errRes
	}
	z, errRes, typeOK := ctx.lookupZSet(ctx.argStr(0))
	if !typeOK {
		return errRes
	}
	if z == nil {
		return resp.MakeArray(nil)
	}
	hits, errRes, ok := geoSearch(ctx, z, spec)
	if !ok {
		return errRes
	}

	plain := !spec.withCoord && !spec.withDist && !spec.withHash
	out := make([]resp.Value, 0, len(hits))
	for _, h := range hits {
		if plain {
			out = append(out, resp.MakeBulkString(h.member))
			continue
		}
		row := []resp.Value{resp.MakeBulkString(h.member)}
		if spec.withDist {
			row = append(row, resp.MakeBulkString(strconv.FormatFloat(h.dist, 'f', 4, 64)))
		}
		if spec.withHash {
			row = append(row, resp.MakeInteger(int64(h.score)))
		}
		if spec.withCoord {
			row = append(row, resp.MakeArray([]resp.Value{
				resp.MakeBulkString(strconv.FormatFloat(h.lon, 'f', 17, 64)),
				resp.MakeBulkString(strconv.FormatFloat(h.lat, 'f', 17, 64)),
			}))
		}
		out = append(out, resp.MakeArray(row))
	}
	return resp.MakeArray(out)
}

func geosearchstore(ctx *context) resp.Value {
	dst := ctx.argStr(0)
	spec, errRes, ok := parseGeoSearch(ctx, 2)
	if !ok {
		return errRes
	}
	z, errRes, typeOK := ctx.lookupZSet(ctx.argStr(1))
	if !typeOK {
		return errRes
	}
	db := ctx.db()
	if z == nil {
		if db.Delete(dst) {
			ctx.notify(classGeneric, "del", dst)
		}
		return resp.MakeInteger(0)
	}
	hits, errRes, ok := geoSearch(ctx, z, spec)
	if !ok {
		return errRes
	}
	if len(hits) == 0 {
		if db.Delete(dst) {
			ctx.notify(classGeneric, "del", dst)
		}
		return resp.MakeInteger(0)
	}
	out := storage.NewZSet(ctx.eng.rng)
	for _, h := range hits {
		out.Add(h.member, h.score)
	}
	db.Put(dst, &storage.Entity{Type: storage.TypeZSet, Value: out})
	ctx.signalWrite(classZSet, "geosearchstore", dst)
	return resp.MakeInteger(int64(out.Card()))
}
