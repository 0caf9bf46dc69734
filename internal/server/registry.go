package server

import (
	"github.com/eternalApril/moonbeam/internal/resp"
)

// registerCommands fills the dispatch table. Arity counts the command name
// itself; negative means "at least".
func (e *Engine) registerCommands() {
	reg := func(name string, arity int, flags cmdFlags, h func(*context) resp.Value) {
		e.register(&command{name: name, arity: arity, flags: flags, firstKey: 1, lastKey: 1, keyStep: 1, handler: h})
	}

	// connection
	reg("PING", -1, flagFast, ping)
	reg("ECHO", 2, flagFast, echo)
	reg("AUTH", -2, flagNoScript|flagLoading|flagStale|flagFast, auth)
	reg("HELLO", -1, flagNoScript|flagLoading|flagStale|flagFast, hello)
	reg("SELECT", 2, flagFast|flagLoading|flagStale, selectCmd)
	reg("SWAPDB", 3, flagWrite|flagFast, swapdb)
	reg("QUIT", -1, flagNoScript|flagLoading|flagStale|flagFast, quit)
	reg("RESET", 1, flagNoScript|flagLoading|flagStale|flagFast, reset)
	reg("CLIENT", -2, flagAdmin|flagNoScript, clientCmd)

	// server administration
	reg("COMMAND", -1, flagLoading|flagStale, commandCmd)
	reg("CONFIG", -2, flagAdmin|flagNoScript|flagLoading|flagStale, configCmd)
	reg("INFO", -1, flagLoading|flagStale, info)
	reg("TIME", 1, flagLoading|flagStale|flagFast, timeCmd)
	reg("DBSIZE", 1, flagReadonly|flagFast, dbsize)
	reg("FLUSHDB", -1, flagWrite, flushdb)
	reg("FLUSHALL", -1, flagWrite, flushall)
	reg("LASTSAVE", 1, flagLoading|flagStale|flagFast, lastsave)
	reg("SAVE", 1, flagAdmin|flagNoScript, save)
	reg("BGSAVE", -1, flagAdmin|flagNoScript, bgsave)
	reg("BGREWRITEAOF", 1, flagAdmin|flagNoScript, bgrewriteaof)
	reg("DEBUG", -2, flagAdmin|flagNoScript|flagLoading|flagStale, debugCmd)
	reg("WAIT", 3, flagNoScript|flagBlocking, wait)
	reg("REPLICAOF", 3, flagAdmin|flagNoScript|flagStale, replicaof)
	reg("SHUTDOWN", -1, flagAdmin|flagNoScript|flagLoading|flagStale, shutdown)
	reg("SLAVEOF", 3, flagAdmin|flagNoScript|flagStale, replicaof)

	// scripting
	reg("SCRIPT", -2, flagNoScript, scriptCmd)
	reg("EVAL", -3, flagNoScript|flagWrite, eval)
	reg("EVALSHA", -3, flagNoScript|flagWrite, evalsha)

	// keyspace
	reg("DEL", -2, flagWrite, del)
	reg("UNLINK", -2, flagWrite|flagFast, del)
	reg("EXISTS", -2, flagReadonly|flagFast, exists)
	reg("TYPE", 2, flagReadonly|flagFast, typeCmd)
	reg("KEYS", 2, flagReadonly, keys)
	reg("SCAN", -2, flagReadonly, scan)
	reg("RENAME", 3, flagWrite, rename)
	reg("RENAMENX", 3, flagWrite|flagFast, renamenx)
	reg("COPY", -3, flagWrite, copyCmd)
	reg("MOVE", 3, flagWrite|flagFast, move)
	reg("RANDOMKEY", 1, flagReadonly, randomkey)
	reg("TOUCH", -2, flagReadonly|flagFast, touch)
	reg("EXPIRE", -3, flagWrite|flagFast, expire)
	reg("PEXPIRE", -3, flagWrite|flagFast, pexpire)
	reg("EXPIREAT", -3, flagWrite|flagFast, expireat)
	reg("PEXPIREAT", -3, flagWrite|flagFast, pexpireat)
	reg("EXPIRETIME", 2, flagReadonly|flagFast, expiretime)
	reg("PEXPIRETIME", 2, flagReadonly|flagFast, pexpiretime)
	reg("TTL", 2, flagReadonly|flagFast, ttl)
	reg("PTTL", 2, flagReadonly|flagFast, pttl)
	reg("PERSIST", 2, flagWrite|flagFast, persist)
	reg("OBJECT", -2, flagReadonly, objectCmd)

	// strings
	reg("GET", 2, flagReadonly|flagFast, get)
	reg("SET", -3, flagWrite, set)
	reg("SETNX", 3, flagWrite|flagFast, setnx)
	reg("SETEX", 4, flagWrite, setex)
	reg("PSETEX", 4, flagWrite, psetex)
	reg("GETSET", 3, flagWrite|flagFast, getset)
	reg("GETDEL", 2, flagWrite|flagFast, getdel)
	reg("GETEX", -2, flagWrite|flagFast, getex)
	reg("APPEND", 3, flagWrite|flagFast, appendCmd)
	reg("STRLEN", 2, flagReadonly|flagFast, strlen)
	reg("INCR", 2, flagWrite|flagFast, incr)
	reg("DECR", 2, flagWrite|flagFast, decr)
	reg("INCRBY", 3, flagWrite|flagFast, incrby)
	reg("DECRBY", 3, flagWrite|flagFast, decrby)
	reg("INCRBYFLOAT", 3, flagWrite|flagFast, incrbyfloat)
	reg("MGET", -2, flagReadonly|flagFast, mget)
	reg("MSET", -3, flagWrite, mset)
	reg("MSETNX", -3, flagWrite, msetnx)
	reg("SETRANGE", 4, flagWrite, setrange)
	reg("GETRANGE", 4, flagReadonly, getrange)
	reg("SUBSTR", 4, flagReadonly, getrange)

	// bitmaps
	reg("SETBIT", 4, flagWrite, setbit)
	reg("GETBIT", 3, flagReadonly|flagFast, getbit)
	reg("BITCOUNT", -2, flagReadonly, bitcount)
	reg("BITPOS", -3, flagReadonly, bitpos)
	reg("BITOP", -4, flagWrite, bitop)

	// hyperloglog
	reg("PFADD", -2, flagWrite|flagFast, pfadd)
	reg("PFCOUNT", -2, flagReadonly, pfcount)
	reg("PFMERGE", -2, flagWrite, pfmerge)

	// lists
	reg("LPUSH", -3, flagWrite|flagFast, lpush)
	reg("RPUSH", -3, flagWrite|flagFast, rpush)
	reg("LPUSHX", -3, flagWrite|flagFast, lpushx)
	reg("RPUSHX", -3, flagWrite|flagFast, rpushx)
	reg("LPOP", -2, flagWrite|flagFast, lpop)
	reg("RPOP", -2, flagWrite|flagFast, rpop)
	reg("LLEN", 2, flagReadonly|flagFast, llen)
	reg("LRANGE", 4, flagReadonly, lrange)
	reg("LINDEX", 3, flagReadonly, lindex)
	reg("LSET", 4, flagWrite, lset)
	reg("LINSERT", 5, flagWrite, linsert)
	reg("LREM", 4, flagWrite, lrem)
	reg("LTRIM", 4, flagWrite, ltrim)
	reg("LPOS", -3, flagReadonly, lpos)
	reg("LMOVE", 5, flagWrite, lmove)
	reg("RPOPLPUSH", 3, flagWrite, rpoplpush)
	reg("BLPOP", -3, flagWrite|flagNoScript|flagBlocking, blpop)
	reg("BRPOP", -3, flagWrite|flagNoScript|flagBlocking, brpop)
	reg("BLMOVE", 6, flagWrite|flagNoScript|flagBlocking, blmove)
	reg("BRPOPLPUSH", 4, flagWrite|flagNoScript|flagBlocking, brpoplpush)

	// hashes
	reg("HSET", -4, flagWrite|flagFast, hset)
	reg("HSETNX", 4, flagWrite|flagFast, hsetnx)
	reg("HMSET", -4, flagWrite|flagFast, hmset)
	reg("HGET", 3, flagReadonly|flagFast, hget)
	reg("HMGET", -3, flagReadonly|flagFast, hmget)
	reg("HDEL", -3, flagWrite|flagFast, hdel)
	reg("HLEN", 2, flagReadonly|flagFast, hlen)
	reg("HEXISTS", 3, flagReadonly|flagFast, hexists)
	reg("HKEYS", 2, flagReadonly, hkeys)
	reg("HVALS", 2, flagReadonly, hvals)
	reg("HGETALL", 2, flagReadonly, hgetall)
	reg("HINCRBY", 4, flagWrite|flagFast, hincrby)
	reg("HINCRBYFLOAT", 4, flagWrite|flagFast, hincrbyfloat)
	reg("HSTRLEN", 3, flagReadonly|flagFast, hstrlen)
	reg("HRANDFIELD", -2, flagReadonly, hrandfield)
	reg("HSCAN", -3, flagReadonly, hscan)

	// sets
	reg("SADD", -3, flagWrite|flagFast, sadd)
	reg("SREM", -3, flagWrite|flagFast, srem)
	reg("SMEMBERS", 2, flagReadonly, smembers)
	reg("SISMEMBER", 3, flagReadonly|flagFast, sismember)
	reg("SMISMEMBER", -3, flagReadonly|flagFast, smismember)
	reg("SCARD", 2, flagReadonly|flagFast, scard)
	reg("SPOP", -2, flagWrite|flagFast, spop)
	reg("SRANDMEMBER", -2, flagReadonly, srandmember)
	reg("SMOVE", 4, flagWrite|flagFast, smove)
	reg("SDIFF", -2, flagReadonly, setAlgebraCmd("DIFF"))
	reg("SDIFFSTORE", -3, flagWrite, setAlgebraStoreCmd("DIFF"))
	reg("SINTER", -2, flagReadonly, setAlgebraCmd("INTER"))
	reg("SINTERSTORE", -3, flagWrite, setAlgebraStoreCmd("INTER"))
	reg("SINTERCARD", -3, flagReadonly, sintercard)
	reg("SUNION", -2, flagReadonly, setAlgebraCmd("UNION"))
	reg("SUNIONSTORE", -3, flagWrite, setAlgebraStoreCmd("UNION"))
	reg("SSCAN", -3, flagReadonly, sscan)

	// sorted sets
	reg("ZADD", -4, flagWrite|flagFast, zadd)
	reg("ZSCORE", 3, flagReadonly|flagFast, zscore)
	reg("ZMSCORE", -3, flagReadonly|flagFast, zmscore)
	reg("ZCARD", 2, flagReadonly|flagFast, zcard)
	reg("ZCOUNT", 4, flagReadonly|flagFast, zcount)
	reg("ZLEXCOUNT", 4, flagReadonly|flagFast, zlexcount)
	reg("ZINCRBY", 4, flagWrite|flagFast, zincrby)
	reg("ZRANGE", -4, flagReadonly, zrange)
	reg("ZRANGESTORE", -5, flagWrite, zrangestore)
	reg("ZRANGEBYSCORE", -4, flagReadonly, zrangebyscore)
	reg("ZREVRANGEBYSCORE", -4, flagReadonly, zrevrangebyscore)
	reg("ZRANGEBYLEX", -4, flagReadonly, zrangebylex)
	reg("ZREVRANGEBYLEX", -4, flagReadonly, zrevrangebylex)
	reg("ZREVRANGE", -4, flagReadonly, zrevrange)
	reg("ZRANK", -3, flagReadonly|flagFast, zrank)
	reg("ZREVRANK", -3, flagReadonly|flagFast, zrevrank)
	reg("ZREM", -3, flagWrite|flagFast, zrem)
	reg("ZREMRANGEBYRANK", 4, flagWrite, zremrangebyrank)
	reg("ZREMRANGEBYSCORE", 4, flagWrite, zremrangebyscore)
	reg("ZREMRANGEBYLEX", 4, flagWrite, zremrangebylex)
	reg("ZPOPMIN", -2, flagWrite|flagFast, zpopmin)
	reg("ZPOPMAX", -2, flagWrite|flagFast, zpopmax)
	reg("BZPOPMIN", -3, flagWrite|flagNoScript|flagBlocking|flagFast, bzpopmin)
	reg("BZPOPMAX", -3, flagWrite|flagNoScript|flagBlocking|flagFast, bzpopmax)
	reg("ZRANDMEMBER", -2, flagReadonly, zrandmember)
	reg("ZUNION", -3, flagReadonly, zsetAlgebraCmd("UNION"))
	reg("ZINTER", -3, flagReadonly, zsetAlgebraCmd("INTER"))
	reg("ZDIFF", -3, flagReadonly, zsetAlgebraCmd("DIFF"))
	reg("ZUNIONSTORE", -4, flagWrite, zsetAlgebraStoreCmd("UNION"))
	reg("ZINTERSTORE", -4, flagWrite, zsetAlgebraStoreCmd("INTER"))
	reg("ZDIFFSTORE", -4, flagWrite, zsetAlgebraStoreCmd("DIFF"))
	reg("ZSCAN", -3, flagReadonly, zscan)

	// geo (zset overlay)
	reg("GEOADD", -5, flagWrite, geoadd)
	reg("GEOPOS", -2, flagReadonly, geopos)
	reg("GEODIST", -4, flagReadonly, geodist)
	reg("GEOHASH", -2, flagReadonly, geohash)
	reg("GEOSEARCH", -7, flagReadonly, geosearch)
	reg("GEOSEARCHSTORE", -8, flagWrite, geosearchstore)

	// streams
	reg("XADD", -5, flagWrite|flagFast, xadd)
	reg("XLEN", 2, flagReadonly|flagFast, xlen)
	reg("XRANGE", -4, flagReadonly, xrange)
	reg("XREVRANGE", -4, flagReadonly, xrevrange)
	reg("XDEL", -3, flagWrite|flagFast, xdel)
	reg("XTRIM", -4, flagWrite, xtrim)
	reg("XREAD", -4, flagReadonly|flagNoScript|flagBlocking, xread)
	reg("XGROUP", -2, flagWrite, xgroup)
	reg("XREADGROUP", -7, flagWrite|flagNoScript|flagBlocking, xreadgroup)
	reg("XACK", -4, flagWrite|flagFast, xack)
	reg("XPENDING", -3, flagReadonly, xpending)
	reg("XCLAIM", -6, flagWrite|flagFast, xclaim)
	reg("XAUTOCLAIM", -6, flagWrite|flagFast, xautoclaim)
	reg("XSETID", -3, flagWrite|flagFast, xsetid)
	reg("XINFO", -2, flagReadonly, xinfo)

	// pub/sub
	reg("SUBSCRIBE", -2, flagPubsub|flagNoScript|flagLoading|flagStale, subscribe)
	reg("UNSUBSCRIBE", -1, flagPubsub|flagNoScript|flagLoading|flagStale, unsubscribe)
	reg("PSUBSCRIBE", -2, flagPubsub|flagNoScript|flagLoading|flagStale, psubscribe)
	reg("PUNSUBSCRIBE", -1, flagPubsub|flagNoScript|flagLoading|flagStale, punsubscribe)
	reg("PUBLISH", 3, flagPubsub|flagLoading|flagStale|flagFast, publish)
	reg("PUBSUB", -2, flagPubsub|flagLoading|flagStale, pubsub)

	// transactions
	reg("MULTI", 1, flagNoScript|flagLoading|flagStale|flagFast, multi)
	reg("EXEC", 1, flagNoScript|flagLoading|flagStale, exec)
	reg("DISCARD", 1, flagNoScript|flagLoading|flagStale|flagFast, discard)
	reg("WATCH", -2, flagNoScript|flagLoading|flagStale|flagFast, watch)
	reg("UNWATCH", 1, flagNoScript|flagLoading|flagStale|flagFast, unwatch)
}
