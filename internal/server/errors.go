package server

import (
	"fmt"

	"github.com/eternalApril/moonbeam/internal/resp"
)

// Canonical client-visible error messages. Tests depend on the exact
// wording, so they live in one place.
const (
	msgWrongType      = "WRONGTYPE Operation against a key holding the wrong kind of value"
	msgSyntaxError    = "ERR syntax error"
	msgNotInteger     = "ERR value is not an integer or out of range"
	msgNotFloat       = "ERR value is not a valid float"
	msgNoSuchKey      = "ERR no such key"
	msgIndexRange     = "ERR index out of range"
	msgIncrOverflow   = "ERR increment or decrement would overflow"
	msgIncrByOverflow = "ERR increment would overflow"
	msgNestedMulti    = "ERR MULTI calls can not be nested"
	msgExecNoMulti    = "ERR EXEC without MULTI"
	msgDiscardNoMulti = "ERR DISCARD without MULTI"
	msgWatchInMulti   = "ERR WATCH inside MULTI is not allowed"
	msgExecAbort      = "EXECABORT Transaction discarded because of previous errors."
	msgNoAuth         = "NOAUTH Authentication required."
	msgWrongPass      = "WRONGPASS invalid username-password pair or user is disabled."
	msgAuthNoPass     = "ERR Client sent AUTH, but no password is set. Did you mean AUTH <username> <password>?"
	msgDBIndexRange   = "ERR DB index is out of range"
	msgTimeoutNotFlt  = "ERR timeout is not a float or out of range"
	msgTimeoutNeg     = "ERR timeout is negative"
	msgBusyGroup      = "BUSYGROUP Consumer Group name already exists"
	msgNoScript       = "NOSCRIPT No matching script. Please use EVAL."
	msgNoProto        = "NOPROTO unsupported protocol version"
	msgExpireOpts     = "ERR NX and XX, GT or LT options at the same time are not compatible"
	msgZaddNxXx       = "ERR XX and NX options at the same time are not compatible"
	msgZaddGtLtNx     = "ERR GT, LT, and/or NX options at the same time are not compatible"
	msgZaddIncrSingle = "ERR INCR option supports a single increment-element pair"
	msgBitOpNotLen    = "ERR BITOP NOT must be called with a single source key."
	msgBitArgMustBit  = "ERR bit is not an integer or out of range"
	msgOffsetRange    = "ERR bit offset is not an integer or out of range"
	msgStringExceeds  = "ERR string exceeds maximum allowed size (proto-max-bulk-len)"
	msgLposRankZero   = "ERR RANK can't be zero. Use 1 to start searching from the first matching element, or the appropriate negative rank value"
	msgValueRange     = "ERR value is out of range, must be positive"
	msgSameObject     = "ERR source and destination objects are the same"
)

func errUnknownCommand(name string) resp.Value {
	return resp.MakeError(fmt.Sprintf("ERR unknown command '%s'", name))
}

func errUnknownSubcommand(sub, cmd string) resp.Value {
	return resp.MakeError(fmt.Sprintf(
		"ERR Unknown subcommand or wrong number of arguments for '%s'. Try %s HELP.", sub, cmd))
}

func errNoGroup(key, group string) resp.Value {
	return resp.MakeError(fmt.Sprintf(
		"NOGROUP No such consumer group '%s' for key name '%s'", group, key))
}

func errSubscribeContext(name string) resp.Value {
	return resp.MakeError(fmt.Sprintf(
		"ERR Can't execute '%s': only (P|S)SUBSCRIBE / (P|S)UNSUBSCRIBE / PING / QUIT / RESET are allowed in this context", name))
}
