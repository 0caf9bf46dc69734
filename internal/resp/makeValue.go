package resp

import (
	"fmt"
	"math"
	"strconv"
)

// MakeSimpleString construct SimpleString Value from string
func MakeSimpleString(s string) Value {
	return Value{
		Type:   TypeSimpleString,
		String: []byte(s),
	}
}

// MakeError construct Error Value from string
func MakeError(s string) Value {
	return Value{
		Type:   TypeError,
		String: []byte(s),
	}
}

// MakeErrorWrongNumberOfArguments construct Error Value that command had wrong number of arguments for command
func MakeErrorWrongNumberOfArguments(cmd string) Value {
	return MakeError(fmt.Sprintf("ERR wrong number of arguments for '%s' command", cmd))
}

// MakeBulkString construct BulkString Value from string
func MakeBulkString(s string) Value {
	return Value{
		Type:   TypeBulkString,
		String: []byte(s),
	}
}

// MakeBulkBytes construct BulkString Value from raw bytes
func MakeBulkBytes(b []byte) Value {
	return Value{
		Type:   TypeBulkString,
		String: b,
	}
}

// MakeNilBulkString construct nil BulkSting Value
func MakeNilBulkString() Value {
	return Value{
		Type:   TypeBulkString,
		IsNull: true,
	}
}

// MakeNilArray construct nil Array Value
func MakeNilArray() Value {
	return Value{
		Type:   TypeArray,
		IsNull: true,
	}
}

// MakeInteger construct Integer Value from int64
func MakeInteger(n int64) Value {
	return Value{
		Type:    TypeInteger,
		Integer: n,
	}
}

// MakeArray creates a standard RESP array containing the provided elements
func MakeArray(values []Value) Value {
	return Value{
		Type:  TypeArray,
		Array: values,
	}
}

// MakeBulkArray creates an array of bulk strings from raw byte slices
func MakeBulkArray(items [][]byte) Value {
	vals := make([]Value, len(items))
	for i, it := range items {
		vals[i] = MakeBulkBytes(it)
	}
	return MakeArray(vals)
}

// MakeMap creates a RESP3 map from flattened key/value pairs.
// len(pairs) must be even.
func MakeMap(pairs []Value) Value {
	return Value{
		Type:  TypeMap,
		Array: pairs,
	}
}

// MakeSet creates a RESP3 set
func MakeSet(values []Value) Value {
	return Value{
		Type:  TypeSet,
		Array: values,
	}
}

// MakePush creates a RESP3 push frame (array on RESP2)
func MakePush(values []Value) Value {
	return Value{
		Type:  TypePush,
		Array: values,
	}
}

// MakeDouble creates a RESP3 double (bulk string on RESP2)
func MakeDouble(f float64) Value {
	return Value{
		Type:   TypeDouble,
		Double: f,
	}
}

// MakeBoolean creates a RESP3 boolean (integer on RESP2)
func MakeBoolean(b bool) Value {
	return Value{
		Type: TypeBoolean,
		Bool: b,
	}
}

// MakeVerbatim creates a RESP3 verbatim string with a three-letter format
// prefix such as "txt"
func MakeVerbatim(format, s string) Value {
	return Value{
		Type:   TypeVerbatim,
		String: []byte(format + ":" + s),
	}
}

// MakeBigNumber creates a RESP3 big number from its decimal representation
func MakeBigNumber(s string) Value {
	return Value{
		Type:   TypeBigNumber,
		String: []byte(s),
	}
}

// FormatFloat renders a double the way the wire protocol expects: no
// trailing zeros, no trailing dot, "inf"/"-inf" for infinities.
func FormatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
