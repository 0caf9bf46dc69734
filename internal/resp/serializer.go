package resp

import (
	"bytes"
)

// SerializeCommand uses a standard Encoder to convert the command to bytes,
// the way a client would send it. Used by the append log.
func SerializeCommand(cmd string, args [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	elements := make([]Value, 1+len(args))
	elements[0] = MakeBulkString(cmd)
	for i, a := range args {
		elements[i+1] = MakeBulkBytes(a)
	}

	if err := enc.Write(MakeArray(elements)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
