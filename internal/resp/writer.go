package resp

import (
	"bufio"
	"io"
	"strconv"
)

// Encoder handles the serialization of RESP Value objects into an output
// stream. The protocol version (2 or 3) decides how RESP3-only frames are
// rendered; it starts at 2 and is switched by HELLO.
type Encoder struct {
	writer *bufio.Writer
	proto  int
}

// NewEncoder initializes an Encoder with a buffered writer
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		writer: bufio.NewWriter(w),
		proto:  2,
	}
}

// SetProtocol switches the wire protocol version (2 or 3)
func (e *Encoder) SetProtocol(v int) {
	e.proto = v
}

// Protocol returns the negotiated protocol version
func (e *Encoder) Protocol() int {
	return e.proto
}

// Write serializes a RESP Value and writes it to the underlying stream
func (e *Encoder) Write(v Value) error {
	if err := e.encode(v); err != nil {
		return err
	}
	return e.writer.Flush()
}

// WriteNoFlush serializes without flushing, for pipelined replies
func (e *Encoder) WriteNoFlush(v Value) error {
	return e.encode(v)
}

// Flush sends all buffered data
func (e *Encoder) Flush() error {
	return e.writer.Flush()
}

func (e *Encoder) encode(v Value) error {
	switch v.Type {
	case TypeInteger:
		return e.writeHeader(':', v.Integer)

	case TypeSimpleString:
		return e.writeRaw('+', v.String)

	case TypeError:
		return e.writeRaw('-', v.String)

	case TypeBulkString:
		if v.IsNull {
			if e.proto >= 3 {
				return e.writeNull("_\r\n")
			}
			return e.writeNull("$-1\r\n")
		}
		return e.writeBulk('$', v.String)

	case TypeVerbatim:
		if e.proto >= 3 {
			return e.writeBulk('=', v.String)
		}
		// drop the format prefix on RESP2
		s := v.String
		if len(s) > 4 {
			s = s[4:]
		}
		return e.writeBulk('$', s)

	case TypeBigNumber:
		if e.proto >= 3 {
			return e.writeRaw('(', v.String)
		}
		return e.writeBulk('$', v.String)

	case TypeDouble:
		if e.proto >= 3 {
			return e.writeRaw(',', []byte(FormatFloat(v.Double)))
		}
		return e.writeBulk('$', []byte(FormatFloat(v.Double)))

	case TypeBoolean:
		if e.proto >= 3 {
			if v.Bool {
				return e.writeRaw('#', []byte{'t'})
			}
			return e.writeRaw('#', []byte{'f'})
		}
		if v.Bool {
			return e.writeHeader(':', 1)
		}
		return e.writeHeader(':', 0)

	case TypeNull:
		if e.proto >= 3 {
			_, err := e.writer.WriteString("_\r\n")
			return err
		}
		return e.writeNull("$-1\r\n")

	case TypeArray:
		if v.IsNull {
			if e.proto >= 3 {
				_, err := e.writer.WriteString("_\r\n")
				return err
			}
			return e.writeNull("*-1\r\n")
		}
		return e.writeAggregate('*', v.Array)

	case TypeMap:
		if e.proto >= 3 {
			if err := e.writeHeader('%', int64(len(v.Array)/2)); err != nil {
				return err
			}
			for _, el := range v.Array {
				if err := e.encode(el); err != nil {
					return err
				}
			}
			return nil
		}
		return e.writeAggregate('*', v.Array)

	case TypeSet:
		if e.proto >= 3 {
			return e.writeAggregate('~', v.Array)
		}
		return e.writeAggregate('*', v.Array)

	case TypePush:
		if e.proto >= 3 {
			return e.writeAggregate('>', v.Array)
		}
		return e.writeAggregate('*', v.Array)
	}

	return nil
}

func (e *Encoder) writeNull(s string) error {
	_, err := e.writer.WriteString(s)
	return err
}

func (e *Encoder) writeAggregate(prefix byte, elements []Value) error {
	if err := e.writeHeader(prefix, int64(len(elements))); err != nil {
		return err
	}
	for _, el := range elements {
		if err := e.encode(el); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeBulk(prefix byte, b []byte) error {
	if err := e.writeHeader(prefix, int64(len(b))); err != nil {
		return err
	}
	if _, err := e.writer.Write(b); err != nil {
		return err
	}
	_, err := e.writer.WriteString("\r\n")
	return err
}

// writeHeader writes the type prefix, numeric value, and CRLF
func (e *Encoder) writeHeader(prefix byte, n int64) error {
	if err := e.writer.WriteByte(prefix); err != nil {
		return err
	}
	e.appendInt(n)
	_, err := e.writer.WriteString("\r\n")
	return err
}

// writeRaw writes the type prefix, raw bytes, and CRLF (for SimpleString and Error)
func (e *Encoder) writeRaw(prefix byte, b []byte) error {
	if err := e.writer.WriteByte(prefix); err != nil {
		return err
	}
	if _, err := e.writer.Write(b); err != nil {
		return err
	}
	_, err := e.writer.WriteString("\r\n")
	return err
}

// appendInt converts an integer to a string and writes it to the buffer
func (e *Encoder) appendInt(n int64) {
	b := e.writer.AvailableBuffer()
	b = strconv.AppendInt(b, n, 10)
	e.writer.Write(b) //nolint:errcheck
}
