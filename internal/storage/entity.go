package storage

type DataType byte

const (
	TypeString DataType = iota + 1
	TypeList
	TypeSet
	TypeHash
	TypeZSet
	TypeStream
)

// Name returns the type name as reported by the TYPE command
func (t DataType) Name() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeHash:
		return "hash"
	case TypeZSet:
		return "zset"
	case TypeStream:
		return "stream"
	}
	return "none"
}

// Entity generic container for value
type Entity struct {
	Type  DataType
	Value interface{}
}

func NewStringEntity(b []byte) *Entity {
	return &Entity{Type: TypeString, Value: b}
}

func (e *Entity) Bytes() []byte {
	return e.Value.([]byte)
}

func (e *Entity) SetBytes(b []byte) {
	e.Value = b
}

func (e *Entity) List() *List {
	return e.Value.(*List)
}

func (e *Entity) Hash() Hash {
	return e.Value.(Hash)
}

func (e *Entity) Set() Set {
	return e.Value.(Set)
}

func (e *Entity) ZSet() *ZSet {
	return e.Value.(*ZSet)
}

func (e *Entity) Stream() *Stream {
	return e.Value.(*Stream)
}

// Empty reports whether an aggregate entity holds no elements. Streams are
// never empty in this sense: they persist after XDEL removes everything
// because consumer groups may still reference them.
func (e *Entity) Empty() bool {
	switch e.Type {
	case TypeList:
		return e.List().Len() == 0
	case TypeHash:
		return len(e.Hash()) == 0
	case TypeSet:
		return len(e.Set()) == 0
	case TypeZSet:
		return e.ZSet().Card() == 0
	}
	return false
}
