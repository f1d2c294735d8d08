package arcanet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedNode is returned when a request tree violates shape
// expectations, such as a fixed-length array constructed with the
// wrong number of elements.
var ErrMalformedNode = fmt.Errorf("malformed node")

// NodeType identifies the payload carried by a Node. A void node is a
// container; every other type is a leaf.
type NodeType int

const (
	NodeVoid NodeType = iota
	NodeS8
	NodeU8
	NodeS16
	NodeU16
	NodeS32
	NodeU32
	NodeS64
	NodeU64
	NodeFloat
	NodeBool
	NodeString
	NodeBytes
)

var nodeTypeNames = map[NodeType]string{
	NodeVoid:   "void",
	NodeS8:     "s8",
	NodeU8:     "u8",
	NodeS16:    "s16",
	NodeU16:    "u16",
	NodeS32:    "s32",
	NodeU32:    "u32",
	NodeS64:    "s64",
	NodeU64:    "u64",
	NodeFloat:  "float",
	NodeBool:   "bool",
	NodeString: "str",
	NodeBytes:  "bin",
}

var nodeTypesByName = func() map[string]NodeType {
	m := make(map[string]NodeType, len(nodeTypeNames))
	for t, name := range nodeTypeNames {
		m[name] = t
	}
	return m
}()

func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

func (t NodeType) integer() bool {
	return t >= NodeS8 && t <= NodeU64
}

// Node is one element of the decoded request/reply tree. Children keep
// insertion order; attribute emission keeps insertion order as well.
type Node struct {
	Name     string
	Type     NodeType
	Elem     NodeType // element type when IsArray
	IsArray  bool
	ArrayLen int

	intval   int64
	floatval float64
	boolval  bool
	strval   string
	binval   []byte
	arrval   []int64

	attrs    map[string]string
	attrSeq  []string
	Children []*Node
}

// Void constructs a container node.
func Void(name string) *Node {
	return &Node{Name: name, Type: NodeVoid}
}

func intNode(name string, t NodeType, v int64) *Node {
	return &Node{Name: name, Type: t, intval: v}
}

func S8(name string, v int8) *Node    { return intNode(name, NodeS8, int64(v)) }
func U8(name string, v uint8) *Node   { return intNode(name, NodeU8, int64(v)) }
func S16(name string, v int16) *Node  { return intNode(name, NodeS16, int64(v)) }
func U16(name string, v uint16) *Node { return intNode(name, NodeU16, int64(v)) }
func S32(name string, v int32) *Node  { return intNode(name, NodeS32, int64(v)) }
func U32(name string, v uint32) *Node { return intNode(name, NodeU32, int64(v)) }
func S64(name string, v int64) *Node  { return intNode(name, NodeS64, v) }
func U64(name string, v uint64) *Node { return intNode(name, NodeU64, int64(v)) }

func Float(name string, v float64) *Node {
	return &Node{Name: name, Type: NodeFloat, floatval: v}
}

func Bool(name string, v bool) *Node {
	return &Node{Name: name, Type: NodeBool, boolval: v}
}

func String(name string, v string) *Node {
	return &Node{Name: name, Type: NodeString, strval: v}
}

func Bytes(name string, v []byte) *Node {
	return &Node{Name: name, Type: NodeBytes, binval: v}
}

// Array constructs a fixed-length homogeneous integer array leaf. The
// declared length must match the supplied values.
func Array(name string, elem NodeType, length int, values []int64) (*Node, error) {
	if !elem.integer() {
		return nil, ErrMalformedNode
	}
	if len(values) != length {
		return nil, ErrMalformedNode
	}
	vals := make([]int64, length)
	copy(vals, values)
	return &Node{
		Name:     name,
		Type:     elem,
		Elem:     elem,
		IsArray:  true,
		ArrayLen: length,
		arrval:   vals,
	}, nil
}

func mustArray(name string, elem NodeType, values []int64) *Node {
	n, err := Array(name, elem, len(values), values)
	if err != nil {
		panic(err)
	}
	return n
}

// Typed array shorthands. The declared length is taken from the slice.
func S16Array(name string, values []int64) *Node { return mustArray(name, NodeS16, values) }
func U16Array(name string, values []int64) *Node { return mustArray(name, NodeU16, values) }
func S32Array(name string, values []int64) *Node { return mustArray(name, NodeS32, values) }
func U32Array(name string, values []int64) *Node { return mustArray(name, NodeU32, values) }
func U8Array(name string, values []int64) *Node  { return mustArray(name, NodeU8, values) }

// AddChild appends a child, preserving insertion order.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// SetAttribute sets a string attribute. First-set order is preserved on
// emission.
func (n *Node) SetAttribute(key, value string) {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	if _, ok := n.attrs[key]; !ok {
		n.attrSeq = append(n.attrSeq, key)
	}
	n.attrs[key] = value
}

// Attribute returns an attribute value or "" when absent.
func (n *Node) Attribute(key string) string {
	return n.attrs[key]
}

// voidSentinel stands in for missing paths so that value readers return
// zero values instead of panicking on nil.
func voidSentinel() *Node {
	return &Node{Type: NodeVoid}
}

// Child resolves a slash-separated descendant path. A missing path
// yields a void sentinel whose readers return zero values.
func (n *Node) Child(path string) *Node {
	cur := n
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		var next *Node
		for _, c := range cur.Children {
			if c.Name == part {
				next = c
				break
			}
		}
		if next == nil {
			return voidSentinel()
		}
		cur = next
	}
	return cur
}

// Exists reports whether this node carries any payload, attribute or
// child, distinguishing a real void container from the missing-path
// sentinel.
func (n *Node) Exists() bool {
	return n.Name != "" || len(n.Children) > 0 || len(n.attrs) > 0
}

func (n *Node) Int() int64 {
	switch n.Type {
	case NodeBool:
		if n.boolval {
			return 1
		}
		return 0
	case NodeFloat:
		return int64(n.floatval)
	default:
		return n.intval
	}
}

func (n *Node) FloatValue() float64 {
	if n.Type == NodeFloat {
		return n.floatval
	}
	return float64(n.intval)
}

func (n *Node) BoolValue() bool {
	if n.Type == NodeBool {
		return n.boolval
	}
	return n.intval != 0
}

func (n *Node) StringValue() string { return n.strval }
func (n *Node) BytesValue() []byte  { return n.binval }

// IntArray returns a copy of an array payload, or nil for non-arrays.
func (n *Node) IntArray() []int64 {
	if !n.IsArray {
		return nil
	}
	out := make([]int64, len(n.arrval))
	copy(out, n.arrval)
	return out
}

// Shorthand readers over Child.
func (n *Node) ChildInt(path string) int64        { return n.Child(path).Int() }
func (n *Node) ChildStr(path string) string       { return n.Child(path).StringValue() }
func (n *Node) ChildBool(path string) bool        { return n.Child(path).BoolValue() }
func (n *Node) ChildBytes(path string) []byte     { return n.Child(path).BytesValue() }
func (n *Node) ChildIntArray(path string) []int64 { return n.Child(path).IntArray() }

// wireNode is the JSON interchange form of a Node.
type wireNode struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Len      *int              `json:"len,omitempty"`
	Value    json.RawMessage   `json:"value,omitempty"`
	Attrs    json.RawMessage   `json:"attrs,omitempty"`
	Children []json.RawMessage `json:"children,omitempty"`
}

func (n *Node) typeName() string {
	name := nodeTypeNames[n.Type]
	if n.IsArray {
		return name + "[]"
	}
	return name
}

func (n *Node) marshalValue() (json.RawMessage, error) {
	switch {
	case n.IsArray:
		return json.Marshal(n.arrval)
	case n.Type == NodeVoid:
		return nil, nil
	case n.Type == NodeFloat:
		return json.Marshal(n.floatval)
	case n.Type == NodeBool:
		return json.Marshal(n.boolval)
	case n.Type == NodeString:
		return json.Marshal(n.strval)
	case n.Type == NodeBytes:
		return json.Marshal(n.binval)
	default:
		return json.Marshal(n.intval)
	}
}

// MarshalJSON emits attributes and children in insertion order.
func (n *Node) MarshalJSON() ([]byte, error) {
	w := wireNode{
		Name: n.Name,
		Type: n.typeName(),
	}

	if n.IsArray {
		l := n.ArrayLen
		w.Len = &l
	}

	value, err := n.marshalValue()
	if err != nil {
		return nil, err
	}
	w.Value = value

	if len(n.attrSeq) > 0 {
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, key := range n.attrSeq {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			vb, err := json.Marshal(n.attrs[key])
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
		buf.WriteByte('}')
		w.Attrs = buf.Bytes()
	}

	for _, c := range n.Children {
		cb, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		w.Children = append(w.Children, cb)
	}

	return json.Marshal(w)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*n = Node{Name: w.Name}

	typeName := w.Type
	if strings.HasSuffix(typeName, "[]") {
		n.IsArray = true
		typeName = strings.TrimSuffix(typeName, "[]")
	}
	t, ok := nodeTypesByName[typeName]
	if !ok {
		return ErrMalformedNode
	}
	n.Type = t

	if n.IsArray {
		if !t.integer() {
			return ErrMalformedNode
		}
		n.Elem = t
		if err := json.Unmarshal(w.Value, &n.arrval); err != nil {
			return ErrMalformedNode
		}
		n.ArrayLen = len(n.arrval)
		if w.Len != nil && *w.Len != n.ArrayLen {
			return ErrMalformedNode
		}
	} else if len(w.Value) > 0 {
		switch t {
		case NodeVoid:
			// containers carry no value
		case NodeFloat:
			if err := json.Unmarshal(w.Value, &n.floatval); err != nil {
				return ErrMalformedNode
			}
		case NodeBool:
			if err := json.Unmarshal(w.Value, &n.boolval); err != nil {
				return ErrMalformedNode
			}
		case NodeString:
			if err := json.Unmarshal(w.Value, &n.strval); err != nil {
				return ErrMalformedNode
			}
		case NodeBytes:
			if err := json.Unmarshal(w.Value, &n.binval); err != nil {
				return ErrMalformedNode
			}
		default:
			if err := json.Unmarshal(w.Value, &n.intval); err != nil {
				return ErrMalformedNode
			}
		}
	}

	if len(w.Attrs) > 0 {
		attrs := map[string]string{}
		if err := json.Unmarshal(w.Attrs, &attrs); err != nil {
			return ErrMalformedNode
		}
		keys, err := jsonObjectKeys(w.Attrs)
		if err != nil {
			return ErrMalformedNode
		}
		for _, key := range keys {
			n.SetAttribute(key, attrs[key])
		}
	}

	for _, cb := range w.Children {
		child := &Node{}
		if err := json.Unmarshal(cb, child); err != nil {
			return err
		}
		n.Children = append(n.Children, child)
	}

	return nil
}

// jsonObjectKeys decodes the key order of a JSON object.
func jsonObjectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, ErrMalformedNode
	}
	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, ErrMalformedNode
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// AttributeInt parses an attribute as an integer, falling back to def.
func (n *Node) AttributeInt(key string, def int64) int64 {
	v, err := strconv.ParseInt(n.Attribute(key), 10, 64)
	if err != nil {
		return def
	}
	return v
}
