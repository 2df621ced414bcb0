// Package document holds JSON documents as ordered trees so they can be
// rewritten leaf by leaf and written back with key order and number
// literals untouched.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// ErrInvalidJSON is returned when the input is not a single valid JSON value
var ErrInvalidJSON = errors.New("invalid JSON document")

// Kind is the JSON type of a node
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// Node is one value in the tree.
//
// For String nodes Value holds the decoded text. For Number and Bool nodes
// Value holds the literal.
type Node struct {
	Kind    Kind
	Value   string
	Items   []*Node
	Members []Member
}

// Member is one key/value pair of an object, in document order
type Member struct {
	Key   string
	Value *Node
}

// Parse builds a tree from JSON text
func Parse(data []byte) (*Node, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}

	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	return build(value, dataType)
}

func build(value []byte, dataType jsonparser.ValueType) (*Node, error) {
	switch dataType {
	case jsonparser.Null:
		return &Node{Kind: Null, Value: "null"}, nil

	case jsonparser.Boolean:
		return &Node{Kind: Bool, Value: string(value)}, nil

	case jsonparser.Number:
		return &Node{Kind: Number, Value: string(value)}, nil

	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			// jsonparser rejects lone surrogates such as \ud800
			if s, err = decodeString(value); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
		}
		return &Node{Kind: String, Value: s}, nil

	case jsonparser.Array:
		node := &Node{Kind: Array, Items: []*Node{}}
		var buildErr error
		_, err := jsonparser.ArrayEach(value, func(item []byte, itemType jsonparser.ValueType, _ int, err error) {
			if buildErr != nil {
				return
			}
			if err != nil {
				buildErr = err
				return
			}
			child, err := build(item, itemType)
			if err != nil {
				buildErr = err
				return
			}
			node.Items = append(node.Items, child)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		if buildErr != nil {
			return nil, buildErr
		}
		return node, nil

	case jsonparser.Object:
		node := &Node{Kind: Object, Members: []Member{}}
		err := jsonparser.ObjectEach(value, func(key []byte, member []byte, memberType jsonparser.ValueType, _ int) error {
			child, err := build(member, memberType)
			if err != nil {
				return err
			}
			node.Members = append(node.Members, Member{Key: string(key), Value: child})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return node, nil

	default:
		return nil, fmt.Errorf("%w: unexpected value type %s", ErrInvalidJSON, dataType)
	}
}

// decodeString unescapes the text between a string's quotes the way
// encoding/json does: invalid surrogates become U+FFFD.
func decodeString(value []byte) (string, error) {
	quoted := make([]byte, 0, len(value)+2)
	quoted = append(quoted, '"')
	quoted = append(quoted, value...)
	quoted = append(quoted, '"')

	var s string
	if err := json.Unmarshal(quoted, &s); err != nil {
		return "", err
	}
	return s, nil
}

// StringValues returns every string leaf that is a value (never a key),
// in document order
func (n *Node) StringValues() []*Node {
	var out []*Node
	n.collect(&out)
	return out
}

func (n *Node) collect(out *[]*Node) {
	switch n.Kind {
	case String:
		*out = append(*out, n)
	case Array:
		for _, item := range n.Items {
			item.collect(out)
		}
	case Object:
		for _, m := range n.Members {
			m.Value.collect(out)
		}
	}
}

// Get returns the member value for key, or nil if n is not an object or has no such key
func (n *Node) Get(key string) *Node {
	if n.Kind != Object {
		return nil
	}
	for _, m := range n.Members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// Marshal writes the tree as indented JSON
func (n *Node) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.write(&buf, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

const indent = "  "

func (n *Node) write(buf *bytes.Buffer, depth int) error {
	switch n.Kind {
	case Null, Bool, Number:
		buf.WriteString(n.Value)

	case String:
		return writeString(buf, n.Value)

	case Array:
		if len(n.Items) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, item := range n.Items {
			writeIndent(buf, depth+1)
			if err := item.write(buf, depth+1); err != nil {
				return err
			}
			if i < len(n.Items)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeIndent(buf, depth)
		buf.WriteByte(']')

	case Object:
		if len(n.Members) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		for i, m := range n.Members {
			writeIndent(buf, depth+1)
			if err := writeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := m.Value.write(buf, depth+1); err != nil {
				return err
			}
			if i < len(n.Members)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeIndent(buf, depth)
		buf.WriteByte('}')

	default:
		return fmt.Errorf("unknown node kind %d", n.Kind)
	}
	return nil
}

func writeIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString(indent)
	}
}

// writeString quotes s without HTML escaping so URLs and expressions stay readable
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode string: %w", err)
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
