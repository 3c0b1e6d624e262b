package renderer

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/spaghettifunk/spectra/engine/layout"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
	"github.com/spaghettifunk/spectra/engine/shader"
)

type pushKind uint8

const (
	pushBool pushKind = iota + 1
	pushFloat
)

// PushValue is a tagged push constant value: a bool or a 32 bit float.
type PushValue struct {
	kind pushKind
	b    bool
	f    float32
}

func Bool(v bool) PushValue {
	return PushValue{kind: pushBool, b: v}
}

func Float(v float32) PushValue {
	return PushValue{kind: pushFloat, f: v}
}

func (v PushValue) String() string {
	switch v.kind {
	case pushBool:
		return fmt.Sprintf("bool(%t)", v.b)
	case pushFloat:
		return fmt.Sprintf("float(%g)", v.f)
	}
	return "invalid"
}

// PushValues maps push constant field names to values.
type PushValues map[string]PushValue

type pushField struct {
	name   string
	kind   pushKind
	offset uint32
}

// PushConstants encodes PushValues into the byte layout of a shader's push
// constant block.
type PushConstants struct {
	shader string
	block  string
	fields []pushField
	size   uint32
}

// NewPushConstants builds the encoder for a push constant block. Only bool
// and float members can be fed from PushValues.
func NewPushConstants(b *shader.BlockDeclaration) (*PushConstants, error) {
	extent, ok := b.Extent()
	if !ok {
		return nil, &layout.Error{Kind: layout.SizeUnknown, Shader: b.Shader, Name: b.DeclName()}
	}
	pc := &PushConstants{
		shader: b.Shader,
		block:  b.DeclName(),
		size:   uint32(metadata.GetAligned(uint64(extent), 4)),
	}
	for _, fl := range b.Layout() {
		f := fl.Field
		var kind pushKind
		switch {
		case f.Type == "bool" && len(f.Dims) == 0:
			kind = pushBool
		case f.Type == "float" && len(f.Dims) == 0:
			kind = pushFloat
		default:
			return nil, &layout.Error{
				Kind:   layout.Unsupported,
				Shader: b.Shader,
				Name:   pc.block,
				Field:  f.Name,
				Detail: fmt.Sprintf("push constant type %s cannot be set", f.Type),
			}
		}
		pc.fields = append(pc.fields, pushField{name: f.Name, kind: kind, offset: fl.Offset})
	}
	return pc, nil
}

// Range is the push constant range of the pipeline layout.
func (pc *PushConstants) Range() *metadata.PushConstantRange {
	return &metadata.PushConstantRange{Offset: 0, Size: pc.size}
}

// Fields returns the member names in declaration order.
func (pc *PushConstants) Fields() []string {
	out := make([]string, len(pc.fields))
	for i, f := range pc.fields {
		out[i] = f.name
	}
	return out
}

func (pc *PushConstants) field(name string) (pushField, bool) {
	for _, f := range pc.fields {
		if f.name == name {
			return f, true
		}
	}
	return pushField{}, false
}

// Check rejects a value whose name or type does not match a member.
func (pc *PushConstants) Check(name string, v PushValue) error {
	f, ok := pc.field(name)
	if !ok {
		return fmt.Errorf("%s: %s.%s: %w", pc.shader, pc.block, name, ErrUnknownField)
	}
	if f.kind != v.kind {
		return fmt.Errorf("%s: %s.%s is %s: %w", pc.shader, pc.block, name, f.kindName(), ErrTypeMismatch)
	}
	return nil
}

// Encode lays values out in block order. Unknown names are rejected and
// every member must have a value.
func (pc *PushConstants) Encode(values PushValues) ([]byte, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := pc.Check(name, values[name]); err != nil {
			return nil, err
		}
	}

	out := make([]byte, pc.size)
	for _, f := range pc.fields {
		v, ok := values[f.name]
		if !ok {
			return nil, fmt.Errorf("%s: %s.%s: %w", pc.shader, pc.block, f.name, ErrFieldNotFound)
		}
		var word uint32
		switch f.kind {
		case pushBool:
			if v.b {
				word = 1
			}
		case pushFloat:
			word = math.Float32bits(v.f)
		}
		binary.LittleEndian.PutUint32(out[f.offset:], word)
	}
	return out, nil
}

func (f pushField) kindName() string {
	if f.kind == pushBool {
		return "bool"
	}
	return "float"
}
