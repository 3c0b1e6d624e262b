package layout

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/spectra/engine/shader"
)

// Size is a byte size that may be statically unknown.
type Size struct {
	Bytes uint32
	Known bool
}

func (s Size) String() string {
	if !s.Known {
		return "unknown"
	}
	return fmt.Sprintf("%d bytes", s.Bytes)
}

// Binding is one declaration resolved to a set index and a kind.
type Binding struct {
	Name       string
	Kind       Kind
	Set        uint32
	Binding    uint32
	HasBinding bool
	// Size is only meaningful for blocks.
	Size  Size
	Image *shader.ImageDeclaration
	Block *shader.BlockDeclaration
}

// Set is the ordered list of bindings sharing a set index.
type Set struct {
	Index    uint32
	Bindings []*Binding
}

// Descriptors returns the bindings of the set that occupy descriptor slots.
func (s *Set) Descriptors() []*Binding {
	out := make([]*Binding, 0, len(s.Bindings))
	for _, b := range s.Bindings {
		if b.Kind != KindPushConstant {
			out = append(out, b)
		}
	}
	return out
}

// Layout is the binding table of one shader: every declaration appears in
// exactly one set, sets ascend by index and keep first-seen order.
type Layout struct {
	Shader     string
	Workgroup  shader.WorkgroupShape
	Reflection *shader.Reflection
	Sets       []*Set
	// PushConstants is nil when the shader declares no push constant block.
	PushConstants *Binding
}

// Synthesize groups the reflected declarations into sets and sizes blocks.
func Synthesize(refl *shader.Reflection) (*Layout, error) {
	l := &Layout{
		Shader:     refl.Shader,
		Workgroup:  refl.Workgroup,
		Reflection: refl,
	}

	sets := make(map[uint32]*Set)
	type slot struct{ set, binding uint32 }
	seen := make(map[slot]*Binding)

	for _, decl := range refl.Declarations() {
		loc := decl.DeclLocation()
		b := &Binding{
			Name:       decl.DeclName(),
			Set:        decl.ResolvedSet(),
			Binding:    loc.Binding,
			HasBinding: loc.HasBinding,
		}
		switch d := decl.(type) {
		case *shader.ImageDeclaration:
			b.Image = d
			b.Kind = ImageKind(d.Type)
		case *shader.BlockDeclaration:
			b.Block = d
			b.Kind = BlockKind(d.Storage)
			b.Size.Bytes, b.Size.Known = d.ByteSize()
		}

		if b.Kind == KindPushConstant {
			if l.PushConstants != nil {
				return nil, &Error{
					Kind:   MultiplePushConstants,
					Shader: l.Shader,
					Name:   b.Name,
					Set:    b.Set,
					Detail: fmt.Sprintf("%s already declared", l.PushConstants.Name),
				}
			}
			l.PushConstants = b
		} else if b.HasBinding {
			key := slot{b.Set, b.Binding}
			if prev, ok := seen[key]; ok {
				return nil, &Error{
					Kind:    DuplicateBinding,
					Shader:  l.Shader,
					Name:    b.Name,
					Set:     b.Set,
					Binding: b.Binding,
					Detail:  fmt.Sprintf("slot already used by %s", prev.Name),
				}
			}
			seen[key] = b
		}

		s, ok := sets[b.Set]
		if !ok {
			s = &Set{Index: b.Set}
			sets[b.Set] = s
			l.Sets = append(l.Sets, s)
		}
		s.Bindings = append(s.Bindings, b)
	}

	sort.Slice(l.Sets, func(i, j int) bool { return l.Sets[i].Index < l.Sets[j].Index })
	return l, nil
}

// Set returns the set with the given index, or nil.
func (l *Layout) Set(index uint32) *Set {
	for _, s := range l.Sets {
		if s.Index == index {
			return s
		}
	}
	return nil
}

// SetIndices returns every set index in ascending order.
func (l *Layout) SetIndices() []uint32 {
	out := make([]uint32, len(l.Sets))
	for i, s := range l.Sets {
		out[i] = s.Index
	}
	return out
}

// Lookup finds a binding by declaration name (block instance or variable).
func (l *Layout) Lookup(name string) (*Binding, bool) {
	for _, s := range l.Sets {
		for _, b := range s.Bindings {
			if b.Name == name {
				return b, true
			}
		}
	}
	return nil, false
}

// Bindings returns every binding in set order.
func (l *Layout) Bindings() []*Binding {
	var out []*Binding
	for _, s := range l.Sets {
		out = append(out, s.Bindings...)
	}
	return out
}

// RequireSize returns the byte size of a block, failing with a SizeUnknown
// Error instead of ever reporting zero for an unsized block.
func (l *Layout) RequireSize(name string) (uint32, error) {
	b, ok := l.Lookup(name)
	if !ok || b.Block == nil {
		return 0, fmt.Errorf("%s: %w %q", l.Shader, shader.ErrNoBlock, name)
	}
	if b.Size.Known {
		return b.Size.Bytes, nil
	}
	e := &Error{
		Kind:    SizeUnknown,
		Shader:  l.Shader,
		Name:    b.Name,
		Set:     b.Set,
		Binding: b.Binding,
	}
	for i := range b.Block.Fields {
		f := &b.Block.Fields[i]
		if _, ok := f.ByteSize(); !ok {
			e.Field = f.Name
			e.Detail = fmt.Sprintf("type %s has no static size", f.Type)
			break
		}
	}
	return 0, e
}
