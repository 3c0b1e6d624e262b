package shader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/spectra/engine/core"
)

// imageFormats are the storage image format layout identifiers.
var imageFormats = map[string]bool{
	"rgba32f": true, "rgba16f": true, "rg32f": true, "rg16f": true,
	"r11f_g11f_b10f": true, "r32f": true, "r16f": true, "rgba16": true,
	"rgb10_a2": true, "rgba8": true, "rg16": true, "rg8": true, "r16": true,
	"r8": true, "rgba16_snorm": true, "rgba8_snorm": true, "rg16_snorm": true,
	"rg8_snorm": true, "r16_snorm": true, "r8_snorm": true, "rgba32i": true,
	"rgba16i": true, "rgba8i": true, "rg32i": true, "rg16i": true, "rg8i": true,
	"r32i": true, "r16i": true, "r8i": true, "rgba32ui": true, "rgba16ui": true,
	"rgb10_a2ui": true, "rgba8ui": true, "rg32ui": true, "rg16ui": true,
	"rg8ui": true, "r32ui": true, "r16ui": true, "r8ui": true,
}

// WorkgroupShape is the compute local size.
type WorkgroupShape struct {
	X, Y, Z uint32
}

// DefaultWorkgroup is used when a shader declares no local size.
var DefaultWorkgroup = WorkgroupShape{X: 1, Y: 1, Z: 1}

// Location is the optional binding and set of a declaration.
type Location struct {
	Binding    uint32
	HasBinding bool
	Set        uint32
	HasSet     bool
}

// Declaration is implemented by image and block declarations.
type Declaration interface {
	DeclName() string
	DeclLocation() Location
	// ResolvedSet returns the set index, falling back to 0 with a warning.
	ResolvedSet() uint32
}

// ImageDeclaration is a `uniform` variable without a block body: images,
// textures, samplers, and anything else a layout can later reject.
type ImageDeclaration struct {
	Shader string
	Name   string
	Type   string
	Location
	Format string
	Memory []string
	Line   int
}

func (d *ImageDeclaration) DeclName() string       { return d.Name }
func (d *ImageDeclaration) DeclLocation() Location { return d.Location }

func (d *ImageDeclaration) ResolvedSet() uint32 {
	return resolveSet(d.Shader, d.Name, d.Location)
}

// StorageClass is the kind of memory an interface block lives in.
type StorageClass uint8

const (
	StorageUniform StorageClass = iota
	StorageBuffer
	StoragePushConstant
)

func (s StorageClass) String() string {
	switch s {
	case StorageUniform:
		return "uniform"
	case StorageBuffer:
		return "buffer"
	case StoragePushConstant:
		return "push_constant"
	}
	return fmt.Sprintf("StorageClass(%d)", s)
}

// BlockField is one member of an interface block.
type BlockField struct {
	Name      string
	Type      string
	Dims      []ArrayDim
	Offset    uint32
	HasOffset bool
}

// ByteSize returns the field size; false when the type or a dimension has
// no static size.
func (f *BlockField) ByteSize() (uint32, bool) {
	elem, ok := TypeSize(f.Type)
	if !ok {
		return 0, false
	}
	return ArraySize(elem, f.Dims)
}

// BlockDeclaration is a uniform, storage or push constant block.
type BlockDeclaration struct {
	Shader string
	Name   string
	// Instance is the name the host addresses the block by. Blocks without
	// one are reflected but never bound to host data.
	Instance string
	Storage  StorageClass
	Location
	Qualifiers []string
	Memory     []string
	Fields     []BlockField
	Line       int
}

func (b *BlockDeclaration) DeclName() string {
	if b.Instance != "" {
		return b.Instance
	}
	return b.Name
}

func (b *BlockDeclaration) DeclLocation() Location { return b.Location }

func (b *BlockDeclaration) ResolvedSet() uint32 {
	return resolveSet(b.Shader, b.DeclName(), b.Location)
}

// FieldLayout is the resolved placement of a block member.
type FieldLayout struct {
	Field  *BlockField
	Offset uint32
	Size   uint32
	Known  bool
}

// Layout places every field: an explicit offset wins, otherwise the field
// follows the previous one. Placement is unknown after a field of unknown
// size unless an explicit offset resets it.
func (b *BlockDeclaration) Layout() []FieldLayout {
	out := make([]FieldLayout, len(b.Fields))
	var running uint32
	runningKnown := true
	for i := range b.Fields {
		f := &b.Fields[i]
		fl := FieldLayout{Field: f}
		offKnown := runningKnown
		off := running
		if f.HasOffset {
			off, offKnown = f.Offset, true
		}
		size, sizeKnown := f.ByteSize()
		fl.Offset, fl.Size, fl.Known = off, size, offKnown && sizeKnown
		out[i] = fl

		running, runningKnown = off+size, fl.Known
	}
	return out
}

// ByteSize returns the sum of the member sizes; false if any member has no
// static size. Explicit offsets do not contribute.
func (b *BlockDeclaration) ByteSize() (uint32, bool) {
	var total uint32
	for i := range b.Fields {
		size, ok := b.Fields[i].ByteSize()
		if !ok {
			return 0, false
		}
		total += size
	}
	return total, true
}

// Extent returns the end of the last placed member, honoring explicit
// offsets. Push constant data is encoded into a buffer of this length.
func (b *BlockDeclaration) Extent() (uint32, bool) {
	var end uint32
	for _, fl := range b.Layout() {
		if !fl.Known {
			return 0, false
		}
		if fl.Offset+fl.Size > end {
			end = fl.Offset + fl.Size
		}
	}
	return end, true
}

// FieldOffset returns the offset and size of the named member.
func (b *BlockDeclaration) FieldOffset(name string) (uint32, uint32, error) {
	for _, fl := range b.Layout() {
		if fl.Field.Name != name {
			continue
		}
		if !fl.Known {
			return 0, 0, fmt.Errorf("%s: field %s.%s: %w", b.Shader, b.DeclName(), name, ErrSizeUnknown)
		}
		return fl.Offset, fl.Size, nil
	}
	return 0, 0, fmt.Errorf("%s: block %s has no field %q", b.Shader, b.DeclName(), name)
}

// Reflection is everything recovered from one compute shader.
type Reflection struct {
	Shader    string
	Workgroup WorkgroupShape
	// HasWorkgroup is false when Workgroup holds the default.
	HasWorkgroup bool
	Images       []*ImageDeclaration
	Blocks       []*BlockDeclaration
}

// Declarations returns images and blocks merged in source order.
func (r *Reflection) Declarations() []Declaration {
	out := make([]Declaration, 0, len(r.Images)+len(r.Blocks))
	i, j := 0, 0
	for i < len(r.Images) || j < len(r.Blocks) {
		if j == len(r.Blocks) || (i < len(r.Images) && r.Images[i].Line <= r.Blocks[j].Line) {
			out = append(out, r.Images[i])
			i++
		} else {
			out = append(out, r.Blocks[j])
			j++
		}
	}
	return out
}

// Image looks up an image declaration by variable name.
func (r *Reflection) Image(name string) (*ImageDeclaration, error) {
	for _, d := range r.Images {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s: %w %q", r.Shader, ErrNoVariable, name)
}

// Block looks up a block by instance name.
func (r *Reflection) Block(instance string) (*BlockDeclaration, error) {
	for _, b := range r.Blocks {
		if b.Instance != "" && b.Instance == instance {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%s: %w %q", r.Shader, ErrNoBlock, instance)
}

// PushConstants returns the first push constant block, or nil.
func (r *Reflection) PushConstants() *BlockDeclaration {
	for _, b := range r.Blocks {
		if b.Storage == StoragePushConstant {
			return b
		}
	}
	return nil
}

// ReflectFile reads and reflects a shader source file.
func ReflectFile(path string) (*Reflection, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader source: %w", err)
	}
	return Reflect(filepath.Base(path), string(src))
}

// Reflect parses source and recovers its workgroup shape and resource
// declarations. Any global it does not understand is an error.
func Reflect(shader, source string) (*Reflection, error) {
	decls, err := Parse(shader, source)
	if err != nil {
		return nil, err
	}

	r := &reflector{
		shader: shader,
		out:    &Reflection{Shader: shader, Workgroup: DefaultWorkgroup},
	}
	for _, d := range decls {
		switch d := d.(type) {
		case *GlobalInDecl:
			err = r.global(d)
		case *VariableDecl:
			err = r.variable(d)
		case *BlockDecl:
			err = r.block(d)
		case *SkippedDecl:
		}
		if err != nil {
			return nil, err
		}
	}
	return r.out, nil
}

type reflector struct {
	shader string
	out    *Reflection
}

func (r *reflector) global(d *GlobalInDecl) error {
	q := &d.Qualifiers
	if len(d.Names) > 0 {
		return newError(ErrKindGlobalQualifier, r.shader, d.Names[0].Pos(),
			"unexpected identifier %q in qualifier declaration", d.Names[0].Text)
	}
	if len(q.Storage) != 1 || q.Storage[0].Text != "in" {
		return newError(ErrKindGlobalQualifier, r.shader, d.At,
			"global layout declarations must use storage 'in'")
	}
	if bad := firstOf(q.Memory, q.Precision, q.Other); bad != nil {
		return newError(ErrKindGlobalQualifier, r.shader, bad.Pos(),
			"unexpected qualifier %q in global layout declaration", bad.Text)
	}
	if len(q.Layout) == 0 {
		return newError(ErrKindGlobalQualifier, r.shader, d.At, "global 'in' declaration without layout")
	}
	if r.out.HasWorkgroup {
		return newError(ErrKindDuplicateWorkgroup, r.shader, d.At, "workgroup size declared more than once")
	}

	shape := DefaultWorkgroup
	for _, lq := range q.Layout {
		var dst *uint32
		switch lq.Name {
		case "local_size_x":
			dst = &shape.X
		case "local_size_y":
			dst = &shape.Y
		case "local_size_z":
			dst = &shape.Z
		default:
			return newError(ErrKindLayoutIdentifier, r.shader, lq.At,
				"unexpected layout identifier %q in global declaration", lq.Name)
		}
		v, err := r.uintValue(lq, 1)
		if err != nil {
			return err
		}
		*dst = v
	}
	r.out.Workgroup = shape
	r.out.HasWorkgroup = true
	return nil
}

func (r *reflector) variable(d *VariableDecl) error {
	q := &d.Qualifiers
	if q.HasStorage("const") {
		return nil
	}
	if len(q.Storage) == 0 {
		return newError(ErrKindMissingQualifier, r.shader, d.At,
			"global variable %s has no storage qualifier", d.Declarators[0].Name)
	}
	for _, s := range q.Storage {
		if s.Text != "uniform" {
			return newError(ErrKindStorageQualifier, r.shader, s.Pos(),
				"unsupported storage qualifier %q on %s", s.Text, d.Declarators[0].Name)
		}
	}
	if len(q.Other) > 0 {
		return newError(ErrKindUnsupportedQualifier, r.shader, q.Other[0].Pos(),
			"unsupported qualifier %q", q.Other[0].Text)
	}
	if len(d.Declarators) > 1 {
		return newError(ErrKindMultipleDeclarators, r.shader, d.Declarators[1].At,
			"expected a single identifier, found %d", len(d.Declarators))
	}
	decl := d.Declarators[0]
	if len(d.TypeArray) > 0 || len(decl.Array) > 0 {
		return newError(ErrKindArraySpecifier, r.shader, decl.At,
			"array specifiers are not supported on %s", decl.Name)
	}
	if decl.HasInit {
		return newError(ErrKindInitializer, r.shader, decl.At,
			"initializers are not supported on %s", decl.Name)
	}

	img := &ImageDeclaration{
		Shader: r.shader,
		Name:   decl.Name,
		Type:   d.Type,
		Memory: texts(q.Memory),
		Line:   d.At.Line,
	}
	for _, lq := range q.Layout {
		switch {
		case lq.Name == "binding" || lq.Name == "set":
			if err := r.location(&img.Location, lq); err != nil {
				return err
			}
		case imageFormats[lq.Name]:
			if lq.Value != nil {
				return newError(ErrKindLayoutValue, r.shader, lq.At, "format %q takes no value", lq.Name)
			}
			img.Format = lq.Name
		default:
			return newError(ErrKindLayoutIdentifier, r.shader, lq.At,
				"unexpected layout identifier %q on %s", lq.Name, decl.Name)
		}
	}
	r.out.Images = append(r.out.Images, img)
	return nil
}

func (r *reflector) block(d *BlockDecl) error {
	q := &d.Qualifiers
	if len(d.InstanceArray) > 0 {
		return newError(ErrKindArrayedBlock, r.shader, d.At, "block %s has an arrayed instance", d.Name)
	}
	if len(q.Other) > 0 {
		return newError(ErrKindUnsupportedQualifier, r.shader, q.Other[0].Pos(),
			"unsupported qualifier %q on block %s", q.Other[0].Text, d.Name)
	}
	if len(q.Storage) == 0 {
		return newError(ErrKindMissingQualifier, r.shader, d.At, "block %s has no storage qualifier", d.Name)
	}
	if len(q.Storage) > 1 {
		return newError(ErrKindStorageQualifier, r.shader, q.Storage[1].Pos(),
			"block %s has more than one storage qualifier", d.Name)
	}

	blk := &BlockDeclaration{
		Shader:   r.shader,
		Name:     d.Name,
		Instance: d.Instance,
		Memory:   texts(q.Memory),
		Line:     d.At.Line,
	}
	switch s := q.Storage[0]; s.Text {
	case "uniform":
		blk.Storage = StorageUniform
	case "buffer":
		blk.Storage = StorageBuffer
	default:
		return newError(ErrKindStorageQualifier, r.shader, s.Pos(),
			"unsupported storage qualifier %q on block %s", s.Text, d.Name)
	}

	for _, lq := range q.Layout {
		switch lq.Name {
		case "binding", "set":
			if err := r.location(&blk.Location, lq); err != nil {
				return err
			}
		case "push_constant", "std140", "std430":
			if lq.Value != nil {
				return newError(ErrKindLayoutValue, r.shader, lq.At, "%s takes no value", lq.Name)
			}
			blk.Qualifiers = append(blk.Qualifiers, lq.Name)
			if lq.Name == "push_constant" {
				if blk.Storage != StorageUniform {
					return newError(ErrKindStorageQualifier, r.shader, lq.At,
						"push_constant block %s must be uniform", d.Name)
				}
				blk.Storage = StoragePushConstant
			}
		default:
			return newError(ErrKindLayoutIdentifier, r.shader, lq.At,
				"unexpected layout identifier %q on block %s", lq.Name, d.Name)
		}
	}

	for _, fd := range d.Fields {
		fields, err := r.fields(d.Name, &fd)
		if err != nil {
			return err
		}
		blk.Fields = append(blk.Fields, fields...)
	}
	r.out.Blocks = append(r.out.Blocks, blk)
	return nil
}

func (r *reflector) fields(block string, fd *FieldDecl) ([]BlockField, error) {
	q := &fd.Qualifiers
	if bad := firstOf(q.Storage, q.Memory, q.Other); bad != nil {
		return nil, newError(ErrKindFieldQualifier, r.shader, bad.Pos(),
			"unexpected qualifier %q on member of %s", bad.Text, block)
	}

	var offset uint32
	var hasOffset bool
	for _, lq := range q.Layout {
		if lq.Name != "offset" {
			return nil, newError(ErrKindLayoutIdentifier, r.shader, lq.At,
				"unexpected layout identifier %q on member of %s", lq.Name, block)
		}
		v, err := r.uintValue(lq, 0)
		if err != nil {
			return nil, err
		}
		offset, hasOffset = v, true
	}

	out := make([]BlockField, 0, len(fd.Declarators))
	for i, decl := range fd.Declarators {
		dims := make([]ArrayDim, 0, len(fd.TypeArray)+len(decl.Array))
		dims = append(dims, fd.TypeArray...)
		dims = append(dims, decl.Array...)
		for _, dim := range dims {
			if dim.Sized && dim.Size <= 0 {
				return nil, newError(ErrKindArraySpecifier, r.shader, decl.At,
					"array size of %s.%s must be positive", block, decl.Name)
			}
		}
		f := BlockField{Name: decl.Name, Type: fd.Type, Dims: dims}
		// an explicit offset only applies to the first member of the line
		if i == 0 && hasOffset {
			f.Offset, f.HasOffset = offset, true
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *reflector) location(loc *Location, lq LayoutQualifier) error {
	v, err := r.uintValue(lq, 0)
	if err != nil {
		return err
	}
	if lq.Name == "binding" {
		loc.Binding, loc.HasBinding = v, true
	} else {
		loc.Set, loc.HasSet = v, true
	}
	return nil
}

func (r *reflector) uintValue(lq LayoutQualifier, min int64) (uint32, error) {
	if lq.Value == nil {
		return 0, newError(ErrKindLayoutValue, r.shader, lq.At, "%s requires a value", lq.Name)
	}
	if !lq.Value.IsInt {
		return 0, newError(ErrKindLayoutValue, r.shader, lq.At,
			"%s must be an integer constant, found %q", lq.Name, lq.Value.Text)
	}
	if lq.Value.Int < min || lq.Value.Int > int64(^uint32(0)) {
		return 0, newError(ErrKindLayoutValue, r.shader, lq.At,
			"%s value %d out of range", lq.Name, lq.Value.Int)
	}
	return uint32(lq.Value.Int), nil
}

func resolveSet(shader, name string, loc Location) uint32 {
	if !loc.HasSet {
		core.LogWarn("%s: %s has no set qualifier, assuming set=0", shader, name)
		return 0
	}
	return loc.Set
}

func firstOf(lists ...[]Token) *Token {
	for _, l := range lists {
		if len(l) > 0 {
			return &l[0]
		}
	}
	return nil
}

func texts(toks []Token) []string {
	if len(toks) == 0 {
		return nil
	}
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}
