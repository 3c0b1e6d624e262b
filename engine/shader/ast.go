package shader

// Decl is a top-level declaration of a shader translation unit.
type Decl interface {
	Pos() Position
	declNode()
}

// LayoutValue is the right hand side of `id = value` in a layout qualifier.
// Only integer literals are understood; anything else keeps its text so the
// reflector can report it.
type LayoutValue struct {
	Int   int64
	IsInt bool
	Text  string
}

// LayoutQualifier is one `id` or `id = value` entry of layout(...).
type LayoutQualifier struct {
	Name  string
	Value *LayoutValue
	At    Position
}

// Qualifiers collects every qualifier in front of a declaration.
type Qualifiers struct {
	Layout    []LayoutQualifier
	Storage   []Token
	Memory    []Token
	Precision []Token
	// Interpolation, invariance and friends.
	Other []Token
}

func (q *Qualifiers) Empty() bool {
	return len(q.Layout) == 0 && len(q.Storage) == 0 && len(q.Memory) == 0 &&
		len(q.Precision) == 0 && len(q.Other) == 0
}

// HasStorage reports whether the storage qualifier list contains word.
func (q *Qualifiers) HasStorage(word string) bool {
	for _, t := range q.Storage {
		if t.Text == word {
			return true
		}
	}
	return false
}

// ArrayDim is one `[...]` suffix. Size is valid only when Sized is true;
// `[]` and non-literal sizes leave it unset.
type ArrayDim struct {
	Size  int64
	Sized bool
	Text  string
}

// Declarator is one name in a declaration list.
type Declarator struct {
	Name    string
	Array   []ArrayDim
	HasInit bool
	At      Position
}

// GlobalInDecl is a qualifier-only declaration such as
// `layout(local_size_x = 8) in;`.
type GlobalInDecl struct {
	Qualifiers Qualifiers
	Names      []Token
	At         Position
}

// VariableDecl is a global variable declaration without a block body.
type VariableDecl struct {
	Qualifiers  Qualifiers
	Type        string
	TypeArray   []ArrayDim
	Declarators []Declarator
	At          Position
}

// FieldDecl is one member line of an interface block.
type FieldDecl struct {
	Qualifiers  Qualifiers
	Type        string
	TypeArray   []ArrayDim
	Declarators []Declarator
	At          Position
}

// BlockDecl is an interface block: `qualifiers Name { fields } instance;`.
type BlockDecl struct {
	Qualifiers    Qualifiers
	Name          string
	Fields        []FieldDecl
	Instance      string
	InstanceArray []ArrayDim
	At            Position
}

// SkippedDecl records source the reflector deliberately ignores.
type SkippedDecl struct {
	What string
	At   Position
}

func (d *GlobalInDecl) Pos() Position { return d.At }
func (d *VariableDecl) Pos() Position { return d.At }
func (d *BlockDecl) Pos() Position    { return d.At }
func (d *SkippedDecl) Pos() Position  { return d.At }

func (*GlobalInDecl) declNode() {}
func (*VariableDecl) declNode() {}
func (*BlockDecl) declNode()    {}
func (*SkippedDecl) declNode()  {}
