package schema

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/crudgen-api/internal/model"
)

// ─── Type references ────────────────────────────────────────

// Built-in scalar names.
const (
	ScalarString  = "String"
	ScalarInt     = "Int"
	ScalarFloat   = "Float"
	ScalarBoolean = "Boolean"
	ScalarID      = "ID"
)

// TypeRef points at a built-in scalar or at a registered descriptor by arena index.
type TypeRef struct {
	Name        string
	Index       int
	List        bool
	NonNull     bool
	ElemNonNull bool
}

func scalarRef(name string) TypeRef { return TypeRef{Name: name, Index: -1} }

func typeRef(d *TypeDescriptor) TypeRef { return TypeRef{Name: d.Name, Index: d.Index} }

func idRef(many bool) TypeRef {
	if many {
		return scalarRef(ScalarID).listOf()
	}
	return scalarRef(ScalarID)
}

// IsScalar reports whether the reference names a built-in scalar.
func (t TypeRef) IsScalar() bool { return t.Index < 0 }

func (t TypeRef) required() TypeRef {
	t.NonNull = true
	return t
}

func (t TypeRef) listOf() TypeRef {
	t.List = true
	t.ElemNonNull = true
	return t
}

// String renders the reference in SDL notation, e.g. "[ItemType!]!".
func (t TypeRef) String() string {
	s := t.Name
	if t.List {
		if t.ElemNonNull {
			s += "!"
		}
		s = "[" + s + "]"
	}
	if t.NonNull {
		s += "!"
	}
	return s
}

// ─── Descriptors ────────────────────────────────────────────

// TypeKind classifies a descriptor.
type TypeKind int

const (
	KindOutput TypeKind = iota
	KindInput
	KindUpdateInput
	KindNestedInput
	KindEnum
)

func (k TypeKind) String() string {
	switch k {
	case KindOutput:
		return "output"
	case KindInput:
		return "input"
	case KindUpdateInput:
		return "update-input"
	case KindNestedInput:
		return "nested-input"
	case KindEnum:
		return "enum"
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// IsInput reports whether the kind is one of the input kinds.
func (k TypeKind) IsInput() bool {
	return k == KindInput || k == KindUpdateInput || k == KindNestedInput
}

// FieldDef is one field of a descriptor.
type FieldDef struct {
	Name string
	Type TypeRef
	// Relation is set on relationship fields.
	Relation *model.Relationship
	// Nested marks an input field that accepts nested payloads.
	Nested bool
	// UpdateNested lets a nested payload with a lookup key also update the found record.
	UpdateNested bool
}

// EnumValue is one member of an enum descriptor.
type EnumValue struct {
	Key   string
	Value string
	Label string
}

// RelationMeta is recorded by the relationship metadata pass and consumed by
// materialization.
type RelationMeta struct {
	Relationship model.Relationship
	Target       int
}

// TypeDescriptor is the plain description of a generated type.
type TypeDescriptor struct {
	Index     int
	Name      string
	Kind      TypeKind
	Entity    string
	Depth     int
	Fields    []FieldDef
	Values    []EnumValue
	Relations []RelationMeta
	// Lookup lists the fields a nested payload may use to find an existing record.
	Lookup []string
}

// Field returns the named field.
func (d *TypeDescriptor) Field(name string) (FieldDef, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// ─── Registry ───────────────────────────────────────────────

// Registry is the arena of descriptors for one build. Descriptors refer to each other by
// index, never by pointer. It is written during the build and read-only after Freeze.
type Registry struct {
	types  []*TypeDescriptor
	byName map[string]int
	frozen bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register stores d and assigns its index. When the name is already taken the existing
// descriptor is returned together with false.
func (r *Registry) Register(d *TypeDescriptor) (*TypeDescriptor, bool) {
	if r.frozen {
		panic("schema: register " + d.Name + " on frozen registry")
	}
	if i, ok := r.byName[d.Name]; ok {
		return r.types[i], false
	}
	d.Index = len(r.types)
	r.types = append(r.types, d)
	r.byName[d.Name] = d.Index
	return d, true
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*TypeDescriptor, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.types[i], true
}

// At returns the descriptor at arena index i.
func (r *Registry) At(i int) *TypeDescriptor { return r.types[i] }

// Len returns the number of registered descriptors.
func (r *Registry) Len() int { return len(r.types) }

// All returns every descriptor in registration order.
func (r *Registry) All() []*TypeDescriptor {
	return append([]*TypeDescriptor(nil), r.types...)
}

// Output returns the output descriptor of an entity.
func (r *Registry) Output(entity string) (*TypeDescriptor, bool) {
	return r.Lookup(OutputName(entity))
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool { return r.frozen }

// ─── Naming ─────────────────────────────────────────────────

// OutputName returns the output type name of an entity.
func OutputName(entity string) string { return entity + "Type" }

// InputName returns the create input type name of an entity.
func InputName(entity string) string { return entity + "Input" }

// UpdateInputName returns the update input type name of an entity.
func UpdateInputName(entity string) string { return entity + "UpdateInput" }

// RootName returns the entity part of root operation names.
func RootName(entity string) string { return strings.ToLower(entity) }
