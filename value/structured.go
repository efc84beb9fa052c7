package value

// Struct is a named-fields structured value.
type Struct struct {
	Name   string
	Fields map[string]Value
	order  []string
}

func NewStruct(name string, fields map[string]Value, order []string) *Struct {
	return &Struct{Name: name, Fields: fields, order: order}
}

func (s *Struct) Type() TypeCode { return TypeStruct }
func (s *Struct) String() string {
	out := s.Name + "{"
	for i, k := range s.order {
		if i > 0 {
			out += ", "
		}
		out += k + ": " + s.Fields[k].String()
	}
	return out + "}"
}
func (s *Struct) Truthy() bool { return true }
func (s *Struct) Equal(o Value) bool {
	os, ok := o.(*Struct)
	if !ok || os.Name != s.Name || len(os.Fields) != len(s.Fields) {
		return false
	}
	for k, v := range s.Fields {
		ov, ok := os.Fields[k]
		if !ok || !StructuralEqual(v, ov) {
			return false
		}
	}
	return true
}

// Tagged is a sum-type constructor application: Tag(Data...).
type Tagged struct {
	Tag  string
	Data []Value
}

func NewTagged(tag string, data []Value) *Tagged { return &Tagged{Tag: tag, Data: data} }

func (t *Tagged) Type() TypeCode { return TypeTagged }
func (t *Tagged) String() string {
	out := t.Tag + "("
	for i, d := range t.Data {
		if i > 0 {
			out += ", "
		}
		out += d.String()
	}
	return out + ")"
}
func (t *Tagged) Truthy() bool { return true }
func (t *Tagged) Equal(o Value) bool {
	ot, ok := o.(*Tagged)
	if !ok || ot.Tag != t.Tag || len(ot.Data) != len(t.Data) {
		return false
	}
	for i := range t.Data {
		if !StructuralEqual(t.Data[i], ot.Data[i]) {
			return false
		}
	}
	return true
}

// EnumDef is an enum type's definition: its name and ordered variant tags.
type EnumDef struct {
	Name     string
	Variants []string
}

func NewEnumDef(name string, variants []string) *EnumDef { return &EnumDef{Name: name, Variants: variants} }

func (e *EnumDef) Type() TypeCode { return TypeEnumDef }
func (e *EnumDef) String() string { return "enum " + e.Name }
func (e *EnumDef) Truthy() bool   { return true }
func (e *EnumDef) Equal(o Value) bool {
	oe, ok := o.(*EnumDef)
	return ok && oe.Name == e.Name
}

// EnumInstance is one variant of an EnumDef, with optional associated data.
type EnumInstance struct {
	Def     *EnumDef
	Variant string
	Data    []Value
}

func NewEnumInstance(def *EnumDef, variant string, data []Value) *EnumInstance {
	return &EnumInstance{Def: def, Variant: variant, Data: data}
}

func (e *EnumInstance) Type() TypeCode { return TypeEnumInstance }
func (e *EnumInstance) String() string { return e.Def.Name + "::" + e.Variant }
func (e *EnumInstance) Truthy() bool   { return true }
func (e *EnumInstance) Equal(o Value) bool {
	oe, ok := o.(*EnumInstance)
	if !ok || oe.Def != e.Def || oe.Variant != e.Variant || len(oe.Data) != len(e.Data) {
		return false
	}
	for i := range e.Data {
		if !StructuralEqual(e.Data[i], oe.Data[i]) {
			return false
		}
	}
	return true
}

// ResultKind discriminates Result's Ok/Err constructors.
type ResultKind int

const (
	ResultOk ResultKind = iota
	ResultErr
)

// Result is the special tagged Ok/Err variant used for fallible returns
// and the try-operator `?` (spec.md §6.1, §7).
type Result struct {
	Kind ResultKind
	Val  Value
}

func NewOk(v Value) *Result  { return &Result{Kind: ResultOk, Val: v} }
func NewErr(v Value) *Result { return &Result{Kind: ResultErr, Val: v} }

func (r *Result) Type() TypeCode { return TypeResult }
func (r *Result) String() string {
	if r.Kind == ResultOk {
		return "Ok(" + r.Val.String() + ")"
	}
	return "Err(" + r.Val.String() + ")"
}
func (r *Result) Truthy() bool { return r.Kind == ResultOk }
func (r *Result) Equal(o Value) bool {
	or, ok := o.(*Result)
	return ok && or.Kind == r.Kind && StructuralEqual(r.Val, or.Val)
}
func (r *Result) IsOk() bool  { return r.Kind == ResultOk }
func (r *Result) IsErr() bool { return r.Kind == ResultErr }

// OptionKind discriminates Option's Some/None constructors.
type OptionKind int

const (
	OptionSome OptionKind = iota
	OptionNone
)

// Option is the special tagged Some/None variant.
type Option struct {
	Kind OptionKind
	Val  Value // nil when Kind == OptionNone
}

func NewSome(v Value) *Option { return &Option{Kind: OptionSome, Val: v} }
func NewNone() *Option        { return &Option{Kind: OptionNone} }

func (o *Option) Type() TypeCode { return TypeOption }
func (o *Option) String() string {
	if o.Kind == OptionSome {
		return "Some(" + o.Val.String() + ")"
	}
	return "None"
}
func (o *Option) Truthy() bool { return o.Kind == OptionSome }
func (o *Option) Equal(other Value) bool {
	oo, ok := other.(*Option)
	if !ok || oo.Kind != o.Kind {
		return false
	}
	if o.Kind == OptionNone {
		return true
	}
	return StructuralEqual(o.Val, oo.Val)
}
func (o *Option) IsSome() bool { return o.Kind == OptionSome }
func (o *Option) IsNone() bool { return o.Kind == OptionNone }
