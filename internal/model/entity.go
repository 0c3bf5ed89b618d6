package model

// EntityKind selects the collection an Entity lives in.
type EntityKind string

const (
	KindType         EntityKind = "Type"
	KindFunction     EntityKind = "Function"
	KindVariable     EntityKind = "Variable"
	KindEnumConstant EntityKind = "EnumConstant"
)

// Entity is a de-duplicated symbol, keyed by the hash of its mangled name.
// References to other entities are stored as their hashes; zero means unset.
type Entity struct {
	BuildID       string
	Kind          EntityKind
	Hash          int64
	MangledName   string
	Name          string
	QualifiedName string
	AstNodeID     int64
	Modifiers     Modifier

	// Type and Function
	IsGeneric   bool
	GenericImpl int64
	TypeParams  []string

	// Type
	SuperType   int64
	Interfaces  []int64
	Members     []int64
	Fields      []int64
	IsEnum      bool
	IsInterface bool

	// Function
	ReturnType    int64
	Params        []int64
	Locals        []int64
	Signature     string
	IsConstructor bool

	// Variable
	DeclType int64
	ParamOf  int64
	LocalOf  int64
	FieldOf  int64

	// EnumConstant
	EnumType int64
	Ordinal  int
}

// Relation names used when persisting the set-valued fields.
const (
	RelInterface = "INTERFACE"
	RelMember    = "MEMBER"
	RelField     = "FIELD"
	RelParam     = "PARAM"
	RelLocal     = "LOCAL"
)

// Relations returns the set-valued fields keyed by relation name.
func (e *Entity) Relations() map[string][]int64 {
	switch e.Kind {
	case KindType:
		return map[string][]int64{
			RelInterface: e.Interfaces,
			RelMember:    e.Members,
			RelField:     e.Fields,
		}
	case KindFunction:
		return map[string][]int64{
			RelParam: e.Params,
			RelLocal: e.Locals,
		}
	}
	return nil
}

// SetRelation assigns a set-valued field by relation name.
func (e *Entity) SetRelation(rel string, targets []int64) {
	switch rel {
	case RelInterface:
		e.Interfaces = targets
	case RelMember:
		e.Members = targets
	case RelField:
		e.Fields = targets
	case RelParam:
		e.Params = targets
	case RelLocal:
		e.Locals = targets
	}
}

// AddUnique appends h to list unless already present. It reports whether
// the list changed.
func AddUnique(list *[]int64, h int64) bool {
	if h == 0 {
		return false
	}
	for _, x := range *list {
		if x == h {
			return false
		}
	}
	*list = append(*list, h)
	return true
}

// SetOwner makes v a parameter, local or field. Ownership is exclusive.
func (e *Entity) SetOwner(param, local, field int64) {
	e.ParamOf, e.LocalOf, e.FieldOf = param, local, field
}

// Fill copies every field that is set on src but still zero on e. It never
// clears or overwrites a value e already has, so a usage seen after the
// declaration does not regress the entity. It reports whether e changed.
func (e *Entity) Fill(src *Entity) bool {
	changed := false
	setStr := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst, changed = v, true
		}
	}
	setRef := func(dst *int64, v int64) {
		if *dst == 0 && v != 0 {
			*dst, changed = v, true
		}
	}
	setFlag := func(dst *bool, v bool) {
		if !*dst && v {
			*dst, changed = true, true
		}
	}

	setStr(&e.Name, src.Name)
	setStr(&e.QualifiedName, src.QualifiedName)
	setStr(&e.MangledName, src.MangledName)
	setStr(&e.Signature, src.Signature)
	setRef(&e.AstNodeID, src.AstNodeID)
	setRef(&e.GenericImpl, src.GenericImpl)
	setRef(&e.SuperType, src.SuperType)
	setRef(&e.ReturnType, src.ReturnType)
	setRef(&e.DeclType, src.DeclType)
	if e.Modifiers == 0 && src.Modifiers != 0 {
		e.Modifiers, changed = src.Modifiers, true
	}
	if len(e.TypeParams) == 0 && len(src.TypeParams) > 0 {
		e.TypeParams, changed = src.TypeParams, true
	}
	if e.ParamOf == 0 && e.LocalOf == 0 && e.FieldOf == 0 &&
		(src.ParamOf != 0 || src.LocalOf != 0 || src.FieldOf != 0) {
		e.SetOwner(src.ParamOf, src.LocalOf, src.FieldOf)
		changed = true
	}
	if e.EnumType == 0 && src.EnumType != 0 {
		e.EnumType, e.Ordinal, changed = src.EnumType, src.Ordinal, true
	}
	setFlag(&e.IsGeneric, src.IsGeneric)
	setFlag(&e.IsEnum, src.IsEnum)
	setFlag(&e.IsInterface, src.IsInterface)
	setFlag(&e.IsConstructor, src.IsConstructor)

	for _, pair := range []struct{ dst, src *[]int64 }{
		{&e.Interfaces, &src.Interfaces},
		{&e.Members, &src.Members},
		{&e.Fields, &src.Fields},
		{&e.Params, &src.Params},
		{&e.Locals, &src.Locals},
	} {
		for _, h := range *pair.src {
			if AddUnique(pair.dst, h) {
				changed = true
			}
		}
	}
	return changed
}
