// Package coerce turns free-form AI text into values that match a declared schema.
// Nothing in this package returns an error or panics: a response that cannot be
// recovered is reported with ok=false so the caller can switch to a fallback.
package coerce

// Kind is the declared type of a schema field.
type Kind int

const (
	String Kind = iota
	Number
	Bool
	StringArray
	Enum
	Object
	ObjectArray
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case StringArray:
		return "string_array"
	case Enum:
		return "enum"
	case Object:
		return "object"
	case ObjectArray:
		return "object_array"
	default:
		return "unknown"
	}
}

// FieldSpec declares one field of the target shape.
//
// Default is used whenever the field is absent or invalid. For Object fields the
// default is built from the nested Fields. For ObjectArray fields, Fields describes
// each entry and entries missing a Required field are dropped.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Default  any
	Min      *float64
	Max      *float64
	Enum     []string
	Fields   []FieldSpec
	Required bool
}

// Schema is an ordered list of top-level fields.
type Schema []FieldSpec

// Float returns a pointer to v, for Min and Max.
func Float(v float64) *float64 { return &v }

// Names returns the top-level field names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}
