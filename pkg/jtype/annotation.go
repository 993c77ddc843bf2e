package jtype

// Annotation is a class-level annotation with its literal element values.
// Type is the annotation type in field descriptor form, e.g.
// "Ljakarta/ws/rs/Path;".
type Annotation struct {
	Type     string
	Elements []Element
}

// Element is one name/value pair of an annotation.
type Element struct {
	Name  string
	Value ElementValue
}

// Element value tags, as used in the RuntimeVisibleAnnotations attribute.
const (
	TagByte       = 'B'
	TagChar       = 'C'
	TagDouble     = 'D'
	TagFloat      = 'F'
	TagInt        = 'I'
	TagLong       = 'J'
	TagShort      = 'S'
	TagBoolean    = 'Z'
	TagString     = 's'
	TagEnum       = 'e'
	TagClass      = 'c'
	TagAnnotation = '@'
	TagArray      = '['
)

// ElementValue is a tagged annotation element value. Exactly the fields
// relevant to Tag are populated.
type ElementValue struct {
	Tag      byte
	Int      int64          // B, C, I, J, S, Z
	Float    float64        // F, D
	String   string         // s: literal; c: class descriptor; e: constant name
	EnumType string         // e: enum type descriptor
	Array    []ElementValue // [
	Nested   *Annotation    // @
}

// StringElement builds an ElementValue holding a string literal.
func StringElement(s string) ElementValue {
	return ElementValue{Tag: TagString, String: s}
}

// IntElement builds an ElementValue holding an int literal.
func IntElement(v int64) ElementValue {
	return ElementValue{Tag: TagInt, Int: v}
}

// BoolElement builds an ElementValue holding a boolean literal.
func BoolElement(v bool) ElementValue {
	ev := ElementValue{Tag: TagBoolean}
	if v {
		ev.Int = 1
	}
	return ev
}
