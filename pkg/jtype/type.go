// Package jtype models Java class hierarchies and generic type signatures
// as plain descriptors, so that signature resolution can run without a JVM.
package jtype

import (
	"errors"
	"fmt"
)

// ErrUnboundVariable is returned when a substitution encounters a type
// variable that has no binding in scope.
var ErrUnboundVariable = errors.New("unbound type variable")

// Type is one shape in the generic type algebra. It is exactly one of
// ClassType, PrimitiveType, ParameterizedType, TypeVariable, Wildcard or
// ArrayType.
type Type interface {
	isType()
}

// ClassType is a concrete, non-parameterized reference type, identified by
// its internal name (e.g. "java/util/List").
type ClassType struct {
	Name string
}

func (*ClassType) isType() {}

// PrimitiveType is a base type in descriptor notation ('I', 'J', 'Z', ...).
// It only appears inside method descriptors and array components.
type PrimitiveType struct {
	Desc byte
}

func (*PrimitiveType) isType() {}

// ParameterizedType is a generic type applied to arguments, each of which is
// itself a Type (possibly a Wildcard or a still-open TypeVariable).
type ParameterizedType struct {
	Raw  string
	Args []Type
}

func (*ParameterizedType) isType() {}

// TypeVariable references a type variable by name. The declaration carrying
// the bounds lives in the enclosing Class's TypeParams.
type TypeVariable struct {
	Name string
}

func (*TypeVariable) isType() {}

// Wildcard is a bounded or unbounded wildcard type argument. At most one of
// Upper and Lower is set; both nil means the unbounded wildcard "?".
type Wildcard struct {
	Upper Type
	Lower Type
}

func (*Wildcard) isType() {}

// ArrayType is an array of Elem.
type ArrayType struct {
	Elem Type
}

func (*ArrayType) isType() {}

// TypeParam is a declared type variable with its bound(s). The first bound
// occupies the class-bound slot in the encoded signature, any further bounds
// follow as interface bounds.
type TypeParam struct {
	Name   string
	Bounds []Type
}

// ObjectBound is the implicit bound of an unbounded type parameter.
var ObjectBound = &ClassType{Name: "java/lang/Object"}

// RawName returns the erased class name of t, if t has one.
func RawName(t Type) (string, bool) {
	switch v := t.(type) {
	case *ClassType:
		return v.Name, true
	case *ParameterizedType:
		return v.Raw, true
	}
	return "", false
}

// Substitute replaces every type variable in t using binding. Variables
// missing from the binding are an error: partial substitution would produce
// a signature that lies about the delegate's shape.
func Substitute(t Type, binding map[string]Type) (Type, error) {
	switch v := t.(type) {
	case *ClassType, *PrimitiveType:
		return t, nil
	case *TypeVariable:
		b, ok := binding[v.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnboundVariable, v.Name)
		}
		return b, nil
	case *ParameterizedType:
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			s, err := Substitute(a, binding)
			if err != nil {
				return nil, err
			}
			args[i] = s
		}
		return &ParameterizedType{Raw: v.Raw, Args: args}, nil
	case *Wildcard:
		out := &Wildcard{}
		if v.Upper != nil {
			s, err := Substitute(v.Upper, binding)
			if err != nil {
				return nil, err
			}
			out.Upper = s
		}
		if v.Lower != nil {
			s, err := Substitute(v.Lower, binding)
			if err != nil {
				return nil, err
			}
			out.Lower = s
		}
		return out, nil
	case *ArrayType:
		e, err := Substitute(v.Elem, binding)
		if err != nil {
			return nil, err
		}
		return &ArrayType{Elem: e}, nil
	}
	return nil, fmt.Errorf("substitute: unsupported type %T", t)
}

// OpenVariables collects the names of type variables remaining in t, in
// first-seen order.
func OpenVariables(t Type) []string {
	var names []string
	seen := make(map[string]bool)
	collectVariables(t, seen, &names)
	return names
}

func collectVariables(t Type, seen map[string]bool, names *[]string) {
	switch v := t.(type) {
	case *TypeVariable:
		if !seen[v.Name] {
			seen[v.Name] = true
			*names = append(*names, v.Name)
		}
	case *ParameterizedType:
		for _, a := range v.Args {
			collectVariables(a, seen, names)
		}
	case *Wildcard:
		if v.Upper != nil {
			collectVariables(v.Upper, seen, names)
		}
		if v.Lower != nil {
			collectVariables(v.Lower, seen, names)
		}
	case *ArrayType:
		collectVariables(v.Elem, seen, names)
	}
}
