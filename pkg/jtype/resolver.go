package jtype

import (
	"errors"
	"fmt"
)

// ErrContractNotImplemented is returned when the requested contract does not
// appear anywhere in the delegate's hierarchy.
var ErrContractNotImplemented = errors.New("contract not implemented")

// Resolve walks impl's extends/implements chain towards the contract
// interface and returns the contract's parameterization as implemented by
// impl, with every intermediate type variable substituted away.
//
// The result is one of:
//   - *ClassType: impl inherits the contract raw, or through a raw
//     supertype declaration that erased the generics,
//   - *ParameterizedType: arguments are concrete types, nested
//     parameterized types, preserved wildcards, or type variables that are
//     still open in impl's own declaration (the passthrough case).
//
// Resolution follows the declaration path actually exercised by impl: the
// superclass chain is searched before the interface list, interfaces in
// declared order, and the first occurrence of the contract wins.
func Resolve(ld Loader, impl *Class, contract string) (Type, error) {
	binding := identityBinding(impl.TypeParams)
	t, err := resolveIn(ld, impl, binding, contract)
	if err != nil {
		return nil, fmt.Errorf("resolving %s against %s: %w", contract, impl.Name, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s does not implement %s", ErrContractNotImplemented, impl.Name, contract)
	}
	return t, nil
}

// identityBinding maps each declared variable to itself, so that variables
// still open at the top of the hierarchy survive substitution verbatim.
func identityBinding(params []TypeParam) map[string]Type {
	binding := make(map[string]Type, len(params))
	for _, p := range params {
		binding[p.Name] = &TypeVariable{Name: p.Name}
	}
	return binding
}

// resolveIn searches c's declared supertypes for the contract. binding maps
// c's type variable names to already-resolved types; a nil binding means c
// was reached through a raw declaration and all generic information below it
// is erased.
func resolveIn(ld Loader, c *Class, binding map[string]Type, contract string) (Type, error) {
	supers := declaredSupers(c)

	for _, s := range supers {
		raw, ok := RawName(s)
		if !ok {
			return nil, fmt.Errorf("class %s declares unsupported supertype %T", c.Name, s)
		}
		if raw != contract {
			continue
		}
		if _, isParam := s.(*ParameterizedType); !isParam || binding == nil {
			return &ClassType{Name: raw}, nil
		}
		return Substitute(s, binding)
	}

	for _, s := range supers {
		raw, _ := RawName(s)
		sc, err := ld.LoadClass(raw)
		if err != nil {
			if errors.Is(err, ErrUnknownClass) {
				continue
			}
			return nil, err
		}
		childBinding, err := bindSuper(s, sc, binding)
		if err != nil {
			return nil, err
		}
		t, err := resolveIn(ld, sc, childBinding, contract)
		if err != nil || t != nil {
			return t, err
		}
	}
	return nil, nil
}

// declaredSupers returns the superclass (if declared) followed by the
// interfaces in declaration order.
func declaredSupers(c *Class) []Type {
	var supers []Type
	if c.Super != nil {
		supers = append(supers, c.Super)
	}
	return append(supers, c.Interfaces...)
}

// bindSuper computes the variable binding for super-class sc, declared by
// the subclass as decl under the subclass's own binding.
func bindSuper(decl Type, sc *Class, binding map[string]Type) (map[string]Type, error) {
	if binding == nil {
		return nil, nil
	}
	pt, ok := decl.(*ParameterizedType)
	if !ok {
		if len(sc.TypeParams) > 0 {
			// Raw use of a generic supertype erases everything below.
			return nil, nil
		}
		return map[string]Type{}, nil
	}
	if len(pt.Args) != len(sc.TypeParams) {
		return nil, fmt.Errorf("%s parameterized with %d arguments, declares %d parameters",
			sc.Name, len(pt.Args), len(sc.TypeParams))
	}
	child := make(map[string]Type, len(pt.Args))
	for i, a := range pt.Args {
		resolved, err := Substitute(a, binding)
		if err != nil {
			return nil, err
		}
		child[sc.TypeParams[i].Name] = resolved
	}
	return child, nil
}
