package proxy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/classkit/extproxy/pkg/jtype"
)

// ErrNoContracts is returned when a generation request names no contract
// interfaces.
var ErrNoContracts = errors.New("no contract interfaces requested")

// Factory generates proxy classes against a class descriptor loader.
// Generation is a pure computation: a Factory may be shared freely between
// goroutines.
type Factory struct {
	loader jtype.Loader

	// SkipAnnotation decides which delegate annotations are NOT copied to
	// the proxy. Defaults to skipping annotations that are only meaningful
	// on the concrete service class (OSGi component property annotations).
	SkipAnnotation func(a jtype.Annotation) bool

	// MajorVersion of the emitted class files. Defaults to Java 11 (55).
	MajorVersion uint16
}

// New creates a Factory resolving class descriptors through ld.
func New(ld jtype.Loader) *Factory {
	return &Factory{
		loader:         ld,
		SkipAnnotation: DefaultSkipAnnotation,
		MajorVersion:   0, // emitter default
	}
}

// DefaultSkipAnnotation skips OSGi component property annotations, whose
// semantics are tied to the concrete service implementation class.
func DefaultSkipAnnotation(a jtype.Annotation) bool {
	return strings.HasPrefix(a.Type, "Lorg/osgi/service/component/")
}

// Generate produces the class file bytes for a proxy named className (dotted
// or internal form) wrapping instances of delegate, implementing the given
// contract interfaces in exactly the given order.
//
// The whole request fails if any contract is unknown, is not implemented
// anywhere in the delegate's hierarchy, or resolves to a generic shape that
// cannot be expressed; no partially correct class is ever returned.
func (f *Factory) Generate(className, delegate string, contracts []string) ([]byte, error) {
	if len(contracts) == 0 {
		return nil, ErrNoContracts
	}
	className = strings.ReplaceAll(className, ".", "/")
	delegate = strings.ReplaceAll(delegate, ".", "/")

	impl, err := f.loader.LoadClass(delegate)
	if err != nil {
		return nil, fmt.Errorf("loading delegate %s: %w", delegate, err)
	}

	in := emitInput{
		className: className,
		major:     f.MajorVersion,
	}

	seenMethods := make(map[string]bool)
	var openOrder []string
	openSeen := make(map[string]bool)

	for _, contractName := range contracts {
		contractName = strings.ReplaceAll(contractName, ".", "/")
		contract, err := f.loader.LoadClass(contractName)
		if err != nil {
			return nil, fmt.Errorf("loading contract %s: %w", contractName, err)
		}
		if !contract.Interface {
			return nil, fmt.Errorf("contract %s is not an interface", contractName)
		}

		resolved, err := jtype.Resolve(f.loader, impl, contractName)
		if err != nil {
			return nil, err
		}
		in.interfaces = append(in.interfaces, resolvedContract{Name: contractName, Type: resolved})

		for _, v := range jtype.OpenVariables(resolved) {
			if !openSeen[v] {
				openSeen[v] = true
				openOrder = append(openOrder, v)
			}
		}

		methods, err := jtype.AbstractMethods(f.loader, contract)
		if err != nil {
			return nil, fmt.Errorf("collecting methods of %s: %w", contractName, err)
		}
		for _, m := range methods {
			key := m.Method.Name + m.Method.Descriptor
			if seenMethods[key] {
				continue // shared between contracts, first declaration wins
			}
			seenMethods[key] = true
			in.methods = append(in.methods, m)
		}
	}

	// Every variable still open must be a variable of the delegate class
	// itself; the proxy re-declares it with the original bounds.
	for _, name := range openOrder {
		p, ok := impl.TypeParam(name)
		if !ok {
			return nil, fmt.Errorf("type variable %s is open after resolution but not declared by %s", name, impl.Name)
		}
		in.typeParams = append(in.typeParams, p)
	}

	skip := f.SkipAnnotation
	if skip == nil {
		skip = DefaultSkipAnnotation
	}
	for _, a := range impl.Annotations {
		if skip(a) {
			continue
		}
		in.annotations = append(in.annotations, a)
	}

	data, err := emit(in)
	if err != nil {
		return nil, fmt.Errorf("emitting proxy %s for %s: %w", className, delegate, err)
	}
	return data, nil
}
