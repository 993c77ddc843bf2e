package jtype

import (
	"errors"
	"fmt"
)

// ErrUnknownClass is returned by a Loader when no class descriptor is
// registered under the requested name.
var ErrUnknownClass = errors.New("unknown class")

// Method is an abstract method declared by a contract interface. Descriptor
// is the erased JVM method descriptor; Exceptions lists the internal names of
// declared thrown types.
type Method struct {
	Name       string
	Descriptor string
	Exceptions []string
}

// Class describes a Java class or interface: its declared type parameters,
// its generic superclass and superinterfaces (in declaration order), its
// class-level annotations and, for interfaces, its abstract methods.
type Class struct {
	Name        string
	Interface   bool
	TypeParams  []TypeParam
	Super       Type // nil means java/lang/Object (or none, for interfaces)
	Interfaces  []Type
	Methods     []Method
	Annotations []Annotation
}

// TypeParam returns the declared type parameter with the given name.
func (c *Class) TypeParam(name string) (TypeParam, bool) {
	for _, p := range c.TypeParams {
		if p.Name == name {
			return p, true
		}
	}
	return TypeParam{}, false
}

// Loader resolves internal class names to descriptors.
type Loader interface {
	LoadClass(name string) (*Class, error)
}

// Registry is a map-backed Loader.
type Registry struct {
	classes map[string]*Class
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// Register adds a class descriptor. Registering the same name twice is an
// error.
func (r *Registry) Register(c *Class) error {
	if _, ok := r.classes[c.Name]; ok {
		return fmt.Errorf("class %s already registered", c.Name)
	}
	r.classes[c.Name] = c
	return nil
}

// MustRegister is Register for statically known test and setup code.
func (r *Registry) MustRegister(c *Class) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

func (r *Registry) LoadClass(name string) (*Class, error) {
	c, ok := r.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	return c, nil
}

// OwnedMethod is an abstract method together with the interface declaring it.
type OwnedMethod struct {
	Owner  string
	Method Method
}

// AbstractMethods returns the abstract methods of a contract interface,
// including those of transitively extended interfaces, de-duplicated by
// erased signature. The first declaration seen wins, so the invocation
// target is the nearest declaring interface.
func AbstractMethods(ld Loader, contract *Class) ([]OwnedMethod, error) {
	var out []OwnedMethod
	seen := make(map[string]bool)
	if err := collectAbstract(ld, contract, seen, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func collectAbstract(ld Loader, c *Class, seen map[string]bool, out *[]OwnedMethod) error {
	for _, m := range c.Methods {
		key := m.Name + m.Descriptor
		if seen[key] {
			continue
		}
		seen[key] = true
		*out = append(*out, OwnedMethod{Owner: c.Name, Method: m})
	}
	for _, sup := range c.Interfaces {
		raw, ok := RawName(sup)
		if !ok {
			return fmt.Errorf("interface %s extends a non-class type %T", c.Name, sup)
		}
		sc, err := ld.LoadClass(raw)
		if err != nil {
			if errors.Is(err, ErrUnknownClass) {
				continue
			}
			return err
		}
		if err := collectAbstract(ld, sc, seen, out); err != nil {
			return err
		}
	}
	return nil
}
