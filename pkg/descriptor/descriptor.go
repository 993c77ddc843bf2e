// Package descriptor loads YAML class descriptor files into a jtype
// registry. Descriptors let the CLI describe a delegate hierarchy and its
// contract interfaces without any class files on hand; generic types are
// written as JVM signature strings.
package descriptor

import (
	"fmt"

	"github.com/classkit/extproxy/pkg/jtype"
)

// Document is the root of a descriptor file.
type Document struct {
	Classes []ClassDef `yaml:"classes"`
}

// ClassDef describes one class or interface. Super, Interfaces and type
// parameter bounds use the JVM signature grammar, e.g.
// "Ljakarta/ws/rs/ext/ExceptionMapper<Ljava/lang/NullPointerException;>;".
type ClassDef struct {
	Name        string          `yaml:"name"`
	Interface   bool            `yaml:"interface"`
	TypeParams  []TypeParamDef  `yaml:"typeparams"`
	Super       string          `yaml:"super"`
	Interfaces  []string        `yaml:"interfaces"`
	Methods     []MethodDef     `yaml:"methods"`
	Annotations []AnnotationDef `yaml:"annotations"`
}

// TypeParamDef declares a type variable with its bounds.
type TypeParamDef struct {
	Name   string   `yaml:"name"`
	Bounds []string `yaml:"bounds"`
}

// MethodDef declares an abstract method by name and erased descriptor.
type MethodDef struct {
	Name       string   `yaml:"name"`
	Descriptor string   `yaml:"descriptor"`
	Exceptions []string `yaml:"exceptions"`
}

// AnnotationDef declares a class-level annotation. Type is the field
// descriptor form, e.g. "Ljakarta/ws/rs/Path;".
type AnnotationDef struct {
	Type     string       `yaml:"type"`
	Elements []ElementDef `yaml:"elements"`
}

// ElementDef is one annotation element. Exactly one of the value fields
// must be set.
type ElementDef struct {
	Name   string  `yaml:"name"`
	String *string `yaml:"string"`
	Int    *int64  `yaml:"int"`
	Bool   *bool   `yaml:"bool"`
}

// Build converts the document into a registry, parsing every signature
// string. The document must have been validated first; Build still reports
// signature parse failures with their field path.
func (d *Document) Build() (*jtype.Registry, error) {
	reg := jtype.NewRegistry()
	for ci, cd := range d.Classes {
		cls, err := buildClass(cd)
		if err != nil {
			return nil, fmt.Errorf("classes[%d] (%s): %w", ci, cd.Name, err)
		}
		if err := reg.Register(cls); err != nil {
			return nil, fmt.Errorf("classes[%d]: %w", ci, err)
		}
	}
	return reg, nil
}

func buildClass(cd ClassDef) (*jtype.Class, error) {
	cls := &jtype.Class{
		Name:      cd.Name,
		Interface: cd.Interface,
	}

	for _, tp := range cd.TypeParams {
		p := jtype.TypeParam{Name: tp.Name}
		for bi, b := range tp.Bounds {
			t, err := jtype.ParseTypeSignature(b)
			if err != nil {
				return nil, fmt.Errorf("typeparam %s bounds[%d]: %w", tp.Name, bi, err)
			}
			p.Bounds = append(p.Bounds, t)
		}
		cls.TypeParams = append(cls.TypeParams, p)
	}

	if cd.Super != "" {
		t, err := jtype.ParseTypeSignature(cd.Super)
		if err != nil {
			return nil, fmt.Errorf("super: %w", err)
		}
		cls.Super = t
	}
	for ii, s := range cd.Interfaces {
		t, err := jtype.ParseTypeSignature(s)
		if err != nil {
			return nil, fmt.Errorf("interfaces[%d]: %w", ii, err)
		}
		cls.Interfaces = append(cls.Interfaces, t)
	}

	for _, md := range cd.Methods {
		cls.Methods = append(cls.Methods, jtype.Method{
			Name:       md.Name,
			Descriptor: md.Descriptor,
			Exceptions: md.Exceptions,
		})
	}

	for _, ad := range cd.Annotations {
		ann := jtype.Annotation{Type: ad.Type}
		for _, el := range ad.Elements {
			var ev jtype.ElementValue
			switch {
			case el.String != nil:
				ev = jtype.StringElement(*el.String)
			case el.Int != nil:
				ev = jtype.IntElement(*el.Int)
			case el.Bool != nil:
				ev = jtype.BoolElement(*el.Bool)
			}
			ann.Elements = append(ann.Elements, jtype.Element{Name: el.Name, Value: ev})
		}
		cls.Annotations = append(cls.Annotations, ann)
	}

	return cls, nil
}
