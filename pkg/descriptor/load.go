package descriptor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldError is a validation error for one descriptor field.
type FieldError struct {
	// Field is the path to the field, e.g. "classes[2].methods[0].name".
	Field string

	// Message is a human-readable error message.
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every validation failure in a document.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("descriptor validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("descriptor validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// LoadFile reads, parses and validates a descriptor file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor file %q: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("descriptor file %q: %w", path, err)
	}
	return doc, nil
}

// Parse unmarshals and validates descriptor YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing descriptor: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document's structural rules: names present and in
// internal (slash-separated) form, method descriptors present, annotation
// elements carrying exactly one value. Signature strings are checked later
// by Build.
func Validate(doc *Document) error {
	var errs []FieldError

	if len(doc.Classes) == 0 {
		errs = append(errs, FieldError{Field: "classes", Message: "no classes declared"})
	}
	seen := make(map[string]bool)
	for ci, cd := range doc.Classes {
		path := fmt.Sprintf("classes[%d]", ci)
		errs = append(errs, validateClass(path, cd)...)
		if cd.Name != "" {
			if seen[cd.Name] {
				errs = append(errs, FieldError{Field: path + ".name", Message: fmt.Sprintf("class %s declared twice", cd.Name)})
			}
			seen[cd.Name] = true
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateClass(path string, cd ClassDef) []FieldError {
	var errs []FieldError

	if cd.Name == "" {
		errs = append(errs, FieldError{Field: path + ".name", Message: "class name is required"})
	} else if strings.Contains(cd.Name, ".") {
		errs = append(errs, FieldError{Field: path + ".name", Message: fmt.Sprintf("class name %q must use internal form (slashes, not dots)", cd.Name)})
	}

	for ti, tp := range cd.TypeParams {
		if tp.Name == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("%s.typeparams[%d].name", path, ti), Message: "type parameter name is required"})
		}
	}

	for mi, md := range cd.Methods {
		mpath := fmt.Sprintf("%s.methods[%d]", path, mi)
		if md.Name == "" {
			errs = append(errs, FieldError{Field: mpath + ".name", Message: "method name is required"})
		}
		if md.Descriptor == "" {
			errs = append(errs, FieldError{Field: mpath + ".descriptor", Message: "method descriptor is required"})
		} else if !strings.HasPrefix(md.Descriptor, "(") {
			errs = append(errs, FieldError{Field: mpath + ".descriptor", Message: fmt.Sprintf("descriptor %q must start with a parameter list", md.Descriptor)})
		}
	}

	for ai, ad := range cd.Annotations {
		apath := fmt.Sprintf("%s.annotations[%d]", path, ai)
		if !strings.HasPrefix(ad.Type, "L") || !strings.HasSuffix(ad.Type, ";") {
			errs = append(errs, FieldError{Field: apath + ".type", Message: fmt.Sprintf("annotation type %q must be a field descriptor like Ljakarta/ws/rs/Path;", ad.Type)})
		}
		for ei, el := range ad.Elements {
			epath := fmt.Sprintf("%s.elements[%d]", apath, ei)
			if el.Name == "" {
				errs = append(errs, FieldError{Field: epath + ".name", Message: "element name is required"})
			}
			n := 0
			if el.String != nil {
				n++
			}
			if el.Int != nil {
				n++
			}
			if el.Bool != nil {
				n++
			}
			if n != 1 {
				errs = append(errs, FieldError{Field: epath, Message: "exactly one of string, int or bool must be set"})
			}
		}
	}

	return errs
}
