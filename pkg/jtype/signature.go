package jtype

import (
	"fmt"
	"strings"
)

// TypeSignature renders t in the grammar of the class-file Signature
// attribute (a ReferenceTypeSignature or, inside arrays, a base type).
// Wildcards are only legal as type arguments and are rejected here.
func TypeSignature(t Type) (string, error) {
	var sb strings.Builder
	if err := writeType(&sb, t); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeType(sb *strings.Builder, t Type) error {
	switch v := t.(type) {
	case *ClassType:
		sb.WriteByte('L')
		sb.WriteString(v.Name)
		sb.WriteByte(';')
	case *PrimitiveType:
		sb.WriteByte(v.Desc)
	case *TypeVariable:
		sb.WriteByte('T')
		sb.WriteString(v.Name)
		sb.WriteByte(';')
	case *ArrayType:
		sb.WriteByte('[')
		return writeType(sb, v.Elem)
	case *ParameterizedType:
		sb.WriteByte('L')
		sb.WriteString(v.Raw)
		sb.WriteByte('<')
		for _, a := range v.Args {
			if err := writeTypeArgument(sb, a); err != nil {
				return err
			}
		}
		sb.WriteByte('>')
		sb.WriteByte(';')
	case *Wildcard:
		return fmt.Errorf("wildcard outside a type argument position")
	default:
		return fmt.Errorf("unsupported type %T in signature", t)
	}
	return nil
}

func writeTypeArgument(sb *strings.Builder, t Type) error {
	w, ok := t.(*Wildcard)
	if !ok {
		return writeType(sb, t)
	}
	switch {
	case w.Upper == nil && w.Lower == nil:
		sb.WriteByte('*')
		return nil
	case w.Lower != nil:
		sb.WriteByte('-')
		return writeType(sb, w.Lower)
	default:
		sb.WriteByte('+')
		return writeType(sb, w.Upper)
	}
}

// TypeParamsSignature renders a declared type parameter list, including the
// enclosing angle brackets. An empty list renders as "".
func TypeParamsSignature(params []TypeParam) (string, error) {
	if len(params) == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteByte('<')
	for _, p := range params {
		sb.WriteString(p.Name)
		bounds := p.Bounds
		if len(bounds) == 0 {
			bounds = []Type{ObjectBound}
		}
		for _, b := range bounds {
			sb.WriteByte(':')
			if err := writeType(&sb, b); err != nil {
				return "", fmt.Errorf("bound of %s: %w", p.Name, err)
			}
		}
	}
	sb.WriteByte('>')
	return sb.String(), nil
}

// ClassSig is a decoded class-level Signature attribute.
type ClassSig struct {
	TypeParams []TypeParam
	Super      Type
	Interfaces []Type
}

// ClassSignature renders a full class signature: optional type parameters,
// the superclass signature (java/lang/Object when super is nil) and each
// superinterface signature in order.
func ClassSignature(params []TypeParam, super Type, ifaces []Type) (string, error) {
	var sb strings.Builder
	ps, err := TypeParamsSignature(params)
	if err != nil {
		return "", err
	}
	sb.WriteString(ps)
	if super == nil {
		super = ObjectBound
	}
	if err := writeType(&sb, super); err != nil {
		return "", err
	}
	for _, it := range ifaces {
		if err := writeType(&sb, it); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// ParseTypeSignature parses a single type signature, requiring the whole
// input to be consumed.
func ParseTypeSignature(s string) (Type, error) {
	p := &sigParser{s: s}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.i != len(p.s) {
		return nil, fmt.Errorf("trailing data at offset %d in signature %q", p.i, s)
	}
	return t, nil
}

// ParseClassSignature decodes a class-level Signature attribute value.
func ParseClassSignature(s string) (*ClassSig, error) {
	p := &sigParser{s: s}
	sig := &ClassSig{}
	var err error
	if p.peek() == '<' {
		sig.TypeParams, err = p.parseTypeParams()
		if err != nil {
			return nil, err
		}
	}
	sig.Super, err = p.parseType()
	if err != nil {
		return nil, err
	}
	for p.i < len(p.s) {
		it, err := p.parseType()
		if err != nil {
			return nil, err
		}
		sig.Interfaces = append(sig.Interfaces, it)
	}
	return sig, nil
}

type sigParser struct {
	s string
	i int
}

func (p *sigParser) peek() byte {
	if p.i >= len(p.s) {
		return 0
	}
	return p.s[p.i]
}

func (p *sigParser) next() (byte, error) {
	if p.i >= len(p.s) {
		return 0, fmt.Errorf("unexpected end of signature %q", p.s)
	}
	c := p.s[p.i]
	p.i++
	return c, nil
}

func (p *sigParser) expect(c byte) error {
	got, err := p.next()
	if err != nil {
		return err
	}
	if got != c {
		return fmt.Errorf("expected %q at offset %d in signature %q, got %q", c, p.i-1, p.s, got)
	}
	return nil
}

// readUntil consumes up to (not including) any byte in stop.
func (p *sigParser) readUntil(stop string) (string, error) {
	start := p.i
	for p.i < len(p.s) {
		if strings.IndexByte(stop, p.s[p.i]) >= 0 {
			if p.i == start {
				return "", fmt.Errorf("empty name at offset %d in signature %q", start, p.s)
			}
			return p.s[start:p.i], nil
		}
		p.i++
	}
	return "", fmt.Errorf("unterminated name in signature %q", p.s)
}

func (p *sigParser) parseType() (Type, error) {
	c, err := p.next()
	if err != nil {
		return nil, err
	}
	switch c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return &PrimitiveType{Desc: c}, nil
	case '[':
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ArrayType{Elem: elem}, nil
	case 'T':
		name, err := p.readUntil(";")
		if err != nil {
			return nil, err
		}
		p.i++ // ';'
		return &TypeVariable{Name: name}, nil
	case 'L':
		name, err := p.readUntil("<;")
		if err != nil {
			return nil, err
		}
		if p.peek() == ';' {
			p.i++
			return &ClassType{Name: name}, nil
		}
		p.i++ // '<'
		var args []Type
		for p.peek() != '>' {
			a, err := p.parseTypeArgument()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		p.i++ // '>'
		if err := p.expect(';'); err != nil {
			return nil, err
		}
		return &ParameterizedType{Raw: name, Args: args}, nil
	}
	return nil, fmt.Errorf("unexpected %q at offset %d in signature %q", c, p.i-1, p.s)
}

func (p *sigParser) parseTypeArgument() (Type, error) {
	switch p.peek() {
	case '*':
		p.i++
		return &Wildcard{}, nil
	case '+':
		p.i++
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &Wildcard{Upper: t}, nil
	case '-':
		p.i++
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &Wildcard{Lower: t}, nil
	}
	return p.parseType()
}

func (p *sigParser) parseTypeParams() ([]TypeParam, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	var params []TypeParam
	for p.peek() != '>' {
		name, err := p.readUntil(":")
		if err != nil {
			return nil, err
		}
		p.i++ // first ':'
		var bounds []Type
		if p.peek() != ':' { // class bound present
			b, err := p.parseType()
			if err != nil {
				return nil, err
			}
			bounds = append(bounds, b)
		}
		for p.peek() == ':' {
			p.i++
			b, err := p.parseType()
			if err != nil {
				return nil, err
			}
			bounds = append(bounds, b)
		}
		params = append(params, TypeParam{Name: name, Bounds: bounds})
	}
	p.i++ // '>'
	return params, nil
}
