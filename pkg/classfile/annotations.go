package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/classkit/extproxy/pkg/jtype"
)

// RuntimeVisibleAnnotations is the attribute name used for copied
// annotations.
const RuntimeVisibleAnnotations = "RuntimeVisibleAnnotations"

// EncodeAnnotations encodes a RuntimeVisibleAnnotations attribute payload
// against pb.
func EncodeAnnotations(pb *PoolBuilder, anns []jtype.Annotation) ([]byte, error) {
	var buf bytes.Buffer
	writeU16(&buf, uint16(len(anns)))
	for _, a := range anns {
		if err := encodeAnnotation(&buf, pb, &a); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeAnnotation(buf *bytes.Buffer, pb *PoolBuilder, a *jtype.Annotation) error {
	writeU16(buf, pb.Utf8(a.Type))
	writeU16(buf, uint16(len(a.Elements)))
	for _, el := range a.Elements {
		writeU16(buf, pb.Utf8(el.Name))
		if err := encodeElementValue(buf, pb, &el.Value); err != nil {
			return fmt.Errorf("annotation %s element %s: %w", a.Type, el.Name, err)
		}
	}
	return nil
}

func encodeElementValue(buf *bytes.Buffer, pb *PoolBuilder, v *jtype.ElementValue) error {
	buf.WriteByte(v.Tag)
	switch v.Tag {
	case jtype.TagByte, jtype.TagChar, jtype.TagInt, jtype.TagShort, jtype.TagBoolean:
		writeU16(buf, pb.addConst(&ConstantInteger{Value: int32(v.Int)}))
	case jtype.TagLong:
		writeU16(buf, pb.addConst(&ConstantLong{Value: v.Int}))
	case jtype.TagFloat:
		writeU16(buf, pb.addConst(&ConstantFloat{Value: float32(v.Float)}))
	case jtype.TagDouble:
		writeU16(buf, pb.addConst(&ConstantDouble{Value: v.Float}))
	case jtype.TagString:
		writeU16(buf, pb.Utf8(v.String))
	case jtype.TagClass:
		writeU16(buf, pb.Utf8(v.String))
	case jtype.TagEnum:
		writeU16(buf, pb.Utf8(v.EnumType))
		writeU16(buf, pb.Utf8(v.String))
	case jtype.TagArray:
		writeU16(buf, uint16(len(v.Array)))
		for i := range v.Array {
			if err := encodeElementValue(buf, pb, &v.Array[i]); err != nil {
				return err
			}
		}
	case jtype.TagAnnotation:
		if v.Nested == nil {
			return fmt.Errorf("nested annotation value without annotation")
		}
		return encodeAnnotation(buf, pb, v.Nested)
	default:
		return fmt.Errorf("unsupported element value tag %q", v.Tag)
	}
	return nil
}

// DecodeAnnotations decodes a RuntimeVisibleAnnotations attribute payload
// back into the descriptor model.
func DecodeAnnotations(pool []ConstantPoolEntry, data []byte) ([]jtype.Annotation, error) {
	d := &annReader{pool: pool, data: data}
	n := d.u16()
	anns := make([]jtype.Annotation, 0, n)
	for i := 0; i < int(n); i++ {
		a, err := d.annotation()
		if err != nil {
			return nil, err
		}
		anns = append(anns, *a)
	}
	if d.err != nil {
		return nil, d.err
	}
	return anns, nil
}

type annReader struct {
	pool []ConstantPoolEntry
	data []byte
	pos  int
	err  error
}

func (d *annReader) u16() uint16 {
	if d.err != nil {
		return 0
	}
	if d.pos+2 > len(d.data) {
		d.err = fmt.Errorf("truncated annotation data at offset %d", d.pos)
		return 0
	}
	v := binary.BigEndian.Uint16(d.data[d.pos:])
	d.pos += 2
	return v
}

func (d *annReader) u8() byte {
	if d.err != nil {
		return 0
	}
	if d.pos >= len(d.data) {
		d.err = fmt.Errorf("truncated annotation data at offset %d", d.pos)
		return 0
	}
	v := d.data[d.pos]
	d.pos++
	return v
}

func (d *annReader) utf8At(idx uint16) string {
	if d.err != nil {
		return ""
	}
	s, err := GetUtf8(d.pool, idx)
	if err != nil {
		d.err = err
	}
	return s
}

func (d *annReader) annotation() (*jtype.Annotation, error) {
	a := &jtype.Annotation{Type: d.utf8At(d.u16())}
	n := d.u16()
	for i := 0; i < int(n) && d.err == nil; i++ {
		name := d.utf8At(d.u16())
		v, err := d.elementValue()
		if err != nil {
			return nil, err
		}
		a.Elements = append(a.Elements, jtype.Element{Name: name, Value: *v})
	}
	return a, d.err
}

func (d *annReader) elementValue() (*jtype.ElementValue, error) {
	v := &jtype.ElementValue{Tag: d.u8()}
	switch v.Tag {
	case jtype.TagByte, jtype.TagChar, jtype.TagInt, jtype.TagShort, jtype.TagBoolean:
		idx := d.u16()
		c, ok := poolAt[*ConstantInteger](d, idx)
		if !ok {
			return nil, d.err
		}
		v.Int = int64(c.Value)
	case jtype.TagLong:
		idx := d.u16()
		c, ok := poolAt[*ConstantLong](d, idx)
		if !ok {
			return nil, d.err
		}
		v.Int = c.Value
	case jtype.TagFloat:
		idx := d.u16()
		c, ok := poolAt[*ConstantFloat](d, idx)
		if !ok {
			return nil, d.err
		}
		v.Float = float64(c.Value)
	case jtype.TagDouble:
		idx := d.u16()
		c, ok := poolAt[*ConstantDouble](d, idx)
		if !ok {
			return nil, d.err
		}
		v.Float = c.Value
	case jtype.TagString, jtype.TagClass:
		v.String = d.utf8At(d.u16())
	case jtype.TagEnum:
		v.EnumType = d.utf8At(d.u16())
		v.String = d.utf8At(d.u16())
	case jtype.TagArray:
		n := d.u16()
		for i := 0; i < int(n) && d.err == nil; i++ {
			e, err := d.elementValue()
			if err != nil {
				return nil, err
			}
			v.Array = append(v.Array, *e)
		}
	case jtype.TagAnnotation:
		nested, err := d.annotation()
		if err != nil {
			return nil, err
		}
		v.Nested = nested
	default:
		return nil, fmt.Errorf("unsupported element value tag %q at offset %d", v.Tag, d.pos-1)
	}
	return v, d.err
}

func poolAt[T ConstantPoolEntry](d *annReader, idx uint16) (T, bool) {
	var zero T
	if d.err != nil {
		return zero, false
	}
	if int(idx) >= len(d.pool) || d.pool[idx] == nil {
		d.err = fmt.Errorf("invalid constant pool index %d in annotation", idx)
		return zero, false
	}
	c, ok := d.pool[idx].(T)
	if !ok {
		d.err = fmt.Errorf("constant pool index %d has unexpected type %T", idx, d.pool[idx])
		return zero, false
	}
	return c, true
}

func writeU16(buf *bytes.Buffer, v uint16) {
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

// addConst appends a loadable constant without deduplication. Annotation
// payloads are the only emitters of these entries and are small.
func (b *PoolBuilder) addConst(e ConstantPoolEntry) uint16 {
	idx := b.add(e)
	if e.Tag() == TagLong || e.Tag() == TagDouble {
		b.entries = append(b.entries, nil) // second slot
	}
	return idx
}
