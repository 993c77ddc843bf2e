package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Write serializes a class under construction. The constant pool is taken
// from pb, not from cf.ConstantPool: every attribute payload in cf must have
// been encoded against pb (see EncodeSignature and friends), and Write
// interns the remaining names and descriptors itself before the pool is
// laid down.
func Write(cf *ClassFile, pb *PoolBuilder) ([]byte, error) {
	type member struct {
		flags uint16
		name  uint16
		desc  uint16
		attrs []encodedAttr
	}

	thisIdx := cf.ThisClass
	superIdx := cf.SuperClass

	fields := make([]member, len(cf.Fields))
	for i, f := range cf.Fields {
		attrs, err := internAttrs(pb, f.Attributes)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fields[i] = member{f.AccessFlags, pb.Utf8(f.Name), pb.Utf8(f.Descriptor), attrs}
	}

	methods := make([]member, len(cf.Methods))
	for i, m := range cf.Methods {
		attrList := m.Attributes
		if m.Code != nil {
			if _, has := m.Attribute("Code"); has {
				return nil, fmt.Errorf("method %s carries both Code field and Code attribute", m.Name)
			}
			attrList = append([]AttributeInfo{{Name: "Code", Data: EncodeCode(m.Code)}}, attrList...)
		}
		attrs, err := internAttrs(pb, attrList)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		methods[i] = member{m.AccessFlags, pb.Utf8(m.Name), pb.Utf8(m.Descriptor), attrs}
	}

	classAttrs, err := internAttrs(pb, cf.Attributes)
	if err != nil {
		return nil, err
	}

	// The pool is complete only now; serialize.
	var buf bytes.Buffer
	w := func(v interface{}) {
		binary.Write(&buf, binary.BigEndian, v) //nolint:errcheck // bytes.Buffer does not fail
	}

	w(uint32(classMagic))
	w(cf.MinorVersion)
	w(cf.MajorVersion)

	pool := pb.Pool()
	w(uint16(len(pool)))
	for i := 1; i < len(pool); i++ {
		if pool[i] == nil {
			continue // phantom second slot of a long or double
		}
		if err := writePoolEntry(&buf, pool[i]); err != nil {
			return nil, fmt.Errorf("constant pool index %d: %w", i, err)
		}
	}

	w(cf.AccessFlags)
	w(thisIdx)
	w(superIdx)

	w(uint16(len(cf.Interfaces)))
	for _, idx := range cf.Interfaces {
		w(idx)
	}

	writeMembers := func(ms []member) {
		w(uint16(len(ms)))
		for _, m := range ms {
			w(m.flags)
			w(m.name)
			w(m.desc)
			w(uint16(len(m.attrs)))
			for _, a := range m.attrs {
				w(a.name)
				w(uint32(len(a.data)))
				buf.Write(a.data)
			}
		}
	}
	writeMembers(fields)
	writeMembers(methods)

	w(uint16(len(classAttrs)))
	for _, a := range classAttrs {
		w(a.name)
		w(uint32(len(a.data)))
		buf.Write(a.data)
	}

	return buf.Bytes(), nil
}

type encodedAttr struct {
	name uint16
	data []byte
}

func internAttrs(pb *PoolBuilder, attrs []AttributeInfo) ([]encodedAttr, error) {
	out := make([]encodedAttr, len(attrs))
	for i, a := range attrs {
		if a.Name == "" {
			return nil, fmt.Errorf("attribute %d has no name", i)
		}
		out[i] = encodedAttr{name: pb.Utf8(a.Name), data: a.Data}
	}
	return out, nil
}

func writePoolEntry(buf *bytes.Buffer, e ConstantPoolEntry) error {
	w := func(v interface{}) {
		binary.Write(buf, binary.BigEndian, v) //nolint:errcheck
	}
	switch c := e.(type) {
	case *ConstantUtf8:
		w(uint8(TagUtf8))
		w(uint16(len(c.Value)))
		buf.WriteString(c.Value)
	case *ConstantInteger:
		w(uint8(TagInteger))
		w(c.Value)
	case *ConstantFloat:
		w(uint8(TagFloat))
		w(math.Float32bits(c.Value))
	case *ConstantLong:
		w(uint8(TagLong))
		w(c.Value)
	case *ConstantDouble:
		w(uint8(TagDouble))
		w(math.Float64bits(c.Value))
	case *ConstantClass:
		w(uint8(TagClass))
		w(c.NameIndex)
	case *ConstantString:
		w(uint8(TagString))
		w(c.StringIndex)
	case *ConstantNameAndType:
		w(uint8(TagNameAndType))
		w(c.NameIndex)
		w(c.DescriptorIndex)
	case *ConstantFieldref:
		w(uint8(TagFieldref))
		w(c.ClassIndex)
		w(c.NameAndTypeIndex)
	case *ConstantMethodref:
		w(uint8(TagMethodref))
		w(c.ClassIndex)
		w(c.NameAndTypeIndex)
	case *ConstantInterfaceMethodref:
		w(uint8(TagInterfaceMethodref))
		w(c.ClassIndex)
		w(c.NameAndTypeIndex)
	default:
		return fmt.Errorf("unsupported constant pool entry %T", e)
	}
	return nil
}

// EncodeCode serializes a Code attribute payload.
func EncodeCode(c *CodeAttribute) []byte {
	var buf bytes.Buffer
	w := func(v interface{}) {
		binary.Write(&buf, binary.BigEndian, v) //nolint:errcheck
	}
	w(c.MaxStack)
	w(c.MaxLocals)
	w(uint32(len(c.Code)))
	buf.Write(c.Code)
	w(uint16(len(c.ExceptionHandlers)))
	for _, h := range c.ExceptionHandlers {
		w(h.StartPC)
		w(h.EndPC)
		w(h.HandlerPC)
		w(h.CatchType)
	}
	w(uint16(0)) // nested attributes
	return buf.Bytes()
}

// EncodeSignature encodes a Signature attribute payload against pb.
func EncodeSignature(pb *PoolBuilder, sig string) []byte {
	idx := pb.Utf8(sig)
	return []byte{byte(idx >> 8), byte(idx)}
}

// EncodeExceptions encodes an Exceptions attribute payload for the given
// internal class names.
func EncodeExceptions(pb *PoolBuilder, names []string) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint16(len(names))) //nolint:errcheck
	for _, n := range names {
		binary.Write(&buf, binary.BigEndian, pb.Class(n)) //nolint:errcheck
	}
	return buf.Bytes()
}

// DecodeExceptions resolves an Exceptions attribute payload into internal
// class names.
func DecodeExceptions(pool []ConstantPoolEntry, data []byte) ([]string, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("Exceptions attribute too short: %d bytes", len(data))
	}
	n := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) != 2+2*n {
		return nil, fmt.Errorf("Exceptions attribute length %d does not match count %d", len(data), n)
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		idx := binary.BigEndian.Uint16(data[2+2*i:])
		name, err := GetClassName(pool, idx)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}
