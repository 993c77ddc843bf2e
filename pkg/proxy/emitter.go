package proxy

import (
	"bytes"
	"fmt"

	"github.com/classkit/extproxy/pkg/classfile"
	"github.com/classkit/extproxy/pkg/jtype"
)

// The accessor held by every proxy instance.
const (
	supplierClass = "java/util/function/Supplier"
	supplierDesc  = "Ljava/util/function/Supplier;"
	supplierField = "delegateSupplier"

	objectClass = "java/lang/Object"
)

// Opcodes a generated proxy can contain.
const (
	opIload  = 0x15
	opLload  = 0x16
	opFload  = 0x17
	opDload  = 0x18
	opAload  = 0x19
	opIload0 = 0x1a
	opLload0 = 0x1e
	opFload0 = 0x22
	opDload0 = 0x26
	opAload0 = 0x2a
	opAload1 = 0x2b

	opIreturn = 0xac
	opLreturn = 0xad
	opFreturn = 0xae
	opDreturn = 0xaf
	opAreturn = 0xb0
	opReturn  = 0xb1

	opGetfield        = 0xb4
	opPutfield        = 0xb5
	opInvokespecial   = 0xb7
	opInvokeinterface = 0xb9
	opCheckcast       = 0xc0
)

type resolvedContract struct {
	Name string
	Type jtype.Type
}

type emitInput struct {
	className   string
	major       uint16
	typeParams  []jtype.TypeParam
	interfaces  []resolvedContract
	methods     []jtype.OwnedMethod
	annotations []jtype.Annotation
}

// emit assembles the class file for a resolved generation request.
func emit(in emitInput) ([]byte, error) {
	pb := classfile.NewPoolBuilder()

	cf := &classfile.ClassFile{
		MajorVersion: in.major,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
	}
	if cf.MajorVersion == 0 {
		cf.MajorVersion = classfile.MajorJava11
	}
	cf.ThisClass = pb.Class(in.className)
	cf.SuperClass = pb.Class(objectClass)

	for _, rc := range in.interfaces {
		cf.Interfaces = append(cf.Interfaces, pb.Class(rc.Name))
	}

	cf.Fields = []classfile.FieldInfo{{
		AccessFlags: classfile.AccPrivate | classfile.AccFinal,
		Name:        supplierField,
		Descriptor:  supplierDesc,
	}}

	cf.Methods = append(cf.Methods, constructor(pb, in.className))
	for _, m := range in.methods {
		mi, err := forwardingMethod(pb, in.className, m.Owner, m.Method)
		if err != nil {
			return nil, err
		}
		cf.Methods = append(cf.Methods, mi)
	}

	sig, err := classSignature(in)
	if err != nil {
		return nil, err
	}
	if sig != "" {
		cf.Attributes = append(cf.Attributes, classfile.AttributeInfo{
			Name: "Signature",
			Data: classfile.EncodeSignature(pb, sig),
		})
	}

	if len(in.annotations) > 0 {
		data, err := classfile.EncodeAnnotations(pb, in.annotations)
		if err != nil {
			return nil, err
		}
		cf.Attributes = append(cf.Attributes, classfile.AttributeInfo{
			Name: classfile.RuntimeVisibleAnnotations,
			Data: data,
		})
	}

	return classfile.Write(cf, pb)
}

// classSignature renders the class-level Signature attribute value, or ""
// when the proxy is entirely non-generic (all contracts raw, no open
// variables) and the attribute must be omitted so that reflection reports
// raw interfaces.
func classSignature(in emitInput) (string, error) {
	generic := len(in.typeParams) > 0
	ifaces := make([]jtype.Type, len(in.interfaces))
	for i, rc := range in.interfaces {
		ifaces[i] = rc.Type
		if _, raw := rc.Type.(*jtype.ClassType); !raw {
			generic = true
		}
	}
	if !generic {
		return "", nil
	}
	return jtype.ClassSignature(in.typeParams, nil, ifaces)
}

// constructor emits the single public constructor: it stores the supplier
// and nothing else.
func constructor(pb *classfile.PoolBuilder, className string) classfile.MethodInfo {
	var code bytes.Buffer
	code.WriteByte(opAload0)
	code.WriteByte(opInvokespecial)
	writeIndex(&code, pb.Methodref(objectClass, "<init>", "()V"))
	code.WriteByte(opAload0)
	code.WriteByte(opAload1)
	code.WriteByte(opPutfield)
	writeIndex(&code, pb.Fieldref(className, supplierField, supplierDesc))
	code.WriteByte(opReturn)

	return classfile.MethodInfo{
		AccessFlags: classfile.AccPublic,
		Name:        "<init>",
		Descriptor:  "(" + supplierDesc + ")V",
		Code: &classfile.CodeAttribute{
			MaxStack:  2,
			MaxLocals: 2,
			Code:      code.Bytes(),
		},
	}
}

// forwardingMethod emits one contract method: fetch the current delegate
// from the supplier, cast it to the declaring contract, forward the
// arguments and return the result. The delegate is fetched on every call so
// the caller can swap it without regenerating the class, and anything the
// delegate throws propagates unchanged.
func forwardingMethod(pb *classfile.PoolBuilder, className, owner string, m jtype.Method) (classfile.MethodInfo, error) {
	d, err := classfile.ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		return classfile.MethodInfo{}, fmt.Errorf("method %s: %w", m.Name, err)
	}
	paramSlots := d.ParamSlots()
	if paramSlots > 254 {
		return classfile.MethodInfo{}, fmt.Errorf("method %s: %d parameter slots exceed the invokeinterface limit", m.Name, paramSlots)
	}

	var code bytes.Buffer
	code.WriteByte(opAload0)
	code.WriteByte(opGetfield)
	writeIndex(&code, pb.Fieldref(className, supplierField, supplierDesc))
	code.WriteByte(opInvokeinterface)
	writeIndex(&code, pb.InterfaceMethodref(supplierClass, "get", "()Ljava/lang/Object;"))
	code.WriteByte(1)
	code.WriteByte(0)
	code.WriteByte(opCheckcast)
	writeIndex(&code, pb.Class(owner))

	slot := 1
	for _, p := range d.Params {
		if err := writeLoad(&code, p, slot); err != nil {
			return classfile.MethodInfo{}, fmt.Errorf("method %s: %w", m.Name, err)
		}
		slot += classfile.Slots(p)
	}

	code.WriteByte(opInvokeinterface)
	writeIndex(&code, pb.InterfaceMethodref(owner, m.Name, m.Descriptor))
	code.WriteByte(byte(1 + paramSlots))
	code.WriteByte(0)
	code.WriteByte(returnOpcode(d.Return))

	maxStack := 1 + paramSlots
	if rs := d.ReturnSlots(); rs > maxStack {
		maxStack = rs
	}

	var attrs []classfile.AttributeInfo
	if len(m.Exceptions) > 0 {
		attrs = append(attrs, classfile.AttributeInfo{
			Name: "Exceptions",
			Data: classfile.EncodeExceptions(pb, m.Exceptions),
		})
	}

	return classfile.MethodInfo{
		AccessFlags: classfile.AccPublic,
		Name:        m.Name,
		Descriptor:  m.Descriptor,
		Attributes:  attrs,
		Code: &classfile.CodeAttribute{
			MaxStack:  uint16(maxStack),
			MaxLocals: uint16(1 + paramSlots),
			Code:      code.Bytes(),
		},
	}, nil
}

// writeLoad emits the load instruction for one parameter, using the short
// form for slots 0-3.
func writeLoad(code *bytes.Buffer, fieldDesc string, slot int) error {
	if slot > 255 {
		return fmt.Errorf("local slot %d out of range", slot)
	}
	var base, short byte
	switch fieldDesc[0] {
	case 'I', 'S', 'B', 'C', 'Z':
		base, short = opIload, opIload0
	case 'J':
		base, short = opLload, opLload0
	case 'F':
		base, short = opFload, opFload0
	case 'D':
		base, short = opDload, opDload0
	case 'L', '[':
		base, short = opAload, opAload0
	default:
		return fmt.Errorf("unsupported parameter descriptor %q", fieldDesc)
	}
	if slot <= 3 {
		code.WriteByte(short + byte(slot))
		return nil
	}
	code.WriteByte(base)
	code.WriteByte(byte(slot))
	return nil
}

func returnOpcode(ret string) byte {
	switch ret[0] {
	case 'V':
		return opReturn
	case 'I', 'S', 'B', 'C', 'Z':
		return opIreturn
	case 'J':
		return opLreturn
	case 'F':
		return opFreturn
	case 'D':
		return opDreturn
	default:
		return opAreturn
	}
}

func writeIndex(code *bytes.Buffer, idx uint16) {
	code.WriteByte(byte(idx >> 8))
	code.WriteByte(byte(idx))
}
