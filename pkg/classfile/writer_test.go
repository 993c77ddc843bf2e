package classfile

import (
	"bytes"
	"testing"

	"github.com/classkit/extproxy/pkg/jtype"
)

func buildSampleClass(t *testing.T) []byte {
	t.Helper()
	pb := NewPoolBuilder()
	cf := &ClassFile{
		MajorVersion: MajorJava11,
		AccessFlags:  AccPublic | AccSuper,
	}
	cf.ThisClass = pb.Class("t/Sample")
	cf.SuperClass = pb.Class("java/lang/Object")
	cf.Interfaces = []uint16{pb.Class("t/Iface")}

	cf.Fields = []FieldInfo{{
		AccessFlags: AccPrivate | AccFinal,
		Name:        "delegateSupplier",
		Descriptor:  "Ljava/util/function/Supplier;",
	}}

	objInit := pb.Methodref("java/lang/Object", "<init>", "()V")
	cf.Methods = []MethodInfo{{
		AccessFlags: AccPublic,
		Name:        "<init>",
		Descriptor:  "()V",
		Code: &CodeAttribute{
			MaxStack:  1,
			MaxLocals: 1,
			Code:      []byte{0x2a, 0xb7, byte(objInit >> 8), byte(objInit), 0xb1},
		},
	}}

	cf.Attributes = []AttributeInfo{{
		Name: "Signature",
		Data: EncodeSignature(pb, "Ljava/lang/Object;Lt/Iface;"),
	}}

	data, err := Write(cf, pb)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return data
}

func TestWriteParseRoundTrip(t *testing.T) {
	data := buildSampleClass(t)
	cf, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}

	name, err := cf.ClassName()
	if err != nil {
		t.Fatal(err)
	}
	if name != "t/Sample" {
		t.Errorf("class name: got %s, want t/Sample", name)
	}
	if cf.SuperClassName() != "java/lang/Object" {
		t.Errorf("super: got %s", cf.SuperClassName())
	}
	if cf.MajorVersion != MajorJava11 {
		t.Errorf("major version: got %d, want %d", cf.MajorVersion, MajorJava11)
	}

	ifaces, err := cf.InterfaceNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(ifaces) != 1 || ifaces[0] != "t/Iface" {
		t.Errorf("interfaces: got %v", ifaces)
	}

	if len(cf.Fields) != 1 || cf.Fields[0].Name != "delegateSupplier" {
		t.Errorf("fields: got %+v", cf.Fields)
	}

	m := cf.FindMethod("<init>", "()V")
	if m == nil {
		t.Fatal("constructor not found")
	}
	if m.Code == nil {
		t.Fatal("constructor has no Code attribute")
	}
	if m.Code.MaxStack != 1 || m.Code.MaxLocals != 1 {
		t.Errorf("code: got maxStack=%d maxLocals=%d", m.Code.MaxStack, m.Code.MaxLocals)
	}
	if len(m.Code.Code) != 5 || m.Code.Code[0] != 0x2a || m.Code.Code[4] != 0xb1 {
		t.Errorf("code bytes: got % x", m.Code.Code)
	}

	sig, ok := cf.Signature()
	if !ok || sig != "Ljava/lang/Object;Lt/Iface;" {
		t.Errorf("signature: got %q, %v", sig, ok)
	}
}

func TestWriteRejectsDuplicateCode(t *testing.T) {
	pb := NewPoolBuilder()
	cf := &ClassFile{MajorVersion: MajorJava11}
	cf.ThisClass = pb.Class("t/Bad")
	cf.SuperClass = pb.Class("java/lang/Object")
	cf.Methods = []MethodInfo{{
		Name:       "m",
		Descriptor: "()V",
		Code:       &CodeAttribute{Code: []byte{0xb1}},
		Attributes: []AttributeInfo{{Name: "Code", Data: []byte{}}},
	}}

	if _, err := Write(cf, pb); err == nil {
		t.Error("got nil, want error for duplicate Code")
	}
}

func TestPoolBuilderDedup(t *testing.T) {
	pb := NewPoolBuilder()

	t.Run("utf8", func(t *testing.T) {
		a := pb.Utf8("hello")
		b := pb.Utf8("hello")
		if a != b {
			t.Errorf("got %d and %d for identical strings", a, b)
		}
	})

	t.Run("class", func(t *testing.T) {
		a := pb.Class("t/C")
		b := pb.Class("t/C")
		if a != b {
			t.Errorf("got %d and %d for identical classes", a, b)
		}
	})

	t.Run("member refs keyed by kind", func(t *testing.T) {
		f := pb.Fieldref("t/C", "x", "I")
		m := pb.Methodref("t/C", "x", "I")
		if f == m {
			t.Errorf("field and method ref share index %d", f)
		}
		if again := pb.Fieldref("t/C", "x", "I"); again != f {
			t.Errorf("got %d and %d for identical field refs", f, again)
		}
	})
}

func TestEncodeDecodeExceptions(t *testing.T) {
	pb := NewPoolBuilder()
	names := []string{"java/io/IOException", "java/sql/SQLException"}
	data := EncodeExceptions(pb, names)

	got, err := DecodeExceptions(pb.Pool(), data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != names[0] || got[1] != names[1] {
		t.Errorf("got %v, want %v", got, names)
	}
}

func TestEncodeDecodeAnnotations(t *testing.T) {
	pb := NewPoolBuilder()
	anns := []jtype.Annotation{{
		Type: "Ljakarta/ws/rs/Path;",
		Elements: []jtype.Element{
			{Name: "value", Value: jtype.StringElement("boo")},
			{Name: "cached", Value: jtype.BoolElement(true)},
			{Name: "rank", Value: jtype.IntElement(7)},
		},
	}}

	data, err := EncodeAnnotations(pb, anns)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeAnnotations(pb.Pool(), data)
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d annotations, want 1", len(got))
	}
	a := got[0]
	if a.Type != "Ljakarta/ws/rs/Path;" {
		t.Errorf("type: got %s", a.Type)
	}
	if len(a.Elements) != 3 {
		t.Fatalf("got %d elements, want 3", len(a.Elements))
	}
	if a.Elements[0].Value.String != "boo" {
		t.Errorf("value: got %q", a.Elements[0].Value.String)
	}
	if a.Elements[1].Value.Int != 1 {
		t.Errorf("cached: got %d", a.Elements[1].Value.Int)
	}
	if a.Elements[2].Value.Int != 7 {
		t.Errorf("rank: got %d", a.Elements[2].Value.Int)
	}
}

func TestWriteOutputStartsWithMagic(t *testing.T) {
	data := buildSampleClass(t)
	if !bytes.Equal(data[:4], []byte{0xca, 0xfe, 0xba, 0xbe}) {
		t.Errorf("got % x, want cafebabe", data[:4])
	}
}
