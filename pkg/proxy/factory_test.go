package proxy

import (
	"errors"
	"testing"

	"github.com/classkit/extproxy/pkg/classfile"
	"github.com/classkit/extproxy/pkg/jtype"
)

const (
	exceptionMapper = "jakarta/ws/rs/ext/ExceptionMapper"
	contextResolver = "jakarta/ws/rs/ext/ContextResolver"
	bodyWriter      = "jakarta/ws/rs/ext/MessageBodyWriter"
	bodyReader      = "jakarta/ws/rs/ext/MessageBodyReader"
)

func cls(name string) *jtype.ClassType { return &jtype.ClassType{Name: name} }

func pt(raw string, args ...jtype.Type) *jtype.ParameterizedType {
	return &jtype.ParameterizedType{Raw: raw, Args: args}
}

func tv(name string) *jtype.TypeVariable { return &jtype.TypeVariable{Name: name} }

func testRegistry(t *testing.T) *jtype.Registry {
	t.Helper()
	reg := jtype.NewRegistry()

	reg.MustRegister(&jtype.Class{
		Name:       exceptionMapper,
		Interface:  true,
		TypeParams: []jtype.TypeParam{{Name: "E", Bounds: []jtype.Type{cls("java/lang/Throwable")}}},
		Methods: []jtype.Method{{
			Name:       "toResponse",
			Descriptor: "(Ljava/lang/Throwable;)Ljakarta/ws/rs/core/Response;",
		}},
	})
	reg.MustRegister(&jtype.Class{
		Name:       contextResolver,
		Interface:  true,
		TypeParams: []jtype.TypeParam{{Name: "T"}},
		Methods: []jtype.Method{{
			Name:       "getContext",
			Descriptor: "(Ljava/lang/Class;)Ljava/lang/Object;",
		}},
	})
	reg.MustRegister(&jtype.Class{
		Name:       bodyWriter,
		Interface:  true,
		TypeParams: []jtype.TypeParam{{Name: "T"}},
		Methods: []jtype.Method{{
			Name:       "writeTo",
			Descriptor: "(ILjava/io/DataOutput;)V",
			Exceptions: []string{"java/io/IOException"},
		}},
	})
	reg.MustRegister(&jtype.Class{
		Name:       bodyReader,
		Interface:  true,
		TypeParams: []jtype.TypeParam{{Name: "T"}},
		Methods: []jtype.Method{{
			Name:       "readFrom",
			Descriptor: "(Ljava/io/DataInput;)I",
			Exceptions: []string{"java/io/IOException"},
		}},
	})

	reg.MustRegister(&jtype.Class{
		Name:       "com/acme/rest/NpeMapper",
		Interfaces: []jtype.Type{pt(exceptionMapper, cls("java/lang/NullPointerException"))},
		Annotations: []jtype.Annotation{
			{
				Type: "Ljakarta/ws/rs/Path;",
				Elements: []jtype.Element{
					{Name: "value", Value: jtype.StringElement("boo")},
				},
			},
			{
				// Meaningful only on the concrete component class; must not
				// be copied to the proxy.
				Type: "Lorg/osgi/service/component/propertytypes/ServiceRanking;",
				Elements: []jtype.Element{
					{Name: "value", Value: jtype.IntElement(7)},
				},
			},
		},
	})
	reg.MustRegister(&jtype.Class{
		Name:       "com/acme/rest/RawMapper",
		Interfaces: []jtype.Type{cls(exceptionMapper)},
	})
	reg.MustRegister(&jtype.Class{
		Name:       "com/acme/rest/ThrowableMapper",
		TypeParams: []jtype.TypeParam{{Name: "T", Bounds: []jtype.Type{cls("java/lang/Throwable")}}},
		Interfaces: []jtype.Type{pt(exceptionMapper, tv("T"))},
	})
	reg.MustRegister(&jtype.Class{
		Name: "com/acme/rest/IntCodec",
		Interfaces: []jtype.Type{
			pt(bodyWriter, cls("java/lang/Integer")),
			pt(bodyReader, cls("java/lang/Integer")),
		},
	})

	reg.MustRegister(&jtype.Class{
		Name:      "com/acme/io/Sink",
		Interface: true,
		Methods:   []jtype.Method{{Name: "close", Descriptor: "()V"}},
	})
	reg.MustRegister(&jtype.Class{
		Name:      "com/acme/io/Drain",
		Interface: true,
		Methods:   []jtype.Method{{Name: "close", Descriptor: "()V"}},
	})
	reg.MustRegister(&jtype.Class{
		Name:       "com/acme/io/Pipe",
		Interfaces: []jtype.Type{cls("com/acme/io/Sink"), cls("com/acme/io/Drain")},
	})

	return reg
}

func generate(t *testing.T, reg *jtype.Registry, delegate string, contracts ...string) *classfile.ClassFile {
	t.Helper()
	data, err := New(reg).Generate("com/acme/rest/GeneratedProxy", delegate, contracts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	return cf
}

func TestGenerateStructure(t *testing.T) {
	reg := testRegistry(t)
	cf := generate(t, reg, "com/acme/rest/NpeMapper", exceptionMapper)

	name, err := cf.ClassName()
	if err != nil {
		t.Fatal(err)
	}
	if name != "com/acme/rest/GeneratedProxy" {
		t.Errorf("class name: got %s", name)
	}
	if cf.SuperClassName() != "java/lang/Object" {
		t.Errorf("super: got %s", cf.SuperClassName())
	}
	if cf.MajorVersion != classfile.MajorJava11 {
		t.Errorf("major version: got %d, want %d", cf.MajorVersion, classfile.MajorJava11)
	}
	if cf.AccessFlags&classfile.AccPublic == 0 {
		t.Errorf("access flags 0x%04x missing ACC_PUBLIC", cf.AccessFlags)
	}

	ifaces, err := cf.InterfaceNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(ifaces) != 1 || ifaces[0] != exceptionMapper {
		t.Errorf("interfaces: got %v", ifaces)
	}

	if len(cf.Fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(cf.Fields))
	}
	f := cf.Fields[0]
	if f.Name != "delegateSupplier" || f.Descriptor != "Ljava/util/function/Supplier;" {
		t.Errorf("field: got %s %s", f.Name, f.Descriptor)
	}
	if f.AccessFlags != classfile.AccPrivate|classfile.AccFinal {
		t.Errorf("field flags: got 0x%04x", f.AccessFlags)
	}

	if cf.FindMethod("<init>", "(Ljava/util/function/Supplier;)V") == nil {
		t.Error("constructor (Ljava/util/function/Supplier;)V not found")
	}
	fwd := cf.FindMethod("toResponse", "(Ljava/lang/Throwable;)Ljakarta/ws/rs/core/Response;")
	if fwd == nil {
		t.Fatal("forwarding method toResponse not found")
	}
	if fwd.Code == nil {
		t.Error("forwarding method has no Code attribute")
	}

	sig, ok := cf.Signature()
	if !ok {
		t.Fatal("Signature attribute missing")
	}
	want := "Ljava/lang/Object;Ljakarta/ws/rs/ext/ExceptionMapper<Ljava/lang/NullPointerException;>;"
	if sig != want {
		t.Errorf("signature: got %s, want %s", sig, want)
	}
}

func TestGenerateRawContractOmitsSignature(t *testing.T) {
	reg := testRegistry(t)
	cf := generate(t, reg, "com/acme/rest/RawMapper", exceptionMapper)

	if sig, ok := cf.Signature(); ok {
		t.Errorf("raw proxy carries Signature %q, want none", sig)
	}
}

func TestGenerateOpenVariable(t *testing.T) {
	reg := testRegistry(t)
	cf := generate(t, reg, "com/acme/rest/ThrowableMapper", exceptionMapper)

	sig, ok := cf.Signature()
	if !ok {
		t.Fatal("Signature attribute missing")
	}
	want := "<T:Ljava/lang/Throwable;>Ljava/lang/Object;Ljakarta/ws/rs/ext/ExceptionMapper<TT;>;"
	if sig != want {
		t.Errorf("got %s, want %s", sig, want)
	}
}

func TestGenerateAnnotationsCopied(t *testing.T) {
	reg := testRegistry(t)
	cf := generate(t, reg, "com/acme/rest/NpeMapper", exceptionMapper)

	data, ok := cf.Attribute(classfile.RuntimeVisibleAnnotations)
	if !ok {
		t.Fatal("RuntimeVisibleAnnotations missing")
	}
	anns, err := classfile.DecodeAnnotations(cf.ConstantPool, data)
	if err != nil {
		t.Fatal(err)
	}
	if len(anns) != 1 {
		t.Fatalf("got %d annotations, want 1", len(anns))
	}
	a := anns[0]
	if a.Type != "Ljakarta/ws/rs/Path;" {
		t.Errorf("type: got %s", a.Type)
	}
	if len(a.Elements) != 1 || a.Elements[0].Name != "value" || a.Elements[0].Value.String != "boo" {
		t.Errorf("elements: got %+v", a.Elements)
	}
}

func TestGenerateMultiContractOrder(t *testing.T) {
	reg := testRegistry(t)

	t.Run("caller order kept", func(t *testing.T) {
		cf := generate(t, reg, "com/acme/rest/IntCodec", bodyWriter, bodyReader)
		ifaces, err := cf.InterfaceNames()
		if err != nil {
			t.Fatal(err)
		}
		if len(ifaces) != 2 || ifaces[0] != bodyWriter || ifaces[1] != bodyReader {
			t.Errorf("got %v, want [%s %s]", ifaces, bodyWriter, bodyReader)
		}
		if cf.FindMethod("writeTo", "(ILjava/io/DataOutput;)V") == nil {
			t.Error("writeTo not found")
		}
		if cf.FindMethod("readFrom", "(Ljava/io/DataInput;)I") == nil {
			t.Error("readFrom not found")
		}
	})

	t.Run("reversed order reversed", func(t *testing.T) {
		cf := generate(t, reg, "com/acme/rest/IntCodec", bodyReader, bodyWriter)
		ifaces, err := cf.InterfaceNames()
		if err != nil {
			t.Fatal(err)
		}
		if len(ifaces) != 2 || ifaces[0] != bodyReader || ifaces[1] != bodyWriter {
			t.Errorf("got %v, want [%s %s]", ifaces, bodyReader, bodyWriter)
		}
	})

	t.Run("dotted names accepted", func(t *testing.T) {
		data, err := New(reg).Generate("com.acme.rest.GeneratedProxy",
			"com.acme.rest.IntCodec", []string{"jakarta.ws.rs.ext.MessageBodyWriter"})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		cf, err := classfile.ParseBytes(data)
		if err != nil {
			t.Fatal(err)
		}
		name, err := cf.ClassName()
		if err != nil {
			t.Fatal(err)
		}
		if name != "com/acme/rest/GeneratedProxy" {
			t.Errorf("got %s", name)
		}
	})
}

func TestGenerateSharedMethodEmittedOnce(t *testing.T) {
	reg := testRegistry(t)
	cf := generate(t, reg, "com/acme/io/Pipe", "com/acme/io/Sink", "com/acme/io/Drain")

	count := 0
	for _, m := range cf.Methods {
		if m.Name == "close" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("got %d close methods, want 1", count)
	}
}

func TestGenerateExceptionsAttribute(t *testing.T) {
	reg := testRegistry(t)
	cf := generate(t, reg, "com/acme/rest/IntCodec", bodyWriter)

	m := cf.FindMethod("writeTo", "(ILjava/io/DataOutput;)V")
	if m == nil {
		t.Fatal("writeTo not found")
	}
	data, ok := m.Attribute("Exceptions")
	if !ok {
		t.Fatal("Exceptions attribute missing")
	}
	names, err := classfile.DecodeExceptions(cf.ConstantPool, data)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "java/io/IOException" {
		t.Errorf("got %v, want [java/io/IOException]", names)
	}
}

func TestGenerateErrors(t *testing.T) {
	reg := testRegistry(t)
	f := New(reg)

	t.Run("no contracts", func(t *testing.T) {
		_, err := f.Generate("p/X", "com/acme/rest/NpeMapper", nil)
		if !errors.Is(err, ErrNoContracts) {
			t.Errorf("got %v, want ErrNoContracts", err)
		}
	})

	t.Run("unknown delegate", func(t *testing.T) {
		_, err := f.Generate("p/X", "com/acme/rest/Missing", []string{exceptionMapper})
		if !errors.Is(err, jtype.ErrUnknownClass) {
			t.Errorf("got %v, want ErrUnknownClass", err)
		}
	})

	t.Run("unknown contract", func(t *testing.T) {
		_, err := f.Generate("p/X", "com/acme/rest/NpeMapper", []string{"jakarta/ws/rs/ext/Missing"})
		if !errors.Is(err, jtype.ErrUnknownClass) {
			t.Errorf("got %v, want ErrUnknownClass", err)
		}
	})

	t.Run("contract is not an interface", func(t *testing.T) {
		_, err := f.Generate("p/X", "com/acme/rest/NpeMapper", []string{"com/acme/rest/RawMapper"})
		if err == nil {
			t.Error("got nil, want error")
		}
	})

	t.Run("contract not implemented", func(t *testing.T) {
		_, err := f.Generate("p/X", "com/acme/rest/NpeMapper", []string{contextResolver})
		if !errors.Is(err, jtype.ErrContractNotImplemented) {
			t.Errorf("got %v, want ErrContractNotImplemented", err)
		}
	})
}
