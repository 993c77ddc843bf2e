package proxy

import (
	"testing"

	"github.com/classkit/extproxy/pkg/jtype"
)

func TestConstructorBytecode(t *testing.T) {
	reg := testRegistry(t)
	cf := generate(t, reg, "com/acme/rest/NpeMapper", exceptionMapper)

	init := cf.FindMethod("<init>", "(Ljava/util/function/Supplier;)V")
	if init == nil {
		t.Fatal("constructor not found")
	}
	code := init.Code
	if code.MaxStack != 2 || code.MaxLocals != 2 {
		t.Errorf("got maxStack=%d maxLocals=%d, want 2/2", code.MaxStack, code.MaxLocals)
	}
	// aload_0; invokespecial; aload_0; aload_1; putfield; return
	if len(code.Code) != 10 {
		t.Fatalf("got %d code bytes, want 10", len(code.Code))
	}
	if code.Code[0] != 0x2a || code.Code[1] != 0xb7 {
		t.Errorf("prologue: got % x", code.Code[:2])
	}
	if code.Code[9] != 0xb1 {
		t.Errorf("epilogue: got 0x%02x, want return", code.Code[9])
	}
}

func TestForwardingMethodFrameSizes(t *testing.T) {
	reg := testRegistry(t)
	reg.MustRegister(&jtype.Class{
		Name:      "com/acme/io/Wide",
		Interface: true,
		Methods: []jtype.Method{{
			Name:       "mix",
			Descriptor: "(JDLjava/lang/String;)J",
		}},
	})
	reg.MustRegister(&jtype.Class{
		Name:       "com/acme/io/WideImpl",
		Interfaces: []jtype.Type{cls("com/acme/io/Wide")},
	})

	cf := generate(t, reg, "com/acme/io/WideImpl", "com/acme/io/Wide")
	m := cf.FindMethod("mix", "(JDLjava/lang/String;)J")
	if m == nil {
		t.Fatal("mix not found")
	}
	// this + long(2) + double(2) + ref(1)
	if m.Code.MaxLocals != 6 {
		t.Errorf("maxLocals: got %d, want 6", m.Code.MaxLocals)
	}
	if m.Code.MaxStack != 6 {
		t.Errorf("maxStack: got %d, want 6", m.Code.MaxStack)
	}
	if last := m.Code.Code[len(m.Code.Code)-1]; last != 0xad {
		t.Errorf("got 0x%02x, want lreturn", last)
	}
}

func TestForwardingMethodFetchesSupplierFirst(t *testing.T) {
	reg := testRegistry(t)
	cf := generate(t, reg, "com/acme/rest/NpeMapper", exceptionMapper)

	m := cf.FindMethod("toResponse", "(Ljava/lang/Throwable;)Ljakarta/ws/rs/core/Response;")
	if m == nil {
		t.Fatal("toResponse not found")
	}
	code := m.Code.Code
	// aload_0; getfield supplier; invokeinterface get; checkcast contract
	if code[0] != 0x2a || code[1] != 0xb4 {
		t.Errorf("prologue: got % x", code[:2])
	}
	if code[4] != 0xb9 {
		t.Errorf("got 0x%02x at 4, want invokeinterface", code[4])
	}
	if code[9] != 0xc0 {
		t.Errorf("got 0x%02x at 9, want checkcast", code[9])
	}
	if last := code[len(code)-1]; last != 0xb0 {
		t.Errorf("got 0x%02x, want areturn", last)
	}
}
