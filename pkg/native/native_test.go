package native

import (
	"bytes"
	"testing"

	"github.com/classkit/extproxy/pkg/vm"
)

func TestSupplier(t *testing.T) {
	t.Run("fixed value", func(t *testing.T) {
		s := SupplierOf("delegate")
		v, err := s.Methods["get()Ljava/lang/Object;"](nil)
		if err != nil {
			t.Fatal(err)
		}
		if v.Ref != "delegate" {
			t.Errorf("got %v, want delegate", v.Ref)
		}
	})

	t.Run("accessor called per get", func(t *testing.T) {
		n := 0
		s := Supplier(func() vm.Value {
			n++
			return vm.IntValue(int32(n))
		})
		get := s.Methods["get()Ljava/lang/Object;"]

		first, _ := get(nil)
		second, _ := get(nil)
		if first.Int != 1 || second.Int != 2 {
			t.Errorf("got %d then %d, want 1 then 2", first.Int, second.Int)
		}
	})
}

func TestDataStreams(t *testing.T) {
	t.Run("writeUTF framing", func(t *testing.T) {
		var buf bytes.Buffer
		out := DataOutput(&buf)
		_, err := out.Methods["writeUTF(Ljava/lang/String;)V"]([]vm.Value{vm.RefValue("2a")})
		if err != nil {
			t.Fatal(err)
		}
		want := []byte{0, 2, '2', 'a'}
		if !bytes.Equal(buf.Bytes(), want) {
			t.Errorf("got % x, want % x", buf.Bytes(), want)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		var buf bytes.Buffer
		out := DataOutput(&buf)
		if _, err := out.Methods["writeUTF(Ljava/lang/String;)V"]([]vm.Value{vm.RefValue("hello")}); err != nil {
			t.Fatal(err)
		}

		in := DataInput(&buf)
		v, err := in.Methods["readUTF()Ljava/lang/String;"](nil)
		if err != nil {
			t.Fatal(err)
		}
		if v.Ref != "hello" {
			t.Errorf("got %v, want hello", v.Ref)
		}
	})

	t.Run("short read fails", func(t *testing.T) {
		in := DataInput(bytes.NewReader([]byte{0, 5, 'a'}))
		if _, err := in.Methods["readUTF()Ljava/lang/String;"](nil); err == nil {
			t.Error("got nil, want error for truncated input")
		}
	})

	t.Run("writeUTF rejects non-string", func(t *testing.T) {
		var buf bytes.Buffer
		out := DataOutput(&buf)
		if _, err := out.Methods["writeUTF(Ljava/lang/String;)V"]([]vm.Value{vm.IntValue(1)}); err == nil {
			t.Error("got nil, want error")
		}
	})
}

func TestBoxes(t *testing.T) {
	i := Integer(418)
	v, err := i.Methods["intValue()I"](nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Int != 418 {
		t.Errorf("got %d, want 418", v.Int)
	}

	d := Double(42.0)
	v, err = d.Methods["doubleValue()D"](nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Float != 42.0 {
		t.Errorf("got %g, want 42", v.Float)
	}
}
