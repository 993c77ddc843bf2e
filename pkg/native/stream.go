package native

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/classkit/extproxy/pkg/vm"
)

// DataOutput wraps a buffer as a java/io/DataOutput. Strings are written
// in the modified-UTF framing: a big-endian 2-byte length followed by the
// bytes.
func DataOutput(buf *bytes.Buffer) *vm.NativeObject {
	return vm.NewNativeObject("java/io/DataOutput").
		Bind("writeUTF", "(Ljava/lang/String;)V", func(args []vm.Value) (vm.Value, error) {
			s, ok := args[0].Ref.(string)
			if !ok {
				return vm.Value{}, fmt.Errorf("writeUTF: argument is not a string")
			}
			if len(s) > 0xffff {
				return vm.Value{}, fmt.Errorf("writeUTF: string of %d bytes too long", len(s))
			}
			var n [2]byte
			binary.BigEndian.PutUint16(n[:], uint16(len(s)))
			buf.Write(n[:])
			buf.WriteString(s)
			return vm.Value{}, nil
		})
}

// DataInput wraps a reader as a java/io/DataInput reading the framing
// DataOutput writes.
func DataInput(r io.Reader) *vm.NativeObject {
	return vm.NewNativeObject("java/io/DataInput").
		Bind("readUTF", "()Ljava/lang/String;", func(args []vm.Value) (vm.Value, error) {
			var n [2]byte
			if _, err := io.ReadFull(r, n[:]); err != nil {
				return vm.Value{}, fmt.Errorf("readUTF: %w", err)
			}
			b := make([]byte, binary.BigEndian.Uint16(n[:]))
			if _, err := io.ReadFull(r, b); err != nil {
				return vm.Value{}, fmt.Errorf("readUTF: %w", err)
			}
			return vm.RefValue(string(b)), nil
		})
}
