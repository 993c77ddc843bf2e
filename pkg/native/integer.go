package native

import (
	"github.com/classkit/extproxy/pkg/vm"
)

// Integer wraps an int32 as a java/lang/Integer box.
func Integer(v int32) *vm.NativeObject {
	return vm.NewNativeObject("java/lang/Integer").
		Bind("intValue", "()I", func(args []vm.Value) (vm.Value, error) {
			return vm.IntValue(v), nil
		})
}

// Double wraps a float64 as a java/lang/Double box.
func Double(v float64) *vm.NativeObject {
	return vm.NewNativeObject("java/lang/Double").
		Bind("doubleValue", "()D", func(args []vm.Value) (vm.Value, error) {
			return vm.DoubleValue(v), nil
		})
}
