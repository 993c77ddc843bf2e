// Package native provides Go-backed objects for runtime classes the
// interpreter does not define itself: the delegate accessor, boxed
// primitives and simple data streams.
package native

import (
	"github.com/classkit/extproxy/pkg/vm"
)

// Supplier wraps an accessor function as a java/util/function/Supplier.
// The function is called on every get, so the value it yields may change
// between calls.
func Supplier(get func() vm.Value) *vm.NativeObject {
	return vm.NewNativeObject("java/util/function/Supplier").
		Bind("get", "()Ljava/lang/Object;", func(args []vm.Value) (vm.Value, error) {
			return get(), nil
		})
}

// SupplierOf returns a Supplier that always yields the given reference.
func SupplierOf(ref interface{}) *vm.NativeObject {
	v := vm.RefValue(ref)
	return Supplier(func() vm.Value { return v })
}
