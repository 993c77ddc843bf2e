package vm

import "github.com/classkit/extproxy/pkg/classfile"

// Object represents an instance of a class defined into a Machine.
type Object struct {
	Class  *classfile.ClassFile
	Fields map[string]Value
}

// ClassName returns the internal name of the object's class.
func (o *Object) ClassName() string {
	name, err := o.Class.ClassName()
	if err != nil {
		return ""
	}
	return name
}

// NativeFunc is a Go implementation of a method, invoked when bytecode
// dispatches to a NativeObject. Errors returned here propagate to the
// original Invoke caller unchanged.
type NativeFunc func(args []Value) (Value, error)

// NativeObject is a Go-side object reachable from interpreted bytecode.
// Method lookup is by name plus erased descriptor.
type NativeObject struct {
	Name    string
	Methods map[string]NativeFunc
}

// NewNativeObject creates a named native object with an empty method table.
func NewNativeObject(name string) *NativeObject {
	return &NativeObject{Name: name, Methods: make(map[string]NativeFunc)}
}

// Bind registers fn under the method's name and descriptor.
func (n *NativeObject) Bind(name, descriptor string, fn NativeFunc) *NativeObject {
	n.Methods[name+descriptor] = fn
	return n
}
