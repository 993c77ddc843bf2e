package vm

import (
	"fmt"
	"sync"

	"github.com/classkit/extproxy/pkg/classfile"
)

// maxFrameDepth is the maximum number of nested method calls.
const maxFrameDepth = 1024

// Machine interprets classes that have been defined into it. It supports
// the instruction subset a generated proxy can contain, plus dispatch into
// NativeObject method tables so Go code can stand in for delegates and
// suppliers.
//
// Defining a class is a one-shot operation per name; defined classes are
// immutable and may be used concurrently.
type Machine struct {
	mu      sync.RWMutex
	classes map[string]*classfile.ClassFile
}

// NewMachine creates an empty Machine.
func NewMachine() *Machine {
	return &Machine{classes: make(map[string]*classfile.ClassFile)}
}

// Define loads a parsed class into the machine. Defining a second class
// under an already-taken name is refused.
func (m *Machine) Define(cf *classfile.ClassFile) error {
	name, err := cf.ClassName()
	if err != nil {
		return fmt.Errorf("defining class: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[name]; ok {
		return fmt.Errorf("class %s already defined", name)
	}
	m.classes[name] = cf
	return nil
}

// DefineBytes parses class file bytes and defines the class.
func (m *Machine) DefineBytes(data []byte) (*classfile.ClassFile, error) {
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	if err := m.Define(cf); err != nil {
		return nil, err
	}
	return cf, nil
}

func (m *Machine) class(name string) (*classfile.ClassFile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cf, ok := m.classes[name]
	return cf, ok
}

// New instantiates a defined class by running its single constructor with
// the given arguments.
func (m *Machine) New(className string, args ...Value) (*Object, error) {
	cf, ok := m.class(className)
	if !ok {
		return nil, fmt.Errorf("class %s not defined", className)
	}
	var init *classfile.MethodInfo
	for i := range cf.Methods {
		if cf.Methods[i].Name == "<init>" {
			init = &cf.Methods[i]
			break
		}
	}
	if init == nil {
		return nil, fmt.Errorf("class %s has no constructor", className)
	}

	obj := &Object{Class: cf, Fields: make(map[string]Value)}
	callArgs := append([]Value{RefValue(obj)}, args...)
	if _, err := m.executeMethod(cf, init, callArgs, 0); err != nil {
		return nil, err
	}
	return obj, nil
}

// Invoke calls a method on an instance of a defined class. Errors returned
// by native delegate methods reach the caller unchanged.
func (m *Machine) Invoke(obj *Object, name, descriptor string, args ...Value) (Value, error) {
	method := obj.Class.FindMethod(name, descriptor)
	if method == nil {
		cn, _ := obj.Class.ClassName()
		return Value{}, fmt.Errorf("method %s%s not found in class %s", name, descriptor, cn)
	}
	callArgs := append([]Value{RefValue(obj)}, args...)
	return m.executeMethod(obj.Class, method, callArgs, 0)
}

// executeMethod executes a method with the given flattened arguments
// (receiver first for instance methods) and returns its return value.
func (m *Machine) executeMethod(cf *classfile.ClassFile, method *classfile.MethodInfo, args []Value, depth int) (Value, error) {
	if method.Code == nil {
		return Value{}, fmt.Errorf("method %s has no Code attribute", method.Name)
	}
	if depth > maxFrameDepth {
		return Value{}, fmt.Errorf("stack overflow: frame depth exceeded %d", maxFrameDepth)
	}

	frame := NewFrame(method.Code.MaxLocals, method.Code.MaxStack, method.Code.Code)
	if err := bindLocals(frame, method, args); err != nil {
		return Value{}, err
	}

	for frame.PC < len(frame.Code) {
		opcode := frame.Code[frame.PC]
		frame.PC++

		retVal, hasReturn, err := m.executeInstruction(cf, frame, opcode, depth)
		if err != nil {
			return Value{}, err
		}
		if hasReturn {
			return retVal, nil
		}
	}

	// Fell off the end of the method (implicit return for void methods)
	return Value{}, nil
}

// bindLocals places the arguments into local variable slots, honoring the
// two-slot convention for long and double parameters.
func bindLocals(frame *Frame, method *classfile.MethodInfo, args []Value) error {
	d, err := classfile.ParseMethodDescriptor(method.Descriptor)
	if err != nil {
		return fmt.Errorf("method %s: %w", method.Name, err)
	}

	slot := 0
	i := 0
	if method.AccessFlags&classfile.AccStatic == 0 {
		if len(args) == 0 {
			return fmt.Errorf("method %s: missing receiver", method.Name)
		}
		frame.SetLocal(0, args[0])
		slot = 1
		i = 1
	}
	if len(args)-i != len(d.Params) {
		return fmt.Errorf("method %s%s: got %d arguments, want %d", method.Name, method.Descriptor, len(args)-i, len(d.Params))
	}
	for pi, p := range d.Params {
		frame.SetLocal(slot, args[i+pi])
		slot += classfile.Slots(p)
	}
	return nil
}

func (m *Machine) executeInstruction(cf *classfile.ClassFile, frame *Frame, opcode byte, depth int) (Value, bool, error) {
	switch {
	case opcode >= 0x1a && opcode <= 0x2d:
		// iload_n, lload_n, fload_n, dload_n, aload_n
		frame.Push(frame.GetLocal(int((opcode - 0x1a) % 4)))
		return Value{}, false, nil

	case opcode >= 0x15 && opcode <= 0x19:
		// iload, lload, fload, dload, aload with explicit slot
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
		return Value{}, false, nil
	}

	switch opcode {
	case 0x59: // dup
		v := frame.Pop()
		frame.Push(v)
		frame.Push(v)
		return Value{}, false, nil

	case 0xb4: // getfield
		return m.executeGetfield(cf, frame)

	case 0xb5: // putfield
		return m.executePutfield(cf, frame)

	case 0xb7: // invokespecial
		return m.executeInvokespecial(cf, frame, depth)

	case 0xb6: // invokevirtual
		index := frame.ReadU16()
		return m.executeInvoke(cf, frame, index, depth)

	case 0xb9: // invokeinterface
		index := frame.ReadU16()
		frame.ReadU8() // count, implied by the descriptor
		frame.ReadU8() // zero
		return m.executeInvoke(cf, frame, index, depth)

	case 0xc0: // checkcast
		return m.executeCheckcast(cf, frame)

	case 0xac, 0xad, 0xae, 0xaf, 0xb0: // ireturn, lreturn, freturn, dreturn, areturn
		return frame.Pop(), true, nil

	case 0xb1: // return
		return Value{}, true, nil
	}

	return Value{}, false, fmt.Errorf("unsupported opcode 0x%02x at pc %d", opcode, frame.PC-1)
}

func (m *Machine) executeGetfield(cf *classfile.ClassFile, frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveMemberRef(cf.ConstantPool, index)
	if err != nil {
		return Value{}, false, fmt.Errorf("getfield: %w", err)
	}

	objectRef := frame.Pop()
	if objectRef.IsNull() {
		return Value{}, false, fmt.Errorf("getfield %s: null receiver", ref.Name)
	}
	obj, ok := objectRef.Ref.(*Object)
	if !ok {
		return Value{}, false, fmt.Errorf("getfield %s: receiver is not an interpreted object", ref.Name)
	}

	val, exists := obj.Fields[ref.Name]
	if !exists {
		frame.Push(NullValue())
	} else {
		frame.Push(val)
	}
	return Value{}, false, nil
}

func (m *Machine) executePutfield(cf *classfile.ClassFile, frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveMemberRef(cf.ConstantPool, index)
	if err != nil {
		return Value{}, false, fmt.Errorf("putfield: %w", err)
	}

	value := frame.Pop()
	objectRef := frame.Pop()
	if objectRef.IsNull() {
		return Value{}, false, fmt.Errorf("putfield %s: null receiver", ref.Name)
	}
	obj, ok := objectRef.Ref.(*Object)
	if !ok {
		return Value{}, false, fmt.Errorf("putfield %s: receiver is not an interpreted object", ref.Name)
	}

	obj.Fields[ref.Name] = value
	return Value{}, false, nil
}

func (m *Machine) executeInvokespecial(cf *classfile.ClassFile, frame *Frame, depth int) (Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveMemberRef(cf.ConstantPool, index)
	if err != nil {
		return Value{}, false, fmt.Errorf("invokespecial: %w", err)
	}

	args, err := popArgs(frame, ref.Descriptor)
	if err != nil {
		return Value{}, false, fmt.Errorf("invokespecial: %w", err)
	}
	objectRef := frame.Pop() // this

	if ref.ClassName == "java/lang/Object" && ref.Name == "<init>" {
		return Value{}, false, nil
	}

	target, ok := m.class(ref.ClassName)
	if !ok {
		return Value{}, false, fmt.Errorf("invokespecial: class %s not defined", ref.ClassName)
	}
	method := target.FindMethod(ref.Name, ref.Descriptor)
	if method == nil {
		return Value{}, false, fmt.Errorf("invokespecial: method %s%s not found in %s", ref.Name, ref.Descriptor, ref.ClassName)
	}
	fullArgs := append([]Value{objectRef}, args...)
	if _, err := m.executeMethod(target, method, fullArgs, depth+1); err != nil {
		return Value{}, false, err
	}
	return Value{}, false, nil
}

// executeInvoke handles invokevirtual and invokeinterface. Native receivers
// dispatch through their method table; interpreted receivers dispatch into
// the method found on their own class.
func (m *Machine) executeInvoke(cf *classfile.ClassFile, frame *Frame, index uint16, depth int) (Value, bool, error) {
	ref, err := classfile.ResolveMemberRef(cf.ConstantPool, index)
	if err != nil {
		return Value{}, false, fmt.Errorf("invoke: %w", err)
	}

	args, err := popArgs(frame, ref.Descriptor)
	if err != nil {
		return Value{}, false, fmt.Errorf("invoke %s.%s: %w", ref.ClassName, ref.Name, err)
	}
	objectRef := frame.Pop()
	if objectRef.IsNull() {
		return Value{}, false, fmt.Errorf("invoke %s.%s: null receiver", ref.ClassName, ref.Name)
	}

	voidReturn := ref.Descriptor[len(ref.Descriptor)-1] == 'V'

	switch recv := objectRef.Ref.(type) {
	case *NativeObject:
		fn, ok := recv.Methods[ref.Name+ref.Descriptor]
		if !ok {
			return Value{}, false, fmt.Errorf("native object %s has no method %s%s", recv.Name, ref.Name, ref.Descriptor)
		}
		ret, err := fn(args)
		if err != nil {
			// Delegate failures pass through unwrapped.
			return Value{}, false, err
		}
		if !voidReturn {
			frame.Push(ret)
		}
		return Value{}, false, nil

	case *Object:
		method := recv.Class.FindMethod(ref.Name, ref.Descriptor)
		if method == nil {
			return Value{}, false, fmt.Errorf("invoke: method %s%s not found in %s", ref.Name, ref.Descriptor, recv.ClassName())
		}
		fullArgs := append([]Value{objectRef}, args...)
		ret, err := m.executeMethod(recv.Class, method, fullArgs, depth+1)
		if err != nil {
			return Value{}, false, err
		}
		if !voidReturn {
			frame.Push(ret)
		}
		return Value{}, false, nil
	}

	return Value{}, false, fmt.Errorf("invoke %s.%s: unsupported receiver %T", ref.ClassName, ref.Name, objectRef.Ref)
}

func (m *Machine) executeCheckcast(cf *classfile.ClassFile, frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	className, err := classfile.GetClassName(cf.ConstantPool, index)
	if err != nil {
		return Value{}, false, fmt.Errorf("checkcast: %w", err)
	}

	v := frame.Pop()
	if v.IsNull() {
		frame.Push(v)
		return Value{}, false, nil
	}
	if obj, ok := v.Ref.(*Object); ok {
		if !implements(obj.Class, className) {
			return Value{}, false, fmt.Errorf("checkcast: %s is not a %s", obj.ClassName(), className)
		}
	}
	// Native objects carry no class hierarchy; the cast is trusted and any
	// mismatch surfaces as a missing native method on dispatch.
	frame.Push(v)
	return Value{}, false, nil
}

func implements(cf *classfile.ClassFile, className string) bool {
	if name, err := cf.ClassName(); err == nil && name == className {
		return true
	}
	names, err := cf.InterfaceNames()
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == className {
			return true
		}
	}
	return false
}

// popArgs pops the declared parameters off the stack, leaving the receiver.
func popArgs(frame *Frame, descriptor string) ([]Value, error) {
	d, err := classfile.ParseMethodDescriptor(descriptor)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(d.Params))
	for i := len(args) - 1; i >= 0; i-- {
		args[i] = frame.Pop()
	}
	return args, nil
}
