package jsapi

import (
	"github.com/wippyai/wasm-jsapi/jsval"
	"github.com/wippyai/wasm-jsapi/wasm"
)

// namespace is the WebAssembly object of a runtime together with the
// prototypes its wrapper objects are created with.
type namespace struct {
	rt  *Runtime
	obj *jsval.Object

	functionCtor  *jsval.Object
	functionProto *jsval.Object
	moduleProto   *jsval.Object
	instanceProto *jsval.Object
	tableProto    *jsval.Object
	globalProto   *jsval.Object
	memoryProto   *jsval.Object
}

func newNamespace(rt *Runtime) *namespace {
	ns := &namespace{rt: rt, obj: jsval.NewObjectWithClass("WebAssembly", jsval.ObjectPrototype)}

	moduleCtor := ns.defineClass("Module", 1, jsval.ObjectPrototype, ns.constructModule, &ns.moduleProto)
	method(moduleCtor, "exports", 1, func(_ jsval.Value, args []jsval.Value) (jsval.Value, error) {
		return ModuleExports(arg(args, 0))
	})
	method(moduleCtor, "imports", 1, func(_ jsval.Value, args []jsval.Value) (jsval.Value, error) {
		return ModuleImports(arg(args, 0))
	})
	method(moduleCtor, "customSections", 2, func(_ jsval.Value, args []jsval.Value) (jsval.Value, error) {
		m := ModuleOf(arg(args, 0))
		if m == nil {
			return nil, typeError("%s is not a WebAssembly.Module", jsval.Format(arg(args, 0)))
		}
		name, err := jsval.ToString(arg(args, 1))
		if err != nil {
			return nil, err
		}
		return m.CustomSections(name), nil
	})

	ns.defineClass("Instance", 1, jsval.ObjectPrototype, ns.constructInstance, &ns.instanceProto)
	getter(ns.instanceProto, "exports", func(this jsval.Value) (jsval.Value, error) {
		inst := InstanceOf(this)
		if inst == nil {
			return nil, typeError("%s is not a WebAssembly.Instance", jsval.Format(this))
		}
		return inst.exports, nil
	})

	ns.installFunction()
	ns.installTable()
	ns.installGlobal()
	ns.installMemory()

	method(ns.obj, "validate", 1, func(_ jsval.Value, args []jsval.Value) (jsval.Value, error) {
		b, ok := BytesOf(arg(args, 0))
		if !ok {
			return nil, typeError("%s is not a buffer source", jsval.Format(arg(args, 0)))
		}
		desc, err := wasm.ParseModule(b)
		if err == nil {
			err = desc.Validate()
		}
		return jsval.Bool(err == nil), nil
	})
	return ns
}

// Namespace returns the WebAssembly object of the runtime.
func (rt *Runtime) Namespace() *jsval.Object {
	return rt.ns.obj
}

// defineClass installs a constructor on the namespace. The constructor
// throws when called without new. Its prototype object is stored in *proto.
func (ns *namespace) defineClass(name string, length int, protoParent *jsval.Object, construct jsval.ConstructFunc, proto **jsval.Object) *jsval.Object {
	ctor := jsval.NewConstructor(name, length, nil, construct)
	p := jsval.NewObjectWithClass(name, protoParent)
	_ = ctor.DefineProperty("prototype", jsval.Property{Value: p})
	_ = p.DefineProperty("constructor", jsval.Property{Value: ctor, Writable: true, Configurable: true})
	_ = ns.obj.DefineProperty(name, jsval.Property{Value: ctor, Writable: true, Configurable: true})
	*proto = p
	return ctor
}

func method(o *jsval.Object, name string, length int, fn jsval.NativeFunc) {
	_ = o.DefineProperty(name, jsval.Property{
		Value:        jsval.NewFunction(name, length, fn),
		Writable:     true,
		Configurable: true,
	})
}

func getter(o *jsval.Object, name string, get func(this jsval.Value) (jsval.Value, error)) {
	_ = jsval.DefineGetter(o, name, get)
}

// arg returns args[i], or undefined when fewer arguments were passed.
func arg(args []jsval.Value, i int) jsval.Value {
	if i < len(args) {
		return args[i]
	}
	return jsval.Undefined
}

// optionalArg returns args[i], or nil when it was not passed or is
// undefined.
func optionalArg(args []jsval.Value, i int) jsval.Value {
	if i >= len(args) || jsval.IsUndefined(args[i]) {
		return nil
	}
	return args[i]
}

func (ns *namespace) constructModule(args []jsval.Value, _ *jsval.Object) (jsval.Value, error) {
	b, ok := BytesOf(arg(args, 0))
	if !ok {
		return nil, typeError("first argument must be a buffer source, got %s", jsval.Format(arg(args, 0)))
	}
	m, err := ns.rt.Compile(ns.rt.ctx, b)
	if err != nil {
		return nil, err
	}
	return m.obj, nil
}

func (ns *namespace) constructInstance(args []jsval.Value, _ *jsval.Object) (jsval.Value, error) {
	m := ModuleOf(arg(args, 0))
	if m == nil {
		return nil, typeError("first argument must be a WebAssembly.Module, got %s", jsval.Format(arg(args, 0)))
	}
	imports := arg(args, 1)
	if !jsval.IsUndefined(imports) && !jsval.IsObject(imports) {
		return nil, typeError("import object must be an object, got %s", jsval.Format(imports))
	}
	inst, err := ns.rt.Instantiate(ns.rt.ctx, m, imports)
	if err != nil {
		return nil, err
	}
	return inst.obj, nil
}

func (ns *namespace) installFunction() {
	construct := func(args []jsval.Value, _ *jsval.Object) (jsval.Value, error) {
		f, err := ns.rt.NewFunction(ns.rt.ctx, arg(args, 0), arg(args, 1))
		if err != nil {
			return nil, err
		}
		return f.obj, nil
	}
	ctor := jsval.NewConstructor("Function", 2, nil, construct)
	proto := jsval.NewObjectWithClass("Function", jsval.FunctionPrototype)
	_ = ctor.DefineProperty("prototype", jsval.Property{Value: proto})
	_ = proto.DefineProperty("constructor", jsval.Property{Value: ctor, Writable: true, Configurable: true})
	_ = ns.obj.DefineProperty("Function", jsval.DataProperty(ctor))

	typeOf := func(v jsval.Value) (jsval.Value, error) {
		f := FunctionOf(v)
		if f == nil {
			return nil, typeError("%s is not a WebAssembly.Function", jsval.Format(v))
		}
		return f.Type(), nil
	}
	method(ctor, "type", 1, func(_ jsval.Value, args []jsval.Value) (jsval.Value, error) {
		return typeOf(arg(args, 0))
	})
	method(proto, "type", 0, func(this jsval.Value, _ []jsval.Value) (jsval.Value, error) {
		return typeOf(this)
	})
	ns.functionCtor = ctor
	ns.functionProto = proto
}

// newFunctionObject creates the callable object of f. name is the
// function's name property; length is its parameter count.
func (ns *namespace) newFunctionObject(f *Function, name string) *jsval.Object {
	o := jsval.NewFunction(name, len(f.sig.Params), func(_ jsval.Value, args []jsval.Value) (jsval.Value, error) {
		return f.Call(args...)
	})
	o.SetProto(ns.functionProto)
	o.SetInternal(f)
	return o
}

func (ns *namespace) newModuleObject(m *Module) *jsval.Object {
	return ns.wrap("Module", ns.moduleProto, m)
}

func (ns *namespace) newInstanceObject(inst *Instance) *jsval.Object {
	return ns.wrap("Instance", ns.instanceProto, inst)
}

func (ns *namespace) newTableObject(t *Table) *jsval.Object {
	return ns.wrap("Table", ns.tableProto, t)
}

func (ns *namespace) newGlobalObject(g *Global) *jsval.Object {
	return ns.wrap("Global", ns.globalProto, g)
}

func (ns *namespace) newMemoryObject(m *Memory) *jsval.Object {
	return ns.wrap("Memory", ns.memoryProto, m)
}

func (ns *namespace) wrap(class string, proto *jsval.Object, internal any) *jsval.Object {
	o := jsval.NewObjectWithClass(class, proto)
	o.SetInternal(internal)
	return o
}

func (ns *namespace) installTable() {
	ns.defineClass("Table", 1, jsval.ObjectPrototype, func(args []jsval.Value, _ *jsval.Object) (jsval.Value, error) {
		t, err := ns.rt.NewTable(ns.rt.ctx, arg(args, 0), optionalArg(args, 1))
		if err != nil {
			return nil, err
		}
		return t.obj, nil
	}, &ns.tableProto)

	this := func(v jsval.Value) (*Table, error) {
		if t := TableOf(v); t != nil {
			return t, nil
		}
		return nil, typeError("%s is not a WebAssembly.Table", jsval.Format(v))
	}
	getter(ns.tableProto, "length", func(v jsval.Value) (jsval.Value, error) {
		t, err := this(v)
		if err != nil {
			return nil, err
		}
		return jsval.Number(t.Length()), nil
	})
	method(ns.tableProto, "get", 1, func(v jsval.Value, args []jsval.Value) (jsval.Value, error) {
		t, err := this(v)
		if err != nil {
			return nil, err
		}
		idx, err := enforceRange(arg(args, 0), "index")
		if err != nil {
			return nil, err
		}
		return t.Get(idx)
	})
	method(ns.tableProto, "set", 1, func(v jsval.Value, args []jsval.Value) (jsval.Value, error) {
		t, err := this(v)
		if err != nil {
			return nil, err
		}
		idx, err := enforceRange(arg(args, 0), "index")
		if err != nil {
			return nil, err
		}
		return jsval.Undefined, t.Set(idx, optionalArg(args, 1))
	})
	method(ns.tableProto, "grow", 1, func(v jsval.Value, args []jsval.Value) (jsval.Value, error) {
		t, err := this(v)
		if err != nil {
			return nil, err
		}
		delta, err := enforceRange(arg(args, 0), "delta")
		if err != nil {
			return nil, err
		}
		prev, err := t.Grow(delta, optionalArg(args, 1))
		if err != nil {
			return nil, err
		}
		return jsval.Number(prev), nil
	})
	method(ns.tableProto, "type", 0, func(v jsval.Value, _ []jsval.Value) (jsval.Value, error) {
		t, err := this(v)
		if err != nil {
			return nil, err
		}
		return t.Type(), nil
	})
}

func (ns *namespace) installGlobal() {
	ns.defineClass("Global", 1, jsval.ObjectPrototype, func(args []jsval.Value, _ *jsval.Object) (jsval.Value, error) {
		var value jsval.Value
		if len(args) > 1 {
			value = args[1]
		}
		g, err := ns.rt.NewGlobal(ns.rt.ctx, arg(args, 0), value)
		if err != nil {
			return nil, err
		}
		return g.obj, nil
	}, &ns.globalProto)

	this := func(v jsval.Value) (*Global, error) {
		if g := GlobalOf(v); g != nil {
			return g, nil
		}
		return nil, typeError("%s is not a WebAssembly.Global", jsval.Format(v))
	}
	value := func(v jsval.Value) (jsval.Value, error) {
		g, err := this(v)
		if err != nil {
			return nil, err
		}
		if g.typ.ValType == wasm.ValV128 {
			return nil, typeError("v128 globals have no JS value")
		}
		return g.Value(), nil
	}
	getter(ns.globalProto, "value", value)
	method(ns.globalProto, "valueOf", 0, func(v jsval.Value, _ []jsval.Value) (jsval.Value, error) {
		return value(v)
	})
	method(ns.globalProto, "type", 0, func(v jsval.Value, _ []jsval.Value) (jsval.Value, error) {
		g, err := this(v)
		if err != nil {
			return nil, err
		}
		return g.Type(), nil
	})
}

func (ns *namespace) installMemory() {
	ns.defineClass("Memory", 1, jsval.ObjectPrototype, func(args []jsval.Value, _ *jsval.Object) (jsval.Value, error) {
		m, err := ns.rt.NewMemory(ns.rt.ctx, arg(args, 0))
		if err != nil {
			return nil, err
		}
		return m.obj, nil
	}, &ns.memoryProto)

	this := func(v jsval.Value) (*Memory, error) {
		if m := MemoryOf(v); m != nil {
			return m, nil
		}
		return nil, typeError("%s is not a WebAssembly.Memory", jsval.Format(v))
	}
	getter(ns.memoryProto, "buffer", func(v jsval.Value) (jsval.Value, error) {
		m, err := this(v)
		if err != nil {
			return nil, err
		}
		b, _ := m.Read(0, m.memory().Size())
		return NewBytes(b), nil
	})
	method(ns.memoryProto, "grow", 1, func(v jsval.Value, args []jsval.Value) (jsval.Value, error) {
		m, err := this(v)
		if err != nil {
			return nil, err
		}
		delta, err := enforceRange(arg(args, 0), "delta")
		if err != nil {
			return nil, err
		}
		prev, err := m.Grow(delta)
		if err != nil {
			return nil, err
		}
		return jsval.Number(prev), nil
	})
	method(ns.memoryProto, "type", 0, func(v jsval.Value, _ []jsval.Value) (jsval.Value, error) {
		m, err := this(v)
		if err != nil {
			return nil, err
		}
		return m.Type(), nil
	})
}
