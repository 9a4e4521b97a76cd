package badezimmer

// Listener is a capability set of three callbacks the engine invokes when a
// remote service is discovered, updated, or withdrawn. It is a plain
// interface, not a base class to subclass: any type providing all three
// methods can be registered.
type Listener interface {
	AddService(e *Engine, d *ServiceDescriptor)
	UpdateService(e *Engine, d *ServiceDescriptor)
	RemoveService(e *Engine, d *ServiceDescriptor)
}

// ListenerFuncs adapts three function values into a Listener, for callers
// who would rather not declare a named type.
type ListenerFuncs struct {
	OnAdd    func(e *Engine, d *ServiceDescriptor)
	OnUpdate func(e *Engine, d *ServiceDescriptor)
	OnRemove func(e *Engine, d *ServiceDescriptor)
}

func (f ListenerFuncs) AddService(e *Engine, d *ServiceDescriptor) {
	if f.OnAdd != nil {
		f.OnAdd(e, d)
	}
}

func (f ListenerFuncs) UpdateService(e *Engine, d *ServiceDescriptor) {
	if f.OnUpdate != nil {
		f.OnUpdate(e, d)
	}
}

func (f ListenerFuncs) RemoveService(e *Engine, d *ServiceDescriptor) {
	if f.OnRemove != nil {
		f.OnRemove(e, d)
	}
}
