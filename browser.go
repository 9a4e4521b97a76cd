package badezimmer

// ServiceBrowser wraps a delegate Listener and filters engine notifications
// down to a subscribed set of service types, the Go analog of
// original_source/src/badezimmer/browser.py's BadezimmerServiceBrowser.
// A ServiceBrowser subscribed to serviceDiscoveryMetaType receives every
// notification regardless of type, mirroring the meta-type's role as a
// wildcard subscription.
type ServiceBrowser struct {
	engine       *Engine
	delegate     Listener
	serviceTypes map[string]struct{}
}

// NewServiceBrowser builds a browser over delegate, filtered to the given
// service types.
func NewServiceBrowser(delegate Listener, serviceTypes ...string) *ServiceBrowser {
	set := make(map[string]struct{}, len(serviceTypes))
	for _, t := range serviceTypes {
		set[t] = struct{}{}
	}
	return &ServiceBrowser{delegate: delegate, serviceTypes: set}
}

// Start attaches the browser to an engine as a listener, then replays the
// engine's current non-expired cache entries of subscribed types through
// delegate, then sends one query per subscribed type (the meta-type is not
// queried), the Go analog of browser.py's start()/_replay_cache().
func (b *ServiceBrowser) Start(e *Engine) {
	b.engine = e
	e.AddListener(b)

	for _, snap := range e.Cache().AllPointers() {
		if snap.Expired || !b.subscribed(snap.ServiceType) {
			continue
		}
		d := e.Cache().Reconstruct(snap.ServiceType, snap.Domain)
		if d == nil {
			continue
		}
		b.delegate.AddService(e, d)
	}

	for serviceType := range b.serviceTypes {
		if serviceType == serviceDiscoveryMetaType {
			continue
		}
		e.sendQuery(serviceType)
	}
}

func (b *ServiceBrowser) subscribed(serviceType string) bool {
	if _, ok := b.serviceTypes[serviceDiscoveryMetaType]; ok {
		return true
	}
	_, ok := b.serviceTypes[serviceType]
	return ok
}

// AddService forwards to the delegate if d's service type is subscribed.
func (b *ServiceBrowser) AddService(e *Engine, d *ServiceDescriptor) {
	if b.subscribed(d.ServiceType) {
		b.delegate.AddService(e, d)
	}
}

// UpdateService forwards to the delegate if d's service type is subscribed.
func (b *ServiceBrowser) UpdateService(e *Engine, d *ServiceDescriptor) {
	if b.subscribed(d.ServiceType) {
		b.delegate.UpdateService(e, d)
	}
}

// RemoveService forwards to the delegate if d's service type is subscribed.
func (b *ServiceBrowser) RemoveService(e *Engine, d *ServiceDescriptor) {
	if b.subscribed(d.ServiceType) {
		b.delegate.RemoveService(e, d)
	}
}
