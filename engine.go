package badezimmer

import (
	"bytes"
	"context"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

const (
	sentPacketHistory       = 50
	receiveBufferSize       = 64 * 1024
	serviceDiscoveryMetaType = "_services._dns-sd._udp.local"
)

// Engine owns the multicast socket, the record cache, the set of
// locally-registered services, and the background maintenance tasks
// described in spec.md §4.4. Construct one per process with NewEngine; it
// is never a package-scope singleton, per SPEC_FULL.md's design notes.
type Engine struct {
	config engineConfig
	cache  *RecordCache
	log    *logrus.Entry

	listenersMu sync.Mutex
	listeners   []Listener

	connMu sync.Mutex
	conn   *ipv4.PacketConn
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sentMu      sync.Mutex
	sentPackets [][]byte

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewEngine constructs an Engine with the given options applied over the
// spec.md §6 defaults. Start must be called before the engine does
// anything on the network.
func NewEngine(opts ...Option) *Engine {
	cfg := defaultEngineConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Engine{
		config: cfg,
		cache:  NewRecordCache(nil),
		log:    cfg.logger,
		rand:   rand.New(rand.NewSource(cfg.randomSeed)),
	}
}

// Cache exposes the underlying record cache for callers that need direct
// read access (e.g. a browser replaying the current snapshot).
func (e *Engine) Cache() *RecordCache { return e.cache }

// Start binds the multicast socket and spawns the receive loop plus the
// optional cleanup and renovation loops. Start is idempotent.
func (e *Engine) Start(ctx context.Context) error {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn != nil {
		return nil
	}

	conn, err := listenMulticast()
	if err != nil {
		return errors.Wrap(err, "start engine")
	}
	e.conn = conn

	loopCtx, cancel := context.WithCancel(detach(ctx))
	e.cancel = cancel

	e.wg.Add(1)
	go e.receiveLoop(loopCtx)

	if e.config.automaticCleanup {
		e.wg.Add(1)
		go e.cleanupLoop(loopCtx)
	}
	if e.config.automaticRenovation {
		e.wg.Add(1)
		go e.renovateLoop(loopCtx)
	}

	e.log.WithFields(logrus.Fields{
		"multicast_ip": multicastGroup,
		"port":         multicastPort,
	}).Info("engine listening")
	return nil
}

// detach returns a context that keeps the caller's values but not its
// deadline or cancellation, so Start's background loops outlive a
// short-lived request context; they stop only when Close cancels the
// context derived from it.
func detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

// Close sends a goodbye for every locally-registered descriptor, cancels
// the background tasks, and closes the socket. Close tolerates being
// called twice.
func (e *Engine) Close() error {
	for serviceType, domains := range e.cache.AllRegistered() {
		for _, domain := range domains {
			d := e.cache.Reconstruct(serviceType, domain)
			if d == nil {
				continue
			}
			e.broadcast(d.Goodbye())
		}
	}

	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn == nil {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	// Unblock a receive loop parked in ReadFrom so it can observe the
	// cancellation before the socket is closed.
	_ = e.conn.SetReadDeadline(time.Now())
	e.wg.Wait()
	err := e.conn.Close()
	e.conn = nil
	return err
}

// AddListener appends l to the listener list.
func (e *Engine) AddListener(l Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

func (e *Engine) notify(fn func(Listener)) {
	e.listenersMu.Lock()
	ls := append([]Listener(nil), e.listeners...)
	e.listenersMu.Unlock()

	for _, l := range ls {
		e.safeNotify(l, fn)
	}
}

func (e *Engine) safeNotify(l Listener, fn func(Listener)) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).Error("listener callback panicked")
		}
	}()
	fn(l)
}

// RegisterService runs tiebreaking, claims the resolved instance name,
// records ownership, inserts the descriptor with force=true, and broadcasts
// an announcement.
func (e *Engine) RegisterService(ctx context.Context, d *ServiceDescriptor) error {
	if err := validateServiceType(d.ServiceType); err != nil {
		return err
	}
	if d.TTL == 0 {
		d.TTL = DefaultTTL
	}
	if len(d.Addresses) == 0 {
		d.Addresses = localIPv4Addresses()
	}

	e.log.WithFields(logrus.Fields{
		"service_name": d.InstanceName,
		"type":         d.ServiceType,
		"port":         d.Port,
	}).Info("registering service")

	if err := e.tiebreak(ctx, d); err != nil {
		return err
	}

	e.cache.MarkRegistered(d.ServiceType, d.DomainName())
	e.cache.InsertOrUpdate(d, true)
	e.broadcast(d)
	return nil
}

// UnregisterService is a no-op with a logged warning if d is not owned.
// Otherwise it broadcasts a goodbye, removes local ownership and the cache
// entry, and notifies listeners.
func (e *Engine) UnregisterService(d *ServiceDescriptor) {
	domain := d.DomainName()
	if !e.cache.IsRegistered(d.ServiceType, domain) {
		e.log.WithFields(logrus.Fields{
			"service_name": d.InstanceName,
			"type":         d.ServiceType,
		}).Warn("attempted to unregister unknown service")
		return
	}

	e.broadcast(d.Goodbye())
	e.cache.MarkUnregistered(d.ServiceType, domain)
	e.cache.Remove(d.ServiceType, domain)
	e.notify(func(l Listener) { l.RemoveService(e, d) })
}

// UpdateService is a no-op with a logged warning if d is not owned.
// Otherwise it re-inserts with force=true, rebroadcasts, and notifies
// listeners.
func (e *Engine) UpdateService(d *ServiceDescriptor) {
	domain := d.DomainName()
	if !e.cache.IsRegistered(d.ServiceType, domain) {
		e.log.WithFields(logrus.Fields{
			"service_name": d.InstanceName,
			"type":         d.ServiceType,
		}).Warn("cannot update non-registered service")
		return
	}

	e.cache.InsertOrUpdate(d, true)
	e.broadcast(d)
	e.notify(func(l Listener) { l.UpdateService(e, d) })
}

// broadcast sends a response envelope whose answer is the pointer record
// and whose additional records are the rest of d's record set.
func (e *Engine) broadcast(d *ServiceDescriptor) {
	records := d.ToRecords()
	if len(records) == 0 {
		return
	}
	e.sendResponse(records[0], records[1:])
}

func (e *Engine) sendResponse(answer Record, additional []Record) {
	e.sendEnvelope(&Envelope{
		Response: &ResponsePayload{
			Answers:           []Record{answer},
			AdditionalRecords: additional,
		},
	})
}

func (e *Engine) sendQuery(serviceType string) {
	e.sendEnvelope(&Envelope{
		Query: &QueryPayload{
			Questions: []Question{{Name: serviceType, Type: QuestionTypePointer}},
		},
	})
}

// sendEnvelope stamps a transaction id and timestamp, frames the envelope,
// remembers the raw bytes for self-echo suppression, and sends it to the
// multicast group. Send failures are logged and swallowed.
func (e *Engine) sendEnvelope(env *Envelope) {
	e.connMu.Lock()
	conn := e.conn
	e.connMu.Unlock()
	if conn == nil {
		return
	}

	env.TransactionID = uint16(e.randIntn(65535) + 1)
	env.TimestampUnix = time.Now().Unix()

	raw, err := FrameEnvelope(env)
	if err != nil {
		e.log.WithError(err).Error("failed to encode outbound envelope")
		return
	}

	e.rememberSent(raw)

	if _, err := conn.WriteTo(raw, nil, multicastGroupAddr()); err != nil {
		e.log.WithError(err).Warn("failed to send multicast packet")
	}
}

func (e *Engine) randIntn(n int) int {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rand.Intn(n)
}

func (e *Engine) randFloat64() float64 {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rand.Float64()
}

func (e *Engine) randInt63n(n int64) int64 {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	if n <= 0 {
		return 0
	}
	return e.rand.Int63n(n)
}

func (e *Engine) rememberSent(raw []byte) {
	e.sentMu.Lock()
	defer e.sentMu.Unlock()
	e.sentPackets = append(e.sentPackets, raw)
	if len(e.sentPackets) > sentPacketHistory {
		e.sentPackets = e.sentPackets[len(e.sentPackets)-sentPacketHistory:]
	}
}

func (e *Engine) wasSent(raw []byte) bool {
	e.sentMu.Lock()
	defer e.sentMu.Unlock()
	for _, s := range e.sentPackets {
		if bytes.Equal(s, raw) {
			return true
		}
	}
	return false
}

// receiveLoop reads datagrams, drops self-echoes, and dispatches queries
// and responses. Transient failures are logged and the loop continues;
// cancellation exits cleanly.
func (e *Engine) receiveLoop(ctx context.Context) {
	defer e.wg.Done()

	buf := make([]byte, receiveBufferSize)
	for {
		if ctx.Err() != nil {
			return
		}

		e.connMu.Lock()
		conn := e.conn
		e.connMu.Unlock()
		if conn == nil {
			return
		}

		n, _, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.log.WithError(err).Debug("receive error")
			time.Sleep(100 * time.Millisecond)
			continue
		}

		raw := append([]byte(nil), buf[:n]...)
		if e.wasSent(raw) {
			continue
		}

		env, err := UnframeEnvelope(raw)
		if err != nil {
			e.log.WithError(err).Debug("failed to parse received packet")
			continue
		}

		e.handlePacket(env, addr)
	}
}

func (e *Engine) handlePacket(env *Envelope, _ net.Addr) {
	switch {
	case env.Query != nil:
		e.handleQuery(env.Query)
	case env.Response != nil:
		e.handleResponse(env.Response)
	}
}

// handleQuery answers either the DNS-SD meta-type (enumerate every locally
// registered domain) or a specific locally-registered service type;
// anything else yields no answer.
func (e *Engine) handleQuery(q *QueryPayload) {
	var answers, additional []Record

	registered := e.cache.AllRegistered()

	for _, question := range q.Questions {
		switch question.Name {
		case serviceDiscoveryMetaType:
			for serviceType, domains := range registered {
				for _, domain := range domains {
					d := e.cache.Reconstruct(serviceType, domain)
					if d == nil {
						continue
					}
					records := d.ToRecords()
					if len(records) == 0 {
						continue
					}
					answers = append(answers, records[0])
					additional = append(additional, records[1:]...)
				}
			}
		default:
			domains, ok := registered[question.Name]
			if !ok {
				continue
			}
			for _, domain := range domains {
				d := e.cache.Reconstruct(question.Name, domain)
				if d == nil {
					continue
				}
				records := d.ToRecords()
				if len(records) == 0 {
					continue
				}
				answers = append(answers, records[0])
				additional = append(additional, records[1:]...)
			}
		}
	}

	if len(answers) == 0 {
		return
	}
	e.sendEnvelope(&Envelope{
		Response: &ResponsePayload{Answers: answers, AdditionalRecords: additional},
	})
}

// handleResponse partitions incoming records by TTL: active records feed
// FromRecords and the cache, goodbyes (TTL=0) trigger a lookup-then-remove
// so listeners learn exactly who is leaving.
func (e *Engine) handleResponse(r *ResponsePayload) {
	all := append(append([]Record(nil), r.Answers...), r.AdditionalRecords...)

	var active, goodbyes []Record
	for _, rec := range all {
		if rec.TTL > 0 {
			active = append(active, rec)
		} else {
			goodbyes = append(goodbyes, rec)
		}
	}

	if len(active) > 0 {
		for _, d := range FromRecords(active) {
			result := e.cache.InsertOrUpdate(d, false)
			switch result {
			case CacheResultAdded:
				e.notify(func(l Listener) { l.AddService(e, d) })
			case CacheResultUpdated:
				e.notify(func(l Listener) { l.UpdateService(e, d) })
			}
		}
	}

	for _, rec := range goodbyes {
		if rec.Kind != RecordKindPointer || rec.Pointer == nil {
			continue
		}
		serviceType := rec.Name
		domain := rec.Pointer.DomainName
		existing := e.cache.Reconstruct(serviceType, domain)
		if existing == nil {
			continue
		}
		e.cache.Remove(serviceType, domain)
		e.notify(func(l Listener) { l.RemoveService(e, existing) })
	}
}

// cleanupLoop periodically evicts expired remote pointer entries and probes
// the rest for liveness, per spec.md §4.4.
func (e *Engine) cleanupLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.config.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.runCleanupCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				e.log.WithError(err).Error("error in cleanup loop")
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (e *Engine) runCleanupCycle(ctx context.Context) error {
	snapshot := e.cache.RemotePointers()

	var expired, alive []PointerSnapshot
	for _, s := range snapshot {
		if s.Expired {
			expired = append(expired, s)
		} else {
			alive = append(alive, s)
		}
	}

	type checkResult struct {
		snapshot PointerSnapshot
		alive    bool
	}

	results := make(chan checkResult, len(alive))
	var wg sync.WaitGroup
	for _, s := range alive {
		d := e.cache.Reconstruct(s.ServiceType, s.Domain)
		if d == nil {
			continue
		}
		wg.Add(1)
		go func(s PointerSnapshot, d *ServiceDescriptor) {
			defer wg.Done()
			results <- checkResult{snapshot: s, alive: e.probe(ctx, d)}
		}(s, d)
	}
	wg.Wait()
	close(results)

	var unresponsive []PointerSnapshot
	for r := range results {
		if !r.alive {
			unresponsive = append(unresponsive, r.snapshot)
		}
	}

	for _, s := range append(expired, unresponsive...) {
		existing := e.cache.Reconstruct(s.ServiceType, s.Domain)
		e.cache.Remove(s.ServiceType, s.Domain)
		if existing != nil {
			e.notify(func(l Listener) { l.RemoveService(e, existing) })
		}
	}

	return nil
}

// probe performs a liveness check per spec.md §4.4: no addresses or port 0
// is dead; non-TCP services are assumed alive; otherwise the first
// successful TCP connect (skipping excluded address prefixes) wins.
func (e *Engine) probe(_ context.Context, d *ServiceDescriptor) bool {
	if len(d.Addresses) == 0 || d.Port == 0 {
		return false
	}
	if d.TransportProtocol != TransportProtocolTCP {
		return true
	}

	for _, addr := range d.Addresses {
		if hasAnyPrefix(addr, e.config.excludedIPPrefixes) {
			continue
		}
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(addr, strconv.Itoa(int(d.Port))), e.config.healthCheckTimeout)
		if err != nil {
			continue
		}
		conn.Close()
		return true
	}
	return false
}

// renovateLoop re-broadcasts every locally-registered descriptor at a fixed
// cadence of 0.75×DefaultTTL, independent of a descriptor's own TTL (see
// SPEC_FULL.md open questions).
func (e *Engine) renovateLoop(ctx context.Context) {
	defer e.wg.Done()
	interval := time.Duration(float64(DefaultTTL)*0.75) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for serviceType, domains := range e.cache.AllRegistered() {
				for _, domain := range domains {
					d := e.cache.Reconstruct(serviceType, domain)
					if d != nil {
						e.broadcast(d)
					}
				}
			}
		}
	}
}

