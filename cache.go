package badezimmer

import "sync"

// CacheResult reports what InsertOrUpdate did to the pointer index.
type CacheResult int

const (
	// CacheResultNoop is returned when a remote update was rejected
	// because the domain is locally owned and force was false.
	CacheResultNoop CacheResult = iota
	CacheResultAdded
	CacheResultUpdated
)

type cacheEntry struct {
	record    Record
	expiresAt int64 // monotonic milliseconds
}

func (e cacheEntry) expired(nowMs int64) bool {
	return e.expiresAt < nowMs
}

func newCacheEntry(r Record, nowMs int64) cacheEntry {
	return cacheEntry{
		record:    r,
		expiresAt: nowMs + int64(r.TTL)*1000,
	}
}

// PointerSnapshot describes one pointer entry as returned by RemotePointers
// or AllPointers.
type PointerSnapshot struct {
	ServiceType string
	Domain      string
	Expired     bool
}

// RecordCache is the in-memory store of pointer records (keyed by
// service-type -> domain) and non-pointer records (keyed by domain -> kind),
// plus the set of locally-registered domains. All methods are safe for
// concurrent use; the single mutex mirrors the single-threaded-cooperative
// reference model per SPEC_FULL.md §5.
type RecordCache struct {
	mu sync.Mutex

	// pointerIndex[serviceType][domain] = entry
	pointerIndex map[string]map[string]cacheEntry
	// detailIndex[domain][kind] = entries
	detailIndex map[string]map[RecordKind][]cacheEntry
	// registeredServices[serviceType] = set of owned domains
	registeredServices map[string]map[string]struct{}

	now func() int64
}

// NewRecordCache constructs an empty cache. now supplies the monotonic
// millisecond clock used for TTL math; pass nil to use the real clock.
func NewRecordCache(now func() int64) *RecordCache {
	if now == nil {
		now = monotonicMillis
	}
	return &RecordCache{
		pointerIndex:       map[string]map[string]cacheEntry{},
		detailIndex:        map[string]map[RecordKind][]cacheEntry{},
		registeredServices: map[string]map[string]struct{}{},
		now:                now,
	}
}

// MarkRegistered records that serviceType/domain is locally owned, exempting
// it from cleanup and remote overwrite.
func (c *RecordCache) MarkRegistered(serviceType, domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.registeredServices[serviceType]
	if !ok {
		set = map[string]struct{}{}
		c.registeredServices[serviceType] = set
	}
	set[domain] = struct{}{}
}

// MarkUnregistered removes local ownership of serviceType/domain.
func (c *RecordCache) MarkUnregistered(serviceType, domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unmarkRegisteredLocked(serviceType, domain)
}

func (c *RecordCache) unmarkRegisteredLocked(serviceType, domain string) {
	set, ok := c.registeredServices[serviceType]
	if !ok {
		return
	}
	delete(set, domain)
	if len(set) == 0 {
		delete(c.registeredServices, serviceType)
	}
}

// IsRegistered reports whether serviceType/domain is locally owned.
func (c *RecordCache) IsRegistered(serviceType, domain string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.registeredServices[serviceType]
	if !ok {
		return false
	}
	_, ok = set[domain]
	return ok
}

// RegisteredDomains returns a copy of the locally-owned domains for a
// service type, in no particular order.
func (c *RecordCache) RegisteredDomains(serviceType string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.registeredServices[serviceType]
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	return out
}

// AllRegistered returns a copy of the full registered-services map.
func (c *RecordCache) AllRegistered() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.registeredServices))
	for svcType, set := range c.registeredServices {
		domains := make([]string, 0, len(set))
		for d := range set {
			domains = append(domains, d)
		}
		out[svcType] = domains
	}
	return out
}

// HasNonExpiredPointer reports whether a live (non-expired) pointer entry
// exists for serviceType/domain, used by tiebreaking conflict detection.
func (c *RecordCache) HasNonExpiredPointer(serviceType, domain string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pointerIndex[serviceType][domain]
	if !ok {
		return false
	}
	return !entry.expired(c.now())
}

// InsertOrUpdate writes a descriptor's records into the indices. Remote
// updates (force=false) targeting a locally-owned domain are a no-op. The
// detail index's non-pointer lists for the domain are cleared before
// reinsertion so replacements are clean.
func (c *RecordCache) InsertOrUpdate(d *ServiceDescriptor, force bool) CacheResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	serviceType := d.ServiceType
	domain := d.DomainName()

	if !force {
		if set, ok := c.registeredServices[serviceType]; ok {
			if _, owned := set[domain]; owned {
				return CacheResultNoop
			}
		}
	}

	now := c.now()
	_, existed := c.pointerIndex[serviceType][domain]

	records := d.ToRecords()
	for _, r := range records {
		if r.Kind != RecordKindPointer {
			continue
		}
		domainMap, ok := c.pointerIndex[serviceType]
		if !ok {
			domainMap = map[string]cacheEntry{}
			c.pointerIndex[serviceType] = domainMap
		}
		domainMap[domain] = newCacheEntry(r, now)
	}

	// Clear and reinsert non-pointer records for a clean replacement.
	kindMap := map[RecordKind][]cacheEntry{}
	for _, r := range records {
		if r.Kind == RecordKindPointer {
			continue
		}
		kindMap[r.Kind] = append(kindMap[r.Kind], newCacheEntry(r, now))
	}
	if len(kindMap) > 0 {
		c.detailIndex[domain] = kindMap
	} else {
		delete(c.detailIndex, domain)
	}

	if existed {
		return CacheResultUpdated
	}
	return CacheResultAdded
}

// Remove deletes the pointer entry and the detail row for serviceType/domain,
// pruning empty outer maps.
func (c *RecordCache) Remove(serviceType, domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(serviceType, domain)
}

func (c *RecordCache) removeLocked(serviceType, domain string) {
	if domainMap, ok := c.pointerIndex[serviceType]; ok {
		delete(domainMap, domain)
		if len(domainMap) == 0 {
			delete(c.pointerIndex, serviceType)
		}
	}
	delete(c.detailIndex, domain)
}

// Reconstruct concatenates the pointer and detail entries for a domain and
// parses them through FromRecords, returning nil if no pointer exists.
func (c *RecordCache) Reconstruct(serviceType, domain string) *ServiceDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconstructLocked(serviceType, domain)
}

func (c *RecordCache) reconstructLocked(serviceType, domain string) *ServiceDescriptor {
	ptrEntry, ok := c.pointerIndex[serviceType][domain]
	if !ok {
		return nil
	}

	records := []Record{ptrEntry.record}
	if kindMap, ok := c.detailIndex[domain]; ok {
		for _, entries := range kindMap {
			for _, e := range entries {
				records = append(records, e.record)
			}
		}
	}

	descs := FromRecords(records)
	if len(descs) == 0 {
		return nil
	}
	return descs[0]
}

// RemotePointers returns a snapshot of every pointer entry not locally
// owned, each tagged with whether it is currently expired.
func (c *RecordCache) RemotePointers() []PointerSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	var out []PointerSnapshot
	for serviceType, domainMap := range c.pointerIndex {
		owned := c.registeredServices[serviceType]
		for domain, entry := range domainMap {
			if owned != nil {
				if _, isOwned := owned[domain]; isOwned {
					continue
				}
			}
			out = append(out, PointerSnapshot{
				ServiceType: serviceType,
				Domain:      domain,
				Expired:     entry.expired(now),
			})
		}
	}
	return out
}

// AllPointers returns a snapshot of every pointer entry, local and remote
// alike, each tagged with whether it is currently expired. Unlike
// RemotePointers, locally-registered domains are included, for callers like
// ServiceBrowser.Start that replay the full cache regardless of ownership.
func (c *RecordCache) AllPointers() []PointerSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	var out []PointerSnapshot
	for serviceType, domainMap := range c.pointerIndex {
		for domain, entry := range domainMap {
			out = append(out, PointerSnapshot{
				ServiceType: serviceType,
				Domain:      domain,
				Expired:     entry.expired(now),
			})
		}
	}
	return out
}

// PointersForType returns the cached pointer record of every domain under a
// service type, keyed by domain, expired or not.
func (c *RecordCache) PointersForType(serviceType string) map[string]Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	domainMap := c.pointerIndex[serviceType]
	out := make(map[string]Record, len(domainMap))
	for domain, entry := range domainMap {
		out[domain] = entry.record
	}
	return out
}

// DetailRecords returns every non-pointer record cached for a domain.
func (c *RecordCache) DetailRecords(domain string) []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	kindMap, ok := c.detailIndex[domain]
	if !ok {
		return nil
	}
	var out []Record
	for _, entries := range kindMap {
		for _, e := range entries {
			out = append(out, e.record)
		}
	}
	return out
}
