package badezimmer

import (
	"strings"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

// DefaultTTL is the TTL, in seconds, a newly constructed descriptor carries
// unless overridden.
const DefaultTTL = 4500

// reservedKind and reservedCategory are the TXT-record keys the wire format
// reserves for the enum fields (SPEC_FULL.md §3/§6).
const (
	reservedKind     = "kind"
	reservedCategory = "category"
)

// ServiceDescriptor is the logical unit exchanged with listeners: what the
// reference implementation calls MDNSServiceInfo.
type ServiceDescriptor struct {
	InstanceName      string
	ServiceType       string
	Port              uint16
	Kind              DeviceKind
	Category          DeviceCategory
	TransportProtocol TransportProtocol
	Properties        map[string]string
	Addresses         []string
	TTL               uint32
	AllowNameChange   bool
}

// DomainName is InstanceName.ServiceType, unique within the fabric once
// tiebreaking has run.
func (d *ServiceDescriptor) DomainName() string {
	return generateDomainName(d.ServiceType, d.InstanceName)
}

// Clone returns a deep copy so callers can hold on to a descriptor without
// aliasing the engine's view of it.
func (d *ServiceDescriptor) Clone() *ServiceDescriptor {
	out := *d
	out.Addresses = append([]string(nil), d.Addresses...)
	out.Properties = make(map[string]string, len(d.Properties))
	for k, v := range d.Properties {
		out.Properties[k] = v
	}
	return &out
}

func generateDomainName(serviceType, instanceName string) string {
	return instanceName + "." + serviceType
}

// validateServiceType checks that a service-type string is a well-formed
// DNS label sequence, per SPEC_FULL.md §4.7 (service-types remain
// "_foo._tcp.local."-shaped strings even though the wire format is not DNS).
func validateServiceType(serviceType string) error {
	if serviceType == "" {
		return errors.New("badezimmer: empty service type")
	}
	if _, ok := dns.IsDomainName(serviceType); !ok {
		return errors.Errorf("badezimmer: %q is not a well-formed service type", serviceType)
	}
	return nil
}

// ToRecords decomposes a descriptor into its record set: one pointer, one
// address per address, one service-endpoint, one text, in that order.
func (d *ServiceDescriptor) ToRecords() []Record {
	domainName := d.DomainName()
	records := make([]Record, 0, 3+len(d.Addresses))

	records = append(records, newPointerRecord(d.ServiceType, domainName, d.TTL))

	for _, addr := range d.Addresses {
		records = append(records, newAddressRecord(domainName, addr, d.TTL))
	}

	service, _ := splitServiceLabel(d.ServiceType)
	records = append(records, newServiceRecord(domainName, ServiceEndpointRecord{
		Protocol: d.TransportProtocol.String(),
		Service:  service,
		Instance: d.InstanceName,
		Port:     d.Port,
		Target:   domainName,
	}, d.TTL))

	entries := make(map[string]string, len(d.Properties)+2)
	for k, v := range d.Properties {
		entries[k] = v
	}
	entries[reservedKind] = d.Kind.String()
	entries[reservedCategory] = d.Category.String()
	records = append(records, newTextRecord(domainName, entries, d.TTL))

	return records
}

// splitServiceLabel derives an opaque "service" label from a service-type
// string for the ServiceEndpointRecord.Service field. Per SPEC_FULL.md's
// carried-over open question, this sub-field is opaque: it is never
// re-parsed on the way back into a descriptor.
func splitServiceLabel(serviceType string) (string, bool) {
	parts := strings.SplitN(serviceType, ".", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "_unknown", false
	}
	return parts[0], true
}

// Goodbye returns a copy of the descriptor with every record TTL set to 0,
// the shape of a goodbye announcement per SPEC_FULL.md §4.4.
func (d *ServiceDescriptor) Goodbye() *ServiceDescriptor {
	g := d.Clone()
	g.TTL = 0
	return g
}

// FromRecords groups a flat record list by role and reconstructs one
// descriptor per pointer record found. Non-pointer records are indexed by
// their Name (the domain they belong to); a pointer record with no matching
// address/service/text records yields a descriptor with zero port and
// unknown enums.
func FromRecords(records []Record) []*ServiceDescriptor {
	if len(records) == 0 {
		return nil
	}

	type pointerWithTTL struct {
		ptr *PointerRecord
		ttl uint32
	}
	var pointers []pointerWithTTL
	addresses := map[string][]*AddressRecord{}
	services := map[string]*ServiceEndpointRecord{}
	texts := map[string]*TextRecord{}

	for i := range records {
		r := &records[i]
		switch r.Kind {
		case RecordKindPointer:
			if r.Pointer != nil {
				pointers = append(pointers, pointerWithTTL{ptr: r.Pointer, ttl: r.TTL})
			}
		case RecordKindAddress:
			if r.Address != nil {
				addresses[r.Address.Name] = append(addresses[r.Address.Name], r.Address)
			}
		case RecordKindService:
			if r.Service != nil {
				services[r.Service.Name] = r.Service
			}
		case RecordKindText:
			if r.Text != nil {
				texts[r.Text.Name] = r.Text
			}
		}
	}

	var out []*ServiceDescriptor
	for _, pw := range pointers {
		ptr := pw.ptr
		domainName := ptr.DomainName
		instanceName := domainName
		if idx := strings.Index(domainName, "."); idx >= 0 {
			instanceName = domainName[:idx]
		}

		d := &ServiceDescriptor{
			InstanceName:      instanceName,
			ServiceType:       ptr.Name,
			Kind:              DeviceKindUnknown,
			Category:          DeviceCategoryUnknown,
			TransportProtocol: TransportProtocolUnknown,
			Properties:        map[string]string{},
			AllowNameChange:   true,
			TTL:               pw.ttl,
		}

		if addrs, ok := addresses[domainName]; ok {
			for _, a := range addrs {
				d.Addresses = append(d.Addresses, a.Address)
			}
		}
		if ep, ok := services[domainName]; ok {
			d.Port = ep.Port
			d.TransportProtocol = ParseTransportProtocol(ep.Protocol)
		}
		if txt, ok := texts[domainName]; ok {
			for k, v := range txt.Entries {
				if k == reservedKind || k == reservedCategory {
					continue
				}
				d.Properties[k] = v
			}
			if kind, ok := txt.Entries[reservedKind]; ok {
				d.Kind = ParseDeviceKind(kind)
			}
			if category, ok := txt.Entries[reservedCategory]; ok {
				d.Category = ParseDeviceCategory(category)
			}
		}

		out = append(out, d)
	}
	return out
}
