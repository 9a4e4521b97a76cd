package badezimmer

// Record is a tagged union carrying the common header shared by every
// variant plus exactly one of the four record bodies. Only the field named
// by Kind is meaningful.
type Record struct {
	Name       string
	TTL        uint32
	CacheFlush bool
	Kind       RecordKind

	Pointer *PointerRecord
	Address *AddressRecord
	Service *ServiceEndpointRecord
	Text    *TextRecord
}

// PointerRecord maps a service-type to one instance domain name.
type PointerRecord struct {
	Name       string
	DomainName string
}

// AddressRecord binds an instance domain to one IPv4 address.
type AddressRecord struct {
	Name    string
	Address string
}

// ServiceEndpointRecord carries the port and target of a service instance.
// Service and Instance are opaque labels: the reference implementation
// derives them by splitting the domain name on dots, which is inconsistent
// across non-standard service-types (see SPEC_FULL.md open questions); this
// implementation stores them without re-parsing. Protocol holds the
// TransportProtocol name and FromRecords parses it back.
type ServiceEndpointRecord struct {
	Name     string
	Protocol string
	Service  string
	Instance string
	Port     uint16
	Target   string
}

// TextRecord carries arbitrary key/value metadata for an instance, including
// the reserved "kind" and "category" keys.
type TextRecord struct {
	Name    string
	Entries map[string]string
}

func newPointerRecord(serviceType, domainName string, ttl uint32) Record {
	return Record{
		Name: serviceType,
		TTL:  ttl,
		Kind: RecordKindPointer,
		Pointer: &PointerRecord{
			Name:       serviceType,
			DomainName: domainName,
		},
	}
}

func newAddressRecord(domainName, address string, ttl uint32) Record {
	return Record{
		Name:       domainName,
		TTL:        ttl,
		CacheFlush: true,
		Kind:       RecordKindAddress,
		Address: &AddressRecord{
			Name:    domainName,
			Address: address,
		},
	}
}

func newServiceRecord(domainName string, ep ServiceEndpointRecord, ttl uint32) Record {
	ep.Name = domainName
	return Record{
		Name:       domainName,
		TTL:        ttl,
		CacheFlush: true,
		Kind:       RecordKindService,
		Service:    &ep,
	}
}

func newTextRecord(domainName string, entries map[string]string, ttl uint32) Record {
	return Record{
		Name:       domainName,
		TTL:        ttl,
		CacheFlush: true,
		Kind:       RecordKindText,
		Text: &TextRecord{
			Name:    domainName,
			Entries: entries,
		},
	}
}

// Question asks for one kind of record under a given name.
type Question struct {
	Name string
	Type QuestionType
}

// QueryPayload is the body of a query Envelope.
type QueryPayload struct {
	Questions []Question
}

// ResponsePayload is the body of a response Envelope.
type ResponsePayload struct {
	Answers           []Record
	AdditionalRecords []Record
}

// Envelope is a tagged union of a query or a response, both timestamped and
// tagged with a transaction id used only to disambiguate self-echo.
type Envelope struct {
	TransactionID uint16
	TimestampUnix int64
	Query         *QueryPayload
	Response      *ResponsePayload
}
