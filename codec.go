package badezimmer

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers for the schema described in SPEC_FULL.md §4.7. The schema is
// hand-encoded with protobuf's wire primitives (no .proto/codegen step) so
// every message stays independently length-delimited, matching the framing
// discipline the original protobuf-based implementation relied on.
const (
	fieldEnvelopeTransactionID protowire.Number = 1
	fieldEnvelopeTimestamp     protowire.Number = 2
	fieldEnvelopeQuery         protowire.Number = 3
	fieldEnvelopeResponse      protowire.Number = 4

	fieldQueryQuestions protowire.Number = 1

	fieldQuestionName protowire.Number = 1
	fieldQuestionType protowire.Number = 2

	fieldResponseAnswers     protowire.Number = 1
	fieldResponseAdditional  protowire.Number = 2

	fieldRecordName       protowire.Number = 1
	fieldRecordTTL        protowire.Number = 2
	fieldRecordCacheFlush protowire.Number = 3
	fieldRecordPointer    protowire.Number = 4
	fieldRecordAddress    protowire.Number = 5
	fieldRecordService    protowire.Number = 6
	fieldRecordText       protowire.Number = 7

	fieldPointerName       protowire.Number = 1
	fieldPointerDomainName protowire.Number = 2

	fieldAddressName    protowire.Number = 1
	fieldAddressAddress protowire.Number = 2

	fieldServiceName     protowire.Number = 1
	fieldServiceProtocol protowire.Number = 2
	fieldServiceService  protowire.Number = 3
	fieldServiceInstance protowire.Number = 4
	fieldServicePort     protowire.Number = 5
	fieldServiceTarget   protowire.Number = 6

	fieldTextName    protowire.Number = 1
	fieldTextEntries protowire.Number = 2

	fieldEntryKey   protowire.Number = 1
	fieldEntryValue protowire.Number = 2
)

// --- low level append helpers ---

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendString(b, s)
	return b
}

func appendMessageField(b []byte, num protowire.Number, payload []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	return b
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	b = protowire.AppendVarint(b, v)
	return b
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	return b
}

// --- low level parse helpers ---

type fieldSet struct {
	bytesFields  map[protowire.Number][][]byte
	varintFields map[protowire.Number][]uint64
}

func parseFields(b []byte) (fieldSet, error) {
	fs := fieldSet{
		bytesFields:  map[protowire.Number][][]byte{},
		varintFields: map[protowire.Number][]uint64{},
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fs, errors.Wrap(ErrTruncatedPayload, "consume tag")
		}
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fs, errors.Wrap(ErrTruncatedPayload, "consume bytes field")
			}
			fs.bytesFields[num] = append(fs.bytesFields[num], v)
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fs, errors.Wrap(ErrTruncatedPayload, "consume varint field")
			}
			fs.varintFields[num] = append(fs.varintFields[num], v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fs, errors.Wrap(ErrTruncatedPayload, "consume unknown field")
			}
			b = b[n:]
		}
	}
	return fs, nil
}

func (fs fieldSet) str(num protowire.Number) string {
	vs := fs.bytesFields[num]
	if len(vs) == 0 {
		return ""
	}
	return string(vs[len(vs)-1])
}

func (fs fieldSet) bytesList(num protowire.Number) [][]byte {
	return fs.bytesFields[num]
}

func (fs fieldSet) u64(num protowire.Number) uint64 {
	vs := fs.varintFields[num]
	if len(vs) == 0 {
		return 0
	}
	return vs[len(vs)-1]
}

func (fs fieldSet) boolVal(num protowire.Number) bool {
	return fs.u64(num) != 0
}

// --- Envelope ---

func encodeEnvelope(e *Envelope) ([]byte, error) {
	var b []byte
	b = appendVarintField(b, fieldEnvelopeTransactionID, uint64(e.TransactionID))
	b = appendVarintField(b, fieldEnvelopeTimestamp, uint64(e.TimestampUnix))
	if e.Query != nil {
		b = appendMessageField(b, fieldEnvelopeQuery, encodeQuery(e.Query))
	}
	if e.Response != nil {
		payload, err := encodeResponse(e.Response)
		if err != nil {
			return nil, err
		}
		b = appendMessageField(b, fieldEnvelopeResponse, payload)
	}
	return b, nil
}

func decodeEnvelope(b []byte) (*Envelope, error) {
	fs, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	e := &Envelope{
		TransactionID: uint16(fs.u64(fieldEnvelopeTransactionID)),
		TimestampUnix: int64(fs.u64(fieldEnvelopeTimestamp)),
	}
	if qs := fs.bytesList(fieldEnvelopeQuery); len(qs) > 0 {
		q, err := decodeQuery(qs[len(qs)-1])
		if err != nil {
			return nil, err
		}
		e.Query = q
	}
	if rs := fs.bytesList(fieldEnvelopeResponse); len(rs) > 0 {
		r, err := decodeResponse(rs[len(rs)-1])
		if err != nil {
			return nil, err
		}
		e.Response = r
	}
	return e, nil
}

// --- Query ---

func encodeQuery(q *QueryPayload) []byte {
	var b []byte
	for _, question := range q.Questions {
		b = appendMessageField(b, fieldQueryQuestions, encodeQuestion(question))
	}
	return b
}

func decodeQuery(b []byte) (*QueryPayload, error) {
	fs, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	q := &QueryPayload{}
	for _, raw := range fs.bytesList(fieldQueryQuestions) {
		question, err := decodeQuestion(raw)
		if err != nil {
			return nil, err
		}
		q.Questions = append(q.Questions, question)
	}
	return q, nil
}

func encodeQuestion(q Question) []byte {
	var b []byte
	b = appendStringField(b, fieldQuestionName, q.Name)
	b = appendVarintField(b, fieldQuestionType, uint64(q.Type))
	return b
}

func decodeQuestion(b []byte) (Question, error) {
	fs, err := parseFields(b)
	if err != nil {
		return Question{}, err
	}
	return Question{
		Name: fs.str(fieldQuestionName),
		Type: QuestionType(fs.u64(fieldQuestionType)),
	}, nil
}

// --- Response ---

func encodeResponse(r *ResponsePayload) ([]byte, error) {
	var b []byte
	for _, rec := range r.Answers {
		payload, err := encodeRecord(rec)
		if err != nil {
			return nil, err
		}
		b = appendMessageField(b, fieldResponseAnswers, payload)
	}
	for _, rec := range r.AdditionalRecords {
		payload, err := encodeRecord(rec)
		if err != nil {
			return nil, err
		}
		b = appendMessageField(b, fieldResponseAdditional, payload)
	}
	return b, nil
}

func decodeResponse(b []byte) (*ResponsePayload, error) {
	fs, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	r := &ResponsePayload{}
	for _, raw := range fs.bytesList(fieldResponseAnswers) {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		r.Answers = append(r.Answers, rec)
	}
	for _, raw := range fs.bytesList(fieldResponseAdditional) {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		r.AdditionalRecords = append(r.AdditionalRecords, rec)
	}
	return r, nil
}

// --- Record ---

func encodeRecord(r Record) ([]byte, error) {
	var b []byte
	b = appendStringField(b, fieldRecordName, r.Name)
	b = appendVarintField(b, fieldRecordTTL, uint64(r.TTL))
	b = appendBoolField(b, fieldRecordCacheFlush, r.CacheFlush)

	switch r.Kind {
	case RecordKindPointer:
		if r.Pointer == nil {
			return nil, errors.New("badezimmer: pointer record missing body")
		}
		var pb []byte
		pb = appendStringField(pb, fieldPointerName, r.Pointer.Name)
		pb = appendStringField(pb, fieldPointerDomainName, r.Pointer.DomainName)
		b = appendMessageField(b, fieldRecordPointer, pb)
	case RecordKindAddress:
		if r.Address == nil {
			return nil, errors.New("badezimmer: address record missing body")
		}
		var ab []byte
		ab = appendStringField(ab, fieldAddressName, r.Address.Name)
		ab = appendStringField(ab, fieldAddressAddress, r.Address.Address)
		b = appendMessageField(b, fieldRecordAddress, ab)
	case RecordKindService:
		if r.Service == nil {
			return nil, errors.New("badezimmer: service record missing body")
		}
		var sb []byte
		sb = appendStringField(sb, fieldServiceName, r.Service.Name)
		sb = appendStringField(sb, fieldServiceProtocol, r.Service.Protocol)
		sb = appendStringField(sb, fieldServiceService, r.Service.Service)
		sb = appendStringField(sb, fieldServiceInstance, r.Service.Instance)
		sb = appendVarintField(sb, fieldServicePort, uint64(r.Service.Port))
		sb = appendStringField(sb, fieldServiceTarget, r.Service.Target)
		b = appendMessageField(b, fieldRecordService, sb)
	case RecordKindText:
		if r.Text == nil {
			return nil, errors.New("badezimmer: text record missing body")
		}
		var tb []byte
		tb = appendStringField(tb, fieldTextName, r.Text.Name)
		for k, v := range r.Text.Entries {
			var eb []byte
			eb = appendStringField(eb, fieldEntryKey, k)
			eb = appendStringField(eb, fieldEntryValue, v)
			tb = appendMessageField(tb, fieldTextEntries, eb)
		}
		b = appendMessageField(b, fieldRecordText, tb)
	default:
		return nil, errors.Errorf("badezimmer: unknown record kind %d", r.Kind)
	}
	return b, nil
}

func decodeRecord(b []byte) (Record, error) {
	fs, err := parseFields(b)
	if err != nil {
		return Record{}, err
	}
	r := Record{
		Name:       fs.str(fieldRecordName),
		TTL:        uint32(fs.u64(fieldRecordTTL)),
		CacheFlush: fs.boolVal(fieldRecordCacheFlush),
	}

	if ps := fs.bytesList(fieldRecordPointer); len(ps) > 0 {
		pfs, err := parseFields(ps[len(ps)-1])
		if err != nil {
			return Record{}, err
		}
		r.Kind = RecordKindPointer
		r.Pointer = &PointerRecord{
			Name:       pfs.str(fieldPointerName),
			DomainName: pfs.str(fieldPointerDomainName),
		}
		return r, nil
	}
	if as := fs.bytesList(fieldRecordAddress); len(as) > 0 {
		afs, err := parseFields(as[len(as)-1])
		if err != nil {
			return Record{}, err
		}
		r.Kind = RecordKindAddress
		r.Address = &AddressRecord{
			Name:    afs.str(fieldAddressName),
			Address: afs.str(fieldAddressAddress),
		}
		return r, nil
	}
	if ss := fs.bytesList(fieldRecordService); len(ss) > 0 {
		sfs, err := parseFields(ss[len(ss)-1])
		if err != nil {
			return Record{}, err
		}
		r.Kind = RecordKindService
		r.Service = &ServiceEndpointRecord{
			Name:     sfs.str(fieldServiceName),
			Protocol: sfs.str(fieldServiceProtocol),
			Service:  sfs.str(fieldServiceService),
			Instance: sfs.str(fieldServiceInstance),
			Port:     uint16(sfs.u64(fieldServicePort)),
			Target:   sfs.str(fieldServiceTarget),
		}
		return r, nil
	}
	if ts := fs.bytesList(fieldRecordText); len(ts) > 0 {
		tfs, err := parseFields(ts[len(ts)-1])
		if err != nil {
			return Record{}, err
		}
		entries := map[string]string{}
		for _, raw := range tfs.bytesList(fieldTextEntries) {
			efs, err := parseFields(raw)
			if err != nil {
				return Record{}, err
			}
			entries[efs.str(fieldEntryKey)] = efs.str(fieldEntryValue)
		}
		r.Kind = RecordKindText
		r.Text = &TextRecord{
			Name:    tfs.str(fieldTextName),
			Entries: entries,
		}
		return r, nil
	}
	return Record{}, errors.New("badezimmer: record carries no variant")
}
