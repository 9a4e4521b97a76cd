package badezimmer

// DeviceKind classifies a registered service as a sensor or an actuator.
type DeviceKind int

const (
	DeviceKindUnknown DeviceKind = iota
	DeviceKindSensor
	DeviceKindActuator
)

var deviceKindNames = map[DeviceKind]string{
	DeviceKindUnknown:  "UNKNOWN_KIND",
	DeviceKindSensor:   "SENSOR_KIND",
	DeviceKindActuator: "ACTUATOR_KIND",
}

var deviceKindValues = reverseStringMap(deviceKindNames)

// String returns the wire/TXT-record spelling of the kind.
func (k DeviceKind) String() string {
	if name, ok := deviceKindNames[k]; ok {
		return name
	}
	return deviceKindNames[DeviceKindUnknown]
}

// ParseDeviceKind decodes the TXT-record spelling of a kind, falling back to
// DeviceKindUnknown on any unrecognized value.
func ParseDeviceKind(s string) DeviceKind {
	if k, ok := deviceKindValues[s]; ok {
		return k
	}
	return DeviceKindUnknown
}

// DeviceCategory identifies the concrete appliance a descriptor represents.
type DeviceCategory int

const (
	DeviceCategoryUnknown DeviceCategory = iota
	DeviceCategoryLightLamp
	DeviceCategorySink
	DeviceCategoryToilet
	DeviceCategoryFartDetector
)

var deviceCategoryNames = map[DeviceCategory]string{
	DeviceCategoryUnknown:      "UNKNOWN_CATEGORY",
	DeviceCategoryLightLamp:    "LIGHT_LAMP",
	DeviceCategorySink:         "SINK",
	DeviceCategoryToilet:       "TOILET",
	DeviceCategoryFartDetector: "FART_DETECTOR",
}

var deviceCategoryValues = reverseStringMap(deviceCategoryNames)

func (c DeviceCategory) String() string {
	if name, ok := deviceCategoryNames[c]; ok {
		return name
	}
	return deviceCategoryNames[DeviceCategoryUnknown]
}

// ParseDeviceCategory decodes the TXT-record spelling of a category, falling
// back to DeviceCategoryUnknown on any unrecognized value.
func ParseDeviceCategory(s string) DeviceCategory {
	if c, ok := deviceCategoryValues[s]; ok {
		return c
	}
	return DeviceCategoryUnknown
}

// TransportProtocol identifies the transport a service-endpoint record
// advertises.
type TransportProtocol int

const (
	TransportProtocolUnknown TransportProtocol = iota
	TransportProtocolTCP
	TransportProtocolUDP
)

var transportProtocolNames = map[TransportProtocol]string{
	TransportProtocolUnknown: "UNKNOWN_PROTOCOL",
	TransportProtocolTCP:     "TCP_PROTOCOL",
	TransportProtocolUDP:     "UDP_PROTOCOL",
}

var transportProtocolValues = reverseStringMap(transportProtocolNames)

func (p TransportProtocol) String() string {
	if name, ok := transportProtocolNames[p]; ok {
		return name
	}
	return transportProtocolNames[TransportProtocolUnknown]
}

// ParseTransportProtocol decodes the wire spelling of a transport protocol,
// falling back to TransportProtocolUnknown on any unrecognized value.
func ParseTransportProtocol(s string) TransportProtocol {
	if p, ok := transportProtocolValues[s]; ok {
		return p
	}
	return TransportProtocolUnknown
}

// ErrorCode classifies a failed actuator-command reply.
type ErrorCode int

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodeInvalidCommand
	ErrorCodeNotFound
	ErrorCodeNoRoute
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCodeUnknown:        "UNKNOWN_ERROR",
	ErrorCodeInvalidCommand: "INVALID_COMMAND",
	ErrorCodeNotFound:       "NOT_FOUND",
	ErrorCodeNoRoute:        "NO_ROUTE",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return errorCodeNames[ErrorCodeUnknown]
}

// RecordKind discriminates the Record tagged union.
type RecordKind int

const (
	RecordKindPointer RecordKind = iota
	RecordKindAddress
	RecordKindService
	RecordKindText
)

// QuestionType discriminates the kind of record a Question asks about.
type QuestionType int

const (
	QuestionTypePointer QuestionType = iota
	QuestionTypeAddress
	QuestionTypeService
	QuestionTypeText
)

func reverseStringMap[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
