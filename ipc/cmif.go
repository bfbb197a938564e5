package ipc

import (
	"encoding/binary"

	"github.com/nestybox/horizon-ipc/result"
)

// CommandType is the dispatch kind read off the front of a CMIF message.
type CommandType uint16

const (
	CommandTypeInvalid CommandType = iota
	CommandTypeLegacyRequest
	CommandTypeClose
	CommandTypeLegacyControl
	CommandTypeRequest
	CommandTypeControl
	CommandTypeRequestWithContext
	CommandTypeControlWithContext
)

// DomainCommandType distinguishes the three things a domain-addressed
// request header can ask for.
type DomainCommandType uint8

const (
	DomainCommandTypeInvalid DomainCommandType = iota
	DomainCommandTypeSendMessage
	DomainCommandTypeClose
)

// Wire magic words stamped on the raw data region of request/response
// payloads, matching libnx/libstratosphere's SFCI (client->server) and
// SFCO (server->client) conventions.
const (
	magicSFCI uint32 = 0x49434653
	magicSFCO uint32 = 0x4f434653
)

// requestHeaderSize is the fixed portion of a CMIF request/control header:
// command_type(2) + domain_command_type(1) + reserved(1) + request_id(4).
const requestHeaderSize = 8

// domainHeaderSize: cmd(1) + object_count(1) + data_size(2) + object_id(4) + reserved(4).
const domainHeaderSize = 12

// rawHeaderSize: magic(4) + version(4) + command_id(4) + result(4).
const rawHeaderSize = 16

// WriteRequestHeader serializes the fixed CMIF request header (no domain
// addressing) followed by the SFCI raw header and the already-built
// payload data.
func WriteRequestHeader(commandType CommandType, requestID uint32, commandID uint32, data []byte) []byte {
	buf := make([]byte, requestHeaderSize+rawHeaderSize+len(data))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(commandType))
	buf[2] = byte(DomainCommandTypeInvalid)
	binary.LittleEndian.PutUint32(buf[4:8], requestID)
	binary.LittleEndian.PutUint32(buf[8:12], magicSFCI)
	binary.LittleEndian.PutUint32(buf[12:16], 0)
	binary.LittleEndian.PutUint32(buf[16:20], commandID)
	binary.LittleEndian.PutUint32(buf[20:24], 0)
	copy(buf[24:], data)
	return buf
}

// WriteDomainRequestHeader is WriteRequestHeader for a domain-addressed
// member, inserting the domain header between the CMIF header and the
// SFCI raw header.
func WriteDomainRequestHeader(requestID uint32, objectID DomainObjectID, commandID uint32, data []byte) []byte {
	buf := make([]byte, requestHeaderSize+domainHeaderSize+rawHeaderSize+len(data))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(CommandTypeRequest))
	buf[2] = byte(DomainCommandTypeSendMessage)
	binary.LittleEndian.PutUint32(buf[4:8], requestID)

	buf[8] = byte(DomainCommandTypeSendMessage)
	buf[9] = 0
	binary.LittleEndian.PutUint16(buf[10:12], uint16(len(data)+rawHeaderSize))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(objectID))

	off := requestHeaderSize + domainHeaderSize
	binary.LittleEndian.PutUint32(buf[off:off+4], magicSFCI)
	binary.LittleEndian.PutUint32(buf[off+8:off+12], commandID)
	copy(buf[off+16:], data)
	return buf
}

// parsedRequest is what reading a request header off the wire yields.
type parsedRequest struct {
	CommandType       CommandType
	DomainCommandType DomainCommandType
	RequestID         uint32
	ObjectID          DomainObjectID
	CommandID         uint32
	Version           uint32
	Data              []byte
}

// ReadRequestHeader parses a CMIF request/control/close header and the
// command-id/raw-data region that follows it, accounting for the optional
// domain header when isDomain is set.
func ReadRequestHeader(buf []byte, isDomain bool) (parsedRequest, error) {
	if len(buf) < requestHeaderSize {
		return parsedRequest{}, result.ErrInvalidCommandType
	}
	var pr parsedRequest
	pr.CommandType = CommandType(binary.LittleEndian.Uint16(buf[0:2]))
	pr.RequestID = binary.LittleEndian.Uint32(buf[4:8])

	rest := buf[requestHeaderSize:]
	if isDomain {
		if len(rest) < domainHeaderSize {
			return parsedRequest{}, result.ErrInvalidDomainCommandType
		}
		pr.DomainCommandType = DomainCommandType(rest[0])
		pr.ObjectID = DomainObjectID(binary.LittleEndian.Uint32(rest[4:8]))
		rest = rest[domainHeaderSize:]
	} else {
		pr.DomainCommandType = DomainCommandTypeInvalid
	}

	switch pr.CommandType {
	case CommandTypeClose:
		return pr, nil
	case CommandTypeRequest, CommandTypeRequestWithContext,
		CommandTypeControl, CommandTypeControlWithContext,
		CommandTypeLegacyRequest, CommandTypeLegacyControl:
	default:
		return parsedRequest{}, result.ErrInvalidCommandType
	}

	if len(rest) < rawHeaderSize {
		return parsedRequest{}, result.ErrInvalidCommandType
	}
	magic := binary.LittleEndian.Uint32(rest[0:4])
	if magic != magicSFCI {
		return parsedRequest{}, result.ErrInvalidProtocol
	}
	pr.Version = binary.LittleEndian.Uint32(rest[4:8])
	pr.CommandID = binary.LittleEndian.Uint32(rest[8:12])
	pr.Data = rest[rawHeaderSize:]
	return pr, nil
}

// WriteResponseHeader stamps the SFCO raw header with the given result
// code over data and returns the framed response buffer.
func WriteResponseHeader(result result.Result, data []byte) []byte {
	buf := make([]byte, rawHeaderSize+len(data))
	binary.LittleEndian.PutUint32(buf[0:4], magicSFCO)
	binary.LittleEndian.PutUint32(buf[12:16], resultToWire(result))
	copy(buf[rawHeaderSize:], data)
	return buf
}

// WriteCloseResponse is the minimal acknowledgement for a Close command.
func WriteCloseResponse() []byte {
	buf := make([]byte, requestHeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(CommandTypeClose))
	return buf
}

// ReadResponseHeader parses a CMIF response's SFCO raw header, returning
// the Result it carries and the raw data region that follows it.
func ReadResponseHeader(buf []byte) (result.Result, []byte, error) {
	if len(buf) < rawHeaderSize {
		return result.Result{}, nil, result.ErrInvalidCommandType
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != magicSFCO {
		return result.Result{}, nil, result.ErrInvalidProtocol
	}
	word := binary.LittleEndian.Uint32(buf[12:16])
	r := result.Result{Module: result.Module(word & 0x1ff), Code: word >> 9}
	return r, buf[rawHeaderSize:], nil
}

// resultToWire packs a module-qualified Result into the single wire word
// libnx uses: (code << 9) | module. Module is 9 bits wide, reserving the
// low bits exactly like Horizon's own error-code packing.
func resultToWire(r result.Result) uint32 {
	return (r.Code << 9) | uint32(r.Module)
}
