package neverliie

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Version0 is the only envelope version this implementation understands.
const Version0 byte = 1

// Kind discriminates the payload carried by an [Envelope].
type Kind byte

// All kind values are reserved by the protocol; values are chosen to leave
// room below them for future packet types without colliding with
// implementations that reserve 0-1.
const (
	KindRequest     Kind = 2 // client -> server: method, args, kwargs
	KindOK          Kind = 3 // server -> client: data
	KindError       Kind = 4 // server -> client: msg
	KindPong        Kind = 5 // server -> client: (no payload)
	KindStreamStart Kind = 6 // server -> client: task_id
	KindProgress    Kind = 7 // server -> client: data
	KindStreamEnd   Kind = 8 // server -> client: (no payload)
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "REQUEST"
	case KindOK:
		return "OK"
	case KindError:
		return "ERROR"
	case KindPong:
		return "PONG"
	case KindStreamStart:
		return "STREAM_START"
	case KindProgress:
		return "PROGRESS"
	case KindStreamEnd:
		return "STREAM_END"
	default:
		return fmt.Sprintf("KIND:%d", byte(k))
	}
}

// Envelope is the parsed form of one NeverLiie wire record: a length-prefixed
// frame carrying a version, a kind, and a kind-specific JSON payload.
type Envelope struct {
	Version byte
	Kind    Kind
	Payload []byte
}

// WriteTo writes e to w in wire format. It satisfies io.WriterTo.
func (e *Envelope) WriteTo(w io.Writer) (int64, error) {
	var hdr [6]byte
	binary.BigEndian.PutUint32(hdr[0:], uint32(2+len(e.Payload)))
	hdr[4] = e.Version
	hdr[5] = byte(e.Kind)
	nw, err := w.Write(hdr[:])
	if err == nil && len(e.Payload) != 0 {
		var np int
		np, err = w.Write(e.Payload)
		nw += np
	}
	return int64(nw), err
}

// ReadFrom reads an envelope from r in wire format. It satisfies
// io.ReaderFrom. A clean EOF at the start of a frame is reported unwrapped
// (the caller should treat it as a closed connection); any other failure to
// read a complete frame is a [*ProtocolError].
func (e *Envelope) ReadFrom(r io.Reader) (int64, error) {
	var lbuf [4]byte
	nr, err := io.ReadFull(r, lbuf[:])
	if err != nil {
		if nr == 0 && err == io.EOF {
			return 0, io.EOF
		}
		return int64(nr), &ProtocolError{Detail: "short length prefix", Err: err}
	}
	size := binary.BigEndian.Uint32(lbuf[:])
	if size < 2 {
		return int64(nr), &ProtocolError{Detail: fmt.Sprintf("frame too short (%d bytes)", size)}
	}

	body := make([]byte, size)
	nb, err := io.ReadFull(r, body)
	nr += nb
	if err != nil {
		return int64(nr), &ProtocolError{Detail: "short frame body", Err: err}
	}

	e.Version = body[0]
	if e.Version != Version0 {
		return int64(nr), &ProtocolError{Detail: fmt.Sprintf("unsupported envelope version %d", e.Version)}
	}
	e.Kind = Kind(body[1])
	if len(body) > 2 {
		e.Payload = body[2:]
	} else {
		e.Payload = nil
	}
	return int64(nr), nil
}

// WriteEnvelope writes e to w. Any I/O error is returned unwrapped.
func WriteEnvelope(w io.Writer, e *Envelope) error {
	_, err := e.WriteTo(w)
	return err
}

// ReadEnvelope reads the next envelope from r.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	var e Envelope
	if _, err := e.ReadFrom(r); err != nil {
		return nil, err
	}
	return &e, nil
}

// requestPayload is the JSON body of a KindRequest envelope.
type requestPayload struct {
	Method string         `json:"method"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// okPayload is the JSON body of a KindOK envelope.
type okPayload struct {
	Data any `json:"data"`
}

// errorPayload is the JSON body of a KindError envelope.
type errorPayload struct {
	Msg string `json:"msg"`
}

// streamStartPayload is the JSON body of a KindStreamStart envelope.
type streamStartPayload struct {
	TaskID string `json:"task_id"`
}

// progressPayload is the JSON body of a KindProgress envelope.
type progressPayload struct {
	Data any `json:"data"`
}

func encodeJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("encoding envelope payload: %w", err))
	}
	return data
}

func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func newRequestEnvelope(method string, args []any, kwargs map[string]any) *Envelope {
	return &Envelope{
		Version: Version0,
		Kind:    KindRequest,
		Payload: encodeJSON(requestPayload{Method: method, Args: args, Kwargs: kwargs}),
	}
}

func newOKEnvelope(data any) *Envelope {
	return &Envelope{Version: Version0, Kind: KindOK, Payload: encodeJSON(okPayload{Data: data})}
}

func newErrorEnvelope(msg string) *Envelope {
	return &Envelope{Version: Version0, Kind: KindError, Payload: encodeJSON(errorPayload{Msg: msg})}
}

func newPongEnvelope() *Envelope {
	return &Envelope{Version: Version0, Kind: KindPong}
}

func newStreamStartEnvelope(taskID string) *Envelope {
	return &Envelope{
		Version: Version0,
		Kind:    KindStreamStart,
		Payload: encodeJSON(streamStartPayload{TaskID: taskID}),
	}
}

func newProgressEnvelope(data any) *Envelope {
	return &Envelope{Version: Version0, Kind: KindProgress, Payload: encodeJSON(progressPayload{Data: data})}
}

func newStreamEndEnvelope() *Envelope {
	return &Envelope{Version: Version0, Kind: KindStreamEnd}
}
