package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"netviz/internal/domain"

	"github.com/go-playground/validator/v10"
)

// MaxBatchDepth bounds MultipleMessage nesting
const MaxBatchDepth = 8

// Envelope is a frame split into its tag and raw body
type Envelope struct {
	Type string
	Body json.RawMessage
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Client message bodies as received. Pointers distinguish absent from zero.

type deviceCreateBody struct {
	ID     *int    `json:"id" validate:"required"`
	Name   *string `json:"name" validate:"required,min=1"`
	X      *Coord  `json:"x" validate:"required"`
	Y      *Coord  `json:"y" validate:"required"`
	Type   *string `json:"type" validate:"required"`
	HostID *int    `json:"host_id" validate:"required"`
}

type deviceMoveBody struct {
	ID *int   `json:"id" validate:"required"`
	X  *Coord `json:"x" validate:"required"`
	Y  *Coord `json:"y" validate:"required"`
}

type multipleMessageBody struct {
	Messages *[]json.RawMessage `json:"messages" validate:"required"`
}

// DecodeEnvelope splits a frame into its tag and body without looking at the body's fields
func DecodeEnvelope(frame []byte) (Envelope, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(frame, &parts); err != nil {
		return Envelope{}, fmt.Errorf("%w: frame is not a JSON array: %v", domain.ErrMalformedMessage, err)
	}
	if len(parts) != 2 {
		return Envelope{}, fmt.Errorf("%w: expected [type, body], got %d elements", domain.ErrMalformedMessage, len(parts))
	}

	var msgType string
	if err := json.Unmarshal(parts[0], &msgType); err != nil {
		return Envelope{}, fmt.Errorf("%w: message type must be a string", domain.ErrMalformedMessage)
	}

	body := bytes.TrimSpace(parts[1])
	if len(body) == 0 || body[0] != '{' {
		return Envelope{}, fmt.Errorf("%w: message body must be an object", domain.ErrMalformedMessage)
	}

	return Envelope{Type: msgType, Body: body}, nil
}

// Decode parses one client frame into a typed message
func Decode(frame []byte) (Message, error) {
	env, err := DecodeEnvelope(frame)
	if err != nil {
		return nil, err
	}
	return decodeBody(env, 0)
}

func decodeBody(env Envelope, depth int) (Message, error) {
	switch env.Type {
	case TypeDeviceCreate:
		var body deviceCreateBody
		if err := unmarshalBody(env, &body); err != nil {
			return nil, err
		}
		return &DeviceCreate{
			ID:         *body.ID,
			Name:       *body.Name,
			X:          float64(*body.X),
			Y:          float64(*body.Y),
			DeviceType: *body.Type,
			HostID:     *body.HostID,
		}, nil

	case TypeDeviceMove:
		var body deviceMoveBody
		if err := unmarshalBody(env, &body); err != nil {
			return nil, err
		}
		return &DeviceMove{
			ID: *body.ID,
			X:  float64(*body.X),
			Y:  float64(*body.Y),
		}, nil

	case TypeMultipleMessage:
		if depth >= MaxBatchDepth {
			return nil, fmt.Errorf("%w: %s nested deeper than %d", domain.ErrValidation, env.Type, MaxBatchDepth)
		}
		var body multipleMessageBody
		if err := unmarshalBody(env, &body); err != nil {
			return nil, err
		}
		batch := &MultipleMessage{Messages: make([]Message, 0, len(*body.Messages))}
		for i, raw := range *body.Messages {
			batch.Messages = append(batch.Messages, decodeNested(i, raw, depth+1))
		}
		return batch, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMessageType, env.Type)
	}
}

// decodeNested never fails: a bad entry is kept as *Undecodable at its position
func decodeNested(index int, raw json.RawMessage, depth int) Message {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return &Undecodable{Index: index, Err: fmt.Errorf("messages[%d]: %w", index, err)}
	}
	msg, err := decodeBody(env, depth)
	if err != nil {
		return &Undecodable{Index: index, Tag: env.Type, Err: fmt.Errorf("messages[%d]: %w", index, err)}
	}
	return msg
}

func unmarshalBody(env Envelope, target any) error {
	if err := json.Unmarshal(env.Body, target); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrValidation, env.Type, err)
	}
	if err := validate.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("%w: %s: missing or invalid field(s): %s",
				domain.ErrValidation, env.Type, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrValidation, env.Type, err)
	}
	return nil
}

// Encode builds a frame from a tag and a body
func Encode(msgType string, body any) ([]byte, error) {
	data, err := json.Marshal([2]any{msgType, body})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return data, nil
}

// EncodeMessage builds a frame from a decoded message
func EncodeMessage(m Message) ([]byte, error) {
	if u, ok := m.(*Undecodable); ok {
		return nil, fmt.Errorf("encode: entry %d was never decoded: %w", u.Index, u.Err)
	}
	return Encode(m.MessageType(), m.Body())
}

// EncodeSnapshot builds the Snapshot frame sent when a session opens
func EncodeSnapshot(devices []domain.Device) ([]byte, error) {
	if devices == nil {
		devices = []domain.Device{}
	}
	return Encode(TypeSnapshot, SnapshotBody{Devices: devices})
}

// EncodeError builds an Error frame. applied is reported when non-negative.
func EncodeError(err error, applied int) ([]byte, error) {
	body := ErrorBody{
		Kind:    domain.ErrorKind(err),
		Message: err.Error(),
	}
	if applied >= 0 {
		body.Applied = &applied
	}
	return Encode(TypeError, body)
}

// EncodeAck builds the Ack frame sent after a mutation is persisted
func EncodeAck(applied int) ([]byte, error) {
	return Encode(TypeAck, AckBody{Applied: applied})
}

// DecodeSnapshot parses a Snapshot frame, as a client would
func DecodeSnapshot(frame []byte) ([]domain.Device, error) {
	env, err := DecodeEnvelope(frame)
	if err != nil {
		return nil, err
	}
	if env.Type != TypeSnapshot {
		return nil, fmt.Errorf("%w: expected %s, got %q", domain.ErrUnknownMessageType, TypeSnapshot, env.Type)
	}
	var body SnapshotBody
	if err := json.Unmarshal(env.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	return body.Devices, nil
}
