package transport

import (
	"encoding/json"
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
)

// Codec marshals envelopes for the wire.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

const (
	CodecCBOR = "cbor"
	CodecJSON = "json"
)

type jsonCodec struct{}

// JSON returns a JSON codec.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string                       { return CodecJSON }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a deterministic CBOR codec (core deterministic encoding).
func CBOR() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}

	return cborCodec{enc: em, dec: dm}, nil
}

func (c cborCodec) Name() string                       { return CodecCBOR }
func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

// CodecByName returns the codec registered under name. An empty name selects
// CBOR.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecCBOR:
		return CBOR()
	case CodecJSON:
		return JSON(), nil
	default:
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
}
