package cache

import "github.com/bytedance/sonic"

// Codec serialises cached values.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type sonicCodec struct{}

// SonicCodec encodes values as JSON using bytedance/sonic.
func SonicCodec() Codec {
	return sonicCodec{}
}

func (sonicCodec) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (sonicCodec) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}
