/*
Copyright 2025 The Antfly Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package json provides a configurable JSON encoding/decoding layer shared by
// azrest, azgraph, and openapi. It defaults to github.com/bytedance/sonic for
// throughput on the hot path (request bodies, paginated list payloads,
// Resource Graph rows) but can be swapped back to encoding/json or any other
// implementation via SetConfig, which matters for the generator's codegen
// package: emitted client code must not assume sonic is vendored into the
// consumer's module.
//
// Usage:
//
//	import json "github.com/llamazure/azrest-go/libaf/json"
//
//	data, err := json.Marshal(v)
//	err = json.Unmarshal(data, &v)
package json

import (
	"io"

	stdjson "encoding/json"

	"github.com/bytedance/sonic"
)

// Encoder is the interface for streaming JSON encoding.
type Encoder interface {
	Encode(v any) error
}

// Decoder is the interface for streaming JSON decoding.
type Decoder interface {
	Decode(v any) error
}

// Config holds the JSON encoding/decoding functions in use.
type Config struct {
	Marshal         func(v any) ([]byte, error)
	MarshalIndent   func(v any, prefix, indent string) ([]byte, error)
	MarshalString   func(v any) (string, error)
	Unmarshal       func(data []byte, v any) error
	UnmarshalString func(s string, v any) error
	NewEncoder      func(w io.Writer) Encoder
	NewDecoder      func(r io.Reader) Decoder
}

// SonicConfig returns the default configuration, backed by sonic.
func SonicConfig() Config {
	return Config{
		Marshal:         sonic.Marshal,
		MarshalIndent:   sonic.MarshalIndent,
		MarshalString:   sonic.MarshalString,
		Unmarshal:       sonic.Unmarshal,
		UnmarshalString: sonic.UnmarshalString,
		NewEncoder: func(w io.Writer) Encoder {
			return sonic.ConfigDefault.NewEncoder(w)
		},
		NewDecoder: func(r io.Reader) Decoder {
			return sonic.ConfigDefault.NewDecoder(r)
		},
	}
}

// StdConfig returns a configuration backed by the standard library, useful
// in code emitted by the generator for a consumer that does not vendor sonic.
func StdConfig() Config {
	return Config{
		Marshal:       stdjson.Marshal,
		MarshalIndent: stdjson.MarshalIndent,
		MarshalString: func(v any) (string, error) {
			data, err := stdjson.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
		Unmarshal: stdjson.Unmarshal,
		UnmarshalString: func(s string, v any) error {
			return stdjson.Unmarshal([]byte(s), v)
		},
		NewEncoder: func(w io.Writer) Encoder {
			return stdjson.NewEncoder(w)
		},
		NewDecoder: func(r io.Reader) Decoder {
			return stdjson.NewDecoder(r)
		},
	}
}

var config = SonicConfig()

// SetConfig sets the global JSON configuration.
func SetConfig(c Config) {
	config = c
}

// GetConfig returns the current JSON configuration.
func GetConfig() Config {
	return config
}

// Marshal returns the JSON encoding of v, with nulls omitted per struct tags.
func Marshal(v any) ([]byte, error) {
	return config.Marshal(v)
}

// MarshalIndent is like Marshal but applies Indent to format the output.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return config.MarshalIndent(v, prefix, indent)
}

// MarshalString returns the JSON encoding of v as a string.
func MarshalString(v any) (string, error) {
	return config.MarshalString(v)
}

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return config.Unmarshal(data, v)
}

// UnmarshalString parses the JSON-encoded string and stores the result in v.
func UnmarshalString(s string, v any) error {
	return config.UnmarshalString(s, v)
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) Encoder {
	return config.NewEncoder(w)
}

// NewDecoder returns a new Decoder that reads from r.
func NewDecoder(r io.Reader) Decoder {
	return config.NewDecoder(r)
}

// RawMessage is a raw encoded JSON value, used to defer decoding of batch
// sub-response content and Graph result rows until the declared return type
// is known.
type RawMessage = stdjson.RawMessage

// Marshaler is the interface implemented by types that marshal themselves.
type Marshaler = stdjson.Marshaler

// Unmarshaler is the interface implemented by types that unmarshal themselves.
type Unmarshaler = stdjson.Unmarshaler
