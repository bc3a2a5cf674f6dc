package xform

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// Codec decodes the raw bytes a Watcher emits, and option documents
// handed to DecodeOptions.
type Codec interface {
	Unmarshal(data []byte, v any) error

	// ContentType is reported on CapacitorStarted.
	ContentType() string
}

// JSONCodec decodes JSON. With Strict set, unknown fields are an error, so a
// misspelled option name fails instead of being ignored.
type JSONCodec struct {
	Strict bool
}

func (c JSONCodec) Unmarshal(data []byte, v any) error {
	if !c.Strict {
		return json.Unmarshal(data, v)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (JSONCodec) ContentType() string {
	return "application/json"
}

// YAMLCodec decodes YAML. With Strict set, unknown fields are an error.
type YAMLCodec struct {
	Strict bool
}

func (c YAMLCodec) Unmarshal(data []byte, v any) error {
	if !c.Strict {
		return yaml.Unmarshal(data, v)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

var (
	_ Codec = JSONCodec{}
	_ Codec = YAMLCodec{}
)
