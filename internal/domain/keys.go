package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is a signing public key.
type Ed25519Public [32]byte

func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is a signing private key (ed25519.PrivateKey layout).
type Ed25519Private [64]byte

func (k Ed25519Private) Slice() []byte { return k[:] }

// Fixed-size keys are encoded as base64 strings in JSON so the wire and
// on-disk formats stay compact and stable.

func (p X25519Public) MarshalJSON() ([]byte, error)  { return marshalKey(p[:]) }
func (p *X25519Public) UnmarshalJSON(b []byte) error { return unmarshalKey(b, p[:]) }

func (k X25519Private) MarshalJSON() ([]byte, error)  { return marshalKey(k[:]) }
func (k *X25519Private) UnmarshalJSON(b []byte) error { return unmarshalKey(b, k[:]) }

func (p Ed25519Public) MarshalJSON() ([]byte, error)  { return marshalKey(p[:]) }
func (p *Ed25519Public) UnmarshalJSON(b []byte) error { return unmarshalKey(b, p[:]) }

func (k Ed25519Private) MarshalJSON() ([]byte, error)  { return marshalKey(k[:]) }
func (k *Ed25519Private) UnmarshalJSON(b []byte) error { return unmarshalKey(b, k[:]) }

func marshalKey(b []byte) ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

func unmarshalKey(data, dst []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("key: want %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
