// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
)

// SignatureInfo is the parsed contents of an archive's "(signature)"
// special file.
type SignatureInfo struct {
	Version   uint32
	Signature []byte
}

// ReadSignature reads and parses the archive's "(signature)" file, if
// present. A nil, nil result means the archive is unsigned.
func (a *Archive) ReadSignature() (*SignatureInfo, error) {
	data, err := a.ReadFile("(signature)")
	if err != nil {
		return nil, nil
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("mpq: signature data too small: %d bytes", len(data))
	}

	version := binary.LittleEndian.Uint32(data[0:4])
	sigLen := binary.LittleEndian.Uint32(data[4:8])
	if len(data) < int(8+sigLen) {
		return nil, fmt.Errorf("mpq: signature data truncated: want %d bytes, have %d", 8+sigLen, len(data))
	}

	sig := make([]byte, sigLen)
	copy(sig, data[8:8+sigLen])
	return &SignatureInfo{Version: version, Signature: sig}, nil
}

// Validate checks the signature's declared length against the minimum size
// Blizzard's weak (RSA-512) and strong (RSA-2048) signature schemes use.
// Full cryptographic verification needs the corresponding public key, which
// is out of scope here; this only catches structurally invalid signatures.
func (s *SignatureInfo) Validate() error {
	if s == nil {
		return fmt.Errorf("mpq: no signature present")
	}
	switch s.Version {
	case 0:
		if len(s.Signature) < 64 {
			return fmt.Errorf("mpq: weak signature too short: %d bytes", len(s.Signature))
		}
	case 1:
		if len(s.Signature) < 256 {
			return fmt.Errorf("mpq: strong signature too short: %d bytes", len(s.Signature))
		}
	default:
		return fmt.Errorf("mpq: unknown signature version %d", s.Version)
	}
	return nil
}
