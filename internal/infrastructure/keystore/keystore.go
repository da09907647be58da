package keystore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrKeyNotFound is returned for unknown key ids.
var ErrKeyNotFound = errors.New("key not found")

// StaticKeyStore holds history signing keys in memory.
type StaticKeyStore struct {
	keys         map[string][]byte
	defaultKeyID string
}

// Parse builds a keystore from a key list of the form "keyId:hex,keyId2:hex".
// defaultKeyID selects the key new rows are signed with; it may be empty when
// raw is empty, in which case rows are left unsigned.
func Parse(raw, defaultKeyID string) (*StaticKeyStore, error) {
	keys := make(map[string][]byte)
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.New("invalid signing key format, want keyId:hex")
		}
		b, err := hex.DecodeString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("signing key %s: %w", parts[0], err)
		}
		if len(b) < 16 {
			return nil, fmt.Errorf("signing key %s: must be at least 16 bytes", parts[0])
		}
		keys[parts[0]] = b
	}

	if defaultKeyID == "" && len(keys) == 1 {
		for id := range keys {
			defaultKeyID = id
		}
	}
	if defaultKeyID != "" {
		if _, ok := keys[defaultKeyID]; !ok {
			return nil, fmt.Errorf("default signing key %s: %w", defaultKeyID, ErrKeyNotFound)
		}
	}
	return &StaticKeyStore{keys: keys, defaultKeyID: defaultKeyID}, nil
}

// Enabled reports whether new rows will be signed.
func (s *StaticKeyStore) Enabled() bool {
	return s != nil && s.defaultKeyID != ""
}

func (s *StaticKeyStore) GetKey(ctx context.Context, keyID string) ([]byte, error) {
	_ = ctx
	key, ok := s.keys[keyID]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// SigningKey returns the key new rows are signed with.
func (s *StaticKeyStore) SigningKey(ctx context.Context) (keyID string, key []byte, err error) {
	if !s.Enabled() {
		return "", nil, errors.New("default key not configured")
	}
	key, err = s.GetKey(ctx, s.defaultKeyID)
	return s.defaultKeyID, key, err
}
