// Copyright (c) 2025 BVK Chaitanya

// Package gobs defines the records persisted in the key-value store. All
// values are gob encoded.
package gobs

import (
	"bytes"
	"encoding/gob"
)

func Clone[PT *T, T any](v PT) (PT, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	x := new(T)
	if err := gob.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(x); err != nil {
		return nil, err
	}
	return x, nil
}

// KeyValue is the record format of database backup files.
type KeyValue struct {
	Key   string
	Value []byte
}
