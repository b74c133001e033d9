// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"fmt"
	"strings"

	"github.com/bvk/cryptoalerts/gobs"
	"github.com/bvk/cryptoalerts/store"
)

func TypeNameValue(typename string) (any, error) {
	var v any
	switch typename {
	case "SentAlert":
		v = new(gobs.SentAlert)
	case "ScannerState":
		v = new(gobs.ScannerState)
	case "TelegramState":
		v = new(gobs.TelegramState)
	case "KeyValue":
		v = new(gobs.KeyValue)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}

// keyTypeName guesses the value type from the key's keyspace.
func keyTypeName(key string) string {
	switch {
	case strings.HasPrefix(key, store.SentKeyspace+"/"), strings.HasPrefix(key, store.HistoryKeyspace+"/"):
		return "SentAlert"
	case strings.HasPrefix(key, store.ScannerKeyspace+"/"):
		return "ScannerState"
	case strings.HasPrefix(key, "/telegram/"):
		return "TelegramState"
	}
	return ""
}
