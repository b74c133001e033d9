// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

// Duration is a time.Duration that is encoded in JSON as a string with day
// and week units allowed, eg: "1d12h", "15m".
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return str2duration.String(time.Duration(d))
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var secs float64
		if err := json.Unmarshal(data, &secs); err != nil {
			return fmt.Errorf("duration must be a string or seconds: %w", err)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	v, err := str2duration.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("could not parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}
