package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ApplyEnv overrides s from environment variables named prefix followed by
// MERGE_SPAN, MAX_ENTRIES or LOG_LEVEL. Empty values are treated as set.
func (s *Settings) ApplyEnv(prefix string) error {
	if v, ok := os.LookupEnv(prefix + "MERGE_SPAN"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sMERGE_SPAN: %w", prefix, err)
		}
		s.MergeSpan = d
	}
	if v, ok := os.LookupEnv(prefix + "MAX_ENTRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_ENTRIES: %w", prefix, err)
		}
		s.MaxEntries = n
	}
	if v, ok := os.LookupEnv(prefix + "LOG_LEVEL"); ok {
		s.LogLevel = v
	}
	return s.Validate()
}
