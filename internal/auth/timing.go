package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelayMs    int
	RandomDelayMs  int
	DelayOnSuccess bool
}

// TimingDelay equalizes the observable duration of authentication failures
// so "unknown account" and "wrong password" are indistinguishable from
// outside.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// Wait sleeps for base + random delay. No-op on success unless configured
// otherwise.
func (td *TimingDelay) Wait(success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}
	time.Sleep(td.delay())
}

// WaitFrom sleeps only for the remainder of the target delay not already
// consumed since startTime.
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}
	target := td.delay()
	if elapsed := time.Since(startTime); elapsed < target {
		time.Sleep(target - elapsed)
	}
}

func (td *TimingDelay) delay() time.Duration {
	base := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs <= 0 {
		return base
	}
	jitter, err := cryptoRandIntn(td.config.RandomDelayMs)
	if err != nil {
		return base
	}
	return base + time.Duration(jitter)*time.Millisecond
}

// cryptoRandIntn returns a secure random number in [0, max). Uses
// crypto/rand because the jitter exists to defeat statistical timing
// analysis.
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint64(buf) % uint64(max)), nil
}
