package allowance

import (
	"errors"
	"time"
)

// Config holds configuration for the allowance job
type Config struct {
	// Interval between runs
	Interval time.Duration

	// AmountSats is credited to every allowance wallet after it is cleared
	AmountSats int64

	// HostUserID owns HostWalletID, the wallet that receives cleared balances
	HostUserID   string
	HostWalletID string

	// Enabled determines if the background loop runs at all
	Enabled bool
}

// DefaultConfig returns the default allowance configuration
func DefaultConfig() *Config {
	return &Config{
		Interval:   7 * 24 * time.Hour,
		AmountSats: 25000,
		Enabled:    false,
	}
}

// Validate fills defaults and checks the host wallet is set
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		c.Interval = 7 * 24 * time.Hour
	}
	if c.AmountSats <= 0 {
		return errors.New("allowance amount must be positive")
	}
	if c.HostUserID == "" || c.HostWalletID == "" {
		return errors.New("host user and host wallet are required")
	}
	return nil
}
