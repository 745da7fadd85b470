package domain

import "time"

// Config is the slice of configuration the usecases and handlers need.
type Config struct {
	TargetChainID    uint64
	ContractAddress  string
	GatewayURL       string
	ConfirmTimeout   time.Duration
	CleanupTimeout   time.Duration
	AuthMaxClockSkew time.Duration
}
