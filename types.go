package basecard

import (
	"strings"
	"time"
)

const (
	ChannelMintPrefix string = "basecard:mint:"
)

// WellKnown describes this node to clients.
type WellKnown struct {
	Version         string            `json:"version"`
	ChainID         uint64            `json:"chainId"`
	ChainName       string            `json:"chainName"`
	ContractAddress string            `json:"contractAddress"`
	Gateway         string            `json:"gateway"`
	Endpoints       map[string]string `json:"endpoints"`
}

// Event is the envelope carried on the realtime channel.
type Event struct {
	Channel string    `json:"channel"`
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	Time    time.Time `json:"time"`
}

// MintChannel is the pub/sub channel carrying mint progress for address.
// Addresses are compared case-insensitively.
func MintChannel(address string) string {
	return ChannelMintPrefix + strings.ToLower(strings.TrimSpace(address))
}
