package domain

type ctxKey string

const (
	RequesterAddressCtxKey ctxKey = "bc-requesterAddress"
)

const (
	RequesterAddressHeader   = "bc-requester-address"
	RequesterSignatureHeader = "bc-requester-signature"
	RequesterTimestampHeader = "bc-requester-timestamp"
)

// Social platforms accepted at the chain boundary, in the order they are
// written to the contract.
const (
	SocialX         = "x"
	SocialFarcaster = "farcaster"
	SocialGithub    = "github"
	SocialLinkedin  = "linkedin"
)

const (
	// ChainBase is Base mainnet.
	ChainBase uint64 = 8453
	// ChainBaseSepolia is the Base testnet.
	ChainBaseSepolia uint64 = 84532
)

// ChainName returns a display name for the known Base networks.
func ChainName(id uint64) string {
	switch id {
	case ChainBase:
		return "Base"
	case ChainBaseSepolia:
		return "Base Sepolia"
	default:
		return "unknown"
	}
}
