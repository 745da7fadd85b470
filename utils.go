package basecard

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func JsonPrint(tag string, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%s: error marshaling: %v\n", tag, err)
		return
	}
	fmt.Printf("%s: %s\n", tag, string(b))
}

// ComposeIPFSURI returns the ipfs:// form of a content identifier.
func ComposeIPFSURI(cid string) string {
	u := &url.URL{
		Scheme: "ipfs",
		Host:   cid,
	}
	return u.String()
}

// ParseIPFSURI extracts the cid (and optional path) from an ipfs:// URI.
func ParseIPFSURI(escaped string) (string, string, error) {
	uriString, err := url.QueryUnescape(escaped)
	if err != nil {
		return "", "", fmt.Errorf("invalid uri encoding")
	}
	uri, err := url.Parse(uriString)
	if err != nil {
		return "", "", fmt.Errorf("invalid uri")
	}

	if uri.Scheme != "ipfs" {
		return "", "", fmt.Errorf("unsupported uri scheme")
	}
	if uri.Host == "" {
		return "", "", fmt.Errorf("missing cid")
	}

	return uri.Host, strings.TrimPrefix(uri.Path, "/"), nil
}

// GatewayURL resolves cid through an HTTP gateway such as
// https://gateway.pinata.cloud.
func GatewayURL(gateway, cid string) string {
	return strings.TrimSuffix(gateway, "/") + "/ipfs/" + cid
}

// NormalizeAddress returns the EIP-55 checksum form of a hex address.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

func IsAddress(address string) bool {
	return common.IsHexAddress(strings.TrimSpace(address))
}
