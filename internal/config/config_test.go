package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/basecard-xyz/basecard/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  postgresDsn: "host=localhost user=postgres dbname=basecard"
  redisAddr: "localhost:6379"
  cleanupTimeout: 10s
chain:
  rpcEndpoint: "https://sepolia.base.org"
  contractAddress: "0x1111111111111111111111111111111111111111"
  privateKey: "abcd"
  confirmTimeout: 90s
contentStore:
  provider: pinata
  pinataJWT: "jwt"
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if config.Server.ListenAddr != ":8000" {
		t.Fatalf("expected default listen addr, got %s", config.Server.ListenAddr)
	}
	if config.Chain.TargetChainID != domain.ChainBaseSepolia {
		t.Fatalf("expected base sepolia by default, got %d", config.Chain.TargetChainID)
	}
	if config.Chain.ConfirmTimeout != 90*time.Second {
		t.Fatalf("unexpected confirm timeout %s", config.Chain.ConfirmTimeout)
	}
	if config.ContentStore.GatewayURL != "https://gateway.pinata.cloud" {
		t.Fatalf("unexpected gateway %s", config.ContentStore.GatewayURL)
	}

	d := config.Domain()
	if d.CleanupTimeout != 10*time.Second || d.TargetChainID != domain.ChainBaseSepolia {
		t.Fatalf("unexpected domain config %+v", d)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"missing dsn": `
chain:
  rpcEndpoint: "http://localhost:8545"
  contractAddress: "0x1111111111111111111111111111111111111111"
  privateKey: "abcd"
contentStore:
  pinataJWT: "jwt"
`,
		"bad contract": `
server:
  postgresDsn: "dsn"
chain:
  rpcEndpoint: "http://localhost:8545"
  contractAddress: "basecard.eth"
  privateKey: "abcd"
contentStore:
  pinataJWT: "jwt"
`,
		"no signer": `
server:
  postgresDsn: "dsn"
chain:
  rpcEndpoint: "http://localhost:8545"
  contractAddress: "0x1111111111111111111111111111111111111111"
contentStore:
  pinataJWT: "jwt"
`,
		"s3 without bucket": `
server:
  postgresDsn: "dsn"
chain:
  rpcEndpoint: "http://localhost:8545"
  contractAddress: "0x1111111111111111111111111111111111111111"
  externalSigner: "http://localhost:8550"
contentStore:
  provider: s3
`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
