package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"

	"github.com/basecard-xyz/basecard"
	"github.com/basecard-xyz/basecard/internal/domain"
)

type Config struct {
	Server       Server       `yaml:"server"`
	Chain        Chain        `yaml:"chain"`
	ContentStore ContentStore `yaml:"contentStore"`
	Card         Card         `yaml:"card"`
}

type Server struct {
	ListenAddr     string        `yaml:"listenAddr"`
	PostgresDsn    string        `yaml:"postgresDsn"`
	RedisAddr      string        `yaml:"redisAddr"`
	RedisPassword  string        `yaml:"redisPassword"`
	RedisDB        int           `yaml:"redisDB"`
	MemcachedAddr  string        `yaml:"memcachedAddr"`
	EnableTrace    bool          `yaml:"enableTrace"`
	TraceEndpoint  string        `yaml:"traceEndpoint"`
	AuthClockSkew  time.Duration `yaml:"authClockSkew"`
	CleanupTimeout time.Duration `yaml:"cleanupTimeout"`
}

type Chain struct {
	RPCEndpoint         string        `yaml:"rpcEndpoint"`
	ContractAddress     string        `yaml:"contractAddress"`
	TargetChainID       uint64        `yaml:"targetChainID"`
	PrivateKey          string        `yaml:"privateKey"`
	ExternalSigner      string        `yaml:"externalSigner"` // clef endpoint, takes precedence over privateKey
	ReceiptPollInterval time.Duration `yaml:"receiptPollInterval"`
	ConfirmTimeout      time.Duration `yaml:"confirmTimeout"`
}

type ContentStore struct {
	Provider        string `yaml:"provider"` // pinata, s3
	GatewayURL      string `yaml:"gatewayURL"`
	PinataJWT       string `yaml:"pinataJWT"`
	PinataUploadURL string `yaml:"pinataUploadURL"`
	PinataAPIURL    string `yaml:"pinataAPIURL"`
	S3Endpoint      string `yaml:"s3Endpoint"`
	S3Region        string `yaml:"s3Region"`
	S3Bucket        string `yaml:"s3Bucket"`
	S3AccessKey     string `yaml:"s3AccessKey"`
	S3SecretKey     string `yaml:"s3SecretKey"`
}

type Card struct {
	TemplatePath            string `yaml:"templatePath"`
	DefaultProfileImagePath string `yaml:"defaultProfileImagePath"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	config.applyDefaults()

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8000"
	}
	if c.Chain.TargetChainID == 0 {
		c.Chain.TargetChainID = domain.ChainBaseSepolia
	}
	if c.Chain.ReceiptPollInterval <= 0 {
		c.Chain.ReceiptPollInterval = 2 * time.Second
	}
	if c.Chain.ConfirmTimeout <= 0 {
		c.Chain.ConfirmTimeout = 3 * time.Minute
	}
	if c.ContentStore.Provider == "" {
		c.ContentStore.Provider = "pinata"
	}
	if c.ContentStore.GatewayURL == "" {
		c.ContentStore.GatewayURL = "https://gateway.pinata.cloud"
	}
}

func (c Config) Validate() error {
	if c.Server.PostgresDsn == "" {
		return fmt.Errorf("server.postgresDsn is required")
	}
	if c.Chain.RPCEndpoint == "" {
		return fmt.Errorf("chain.rpcEndpoint is required")
	}
	if !basecard.IsAddress(c.Chain.ContractAddress) {
		return fmt.Errorf("chain.contractAddress %q is not a valid address", c.Chain.ContractAddress)
	}
	if c.Chain.PrivateKey == "" && c.Chain.ExternalSigner == "" {
		return fmt.Errorf("one of chain.privateKey or chain.externalSigner is required")
	}
	switch c.ContentStore.Provider {
	case "pinata":
		if c.ContentStore.PinataJWT == "" {
			return fmt.Errorf("contentStore.pinataJWT is required for the pinata provider")
		}
	case "s3":
		if c.ContentStore.S3Bucket == "" {
			return fmt.Errorf("contentStore.s3Bucket is required for the s3 provider")
		}
	default:
		return fmt.Errorf("unknown contentStore.provider %q", c.ContentStore.Provider)
	}
	return nil
}

// Domain returns the settings the usecases and handlers consume.
func (c Config) Domain() domain.Config {
	return domain.Config{
		TargetChainID:    c.Chain.TargetChainID,
		ContractAddress:  c.Chain.ContractAddress,
		GatewayURL:       c.ContentStore.GatewayURL,
		ConfirmTimeout:   c.Chain.ConfirmTimeout,
		CleanupTimeout:   c.Server.CleanupTimeout,
		AuthMaxClockSkew: c.Server.AuthClockSkew,
	}
}
