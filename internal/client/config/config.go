package config

import (
	"time"

	"github.com/dmitrijs2005/gophchest/internal/cryptox"
)

// Storage backends.
const (
	StorageDrive  = "drive"
	StorageS3     = "s3"
	StorageMemory = "memory"
)

// Key derivation functions selectable for new chests.
const (
	KDFArgon2id = "argon2id"
	KDFPBKDF2   = "pbkdf2"
)

// Config holds runtime settings of the chest CLI.
type Config struct {
	Storage        string
	DBPath         string
	KDF            string
	LogLevel       string
	RequestTimeout time.Duration

	Drive DriveConfig
	OAuth OAuthConfig
	S3    S3Config
}

type DriveConfig struct {
	APIURL    string
	UploadURL string
}

type OAuthConfig struct {
	ClientID      string
	ClientSecret  string
	Scopes        []string
	DeviceAuthURL string
	TokenURL      string
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Storage = StorageDrive
	c.DBPath = "data/chest.db"
	c.KDF = KDFArgon2id
	c.LogLevel = "warn"
	c.RequestTimeout = 30 * time.Second

	c.Drive = DriveConfig{
		APIURL:    "https://www.googleapis.com/drive/v2",
		UploadURL: "https://www.googleapis.com/upload/drive/v2",
	}
	c.OAuth = OAuthConfig{
		Scopes:        []string{"email", "https://www.googleapis.com/auth/drive.file"},
		DeviceAuthURL: "https://oauth2.googleapis.com/device/code",
		TokenURL:      "https://oauth2.googleapis.com/token",
	}
	c.S3 = S3Config{
		Region: "us-east-1",
		Bucket: "gophchest",
	}
}

// Codec returns the cipher codec for the selected KDF.
func (c *Config) Codec() cryptox.Codec {
	if c.KDF == KDFPBKDF2 {
		return cryptox.PBKDF2Codec
	}
	return cryptox.DefaultCodec
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	validate(cfg)
	return cfg
}

// validate panics on values no component can work with.
func validate(cfg *Config) {
	switch cfg.Storage {
	case StorageDrive, StorageS3, StorageMemory:
	default:
		panic("unknown storage " + cfg.Storage)
	}
	switch cfg.KDF {
	case KDFArgon2id, KDFPBKDF2:
	default:
		panic("unknown kdf " + cfg.KDF)
	}
	if cfg.RequestTimeout <= 0 {
		panic("request timeout must be positive")
	}
}
