package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophchest/internal/flagx"
	"github.com/dmitrijs2005/gophchest/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// keep the values already present in Config.
type JsonConfig struct {
	Storage        string          `json:"storage"`
	DBPath         string          `json:"db_path"`
	KDF            string          `json:"kdf"`
	LogLevel       string          `json:"log_level"`
	RequestTimeout *timex.Duration `json:"request_timeout"`

	Drive struct {
		APIURL    string `json:"api_url"`
		UploadURL string `json:"upload_url"`
	} `json:"drive"`

	OAuth struct {
		ClientID      string   `json:"client_id"`
		ClientSecret  string   `json:"client_secret"`
		Scopes        []string `json:"scopes"`
		DeviceAuthURL string   `json:"device_auth_url"`
		TokenURL      string   `json:"token_url"`
	} `json:"oauth"`

	S3 struct {
		Endpoint  string `json:"endpoint"`
		Region    string `json:"region"`
		Bucket    string `json:"bucket"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
		Prefix    string `json:"prefix"`
	} `json:"s3"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without such a flag it does nothing. Read and decode errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.Storage, jc.Storage)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.KDF, jc.KDF)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}

	setString(&cfg.Drive.APIURL, jc.Drive.APIURL)
	setString(&cfg.Drive.UploadURL, jc.Drive.UploadURL)

	setString(&cfg.OAuth.ClientID, jc.OAuth.ClientID)
	setString(&cfg.OAuth.ClientSecret, jc.OAuth.ClientSecret)
	setString(&cfg.OAuth.DeviceAuthURL, jc.OAuth.DeviceAuthURL)
	setString(&cfg.OAuth.TokenURL, jc.OAuth.TokenURL)
	if len(jc.OAuth.Scopes) > 0 {
		cfg.OAuth.Scopes = jc.OAuth.Scopes
	}

	setString(&cfg.S3.Endpoint, jc.S3.Endpoint)
	setString(&cfg.S3.Region, jc.S3.Region)
	setString(&cfg.S3.Bucket, jc.S3.Bucket)
	setString(&cfg.S3.AccessKey, jc.S3.AccessKey)
	setString(&cfg.S3.SecretKey, jc.S3.SecretKey)
	setString(&cfg.S3.Prefix, jc.S3.Prefix)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
