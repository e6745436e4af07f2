// Package config loads runtime configuration for the chest CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "30s" or
// integer nanoseconds:
//
//	{
//	  "storage": "s3",
//	  "db_path": "data/chest.db",
//	  "kdf": "argon2id",
//	  "request_timeout": "30s",
//	  "oauth": {"client_id": "...", "client_secret": "..."},
//	  "s3": {"endpoint": "http://127.0.0.1:9000", "bucket": "gophchest",
//	         "access_key": "minio", "secret_key": "minio123"}
//	}
//
// Invalid values (unknown storage or kdf, non-positive timeout) panic in
// LoadConfig.
package config
