package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchest/internal/flagx"
)

var knownFlags = []string{"-s", "-d", "-e", "-b", "-t", "-k", "-l"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-s string   storage backend: drive, s3 or memory
//	-d string   path of the local SQLite database
//	-e string   S3 endpoint (MinIO and other compatible stores)
//	-b string   S3 bucket
//	-t int      request timeout in seconds
//	-k string   key derivation for new chests: argon2id or pbkdf2
//	-l string   log level: debug, info, warn or error
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by
// other loaders (-c/-config) do not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Storage, "s", cfg.Storage, "storage backend (drive|s3|memory)")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database path")
	fs.StringVar(&cfg.S3.Endpoint, "e", cfg.S3.Endpoint, "S3 endpoint")
	fs.StringVar(&cfg.S3.Bucket, "b", cfg.S3.Bucket, "S3 bucket")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.KDF, "k", cfg.KDF, "key derivation for new chests (argon2id|pbkdf2)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
