package config

import (
	"flag"
	"os"
	"time"

	"github.com/avolkonsky/cloudvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   principal token HMAC secret
//	-u string   S3 access key
//	-p string   S3 secret key
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   local fallback storage path ("" disables fallback)
//	-r string   Redis address for the attempt throttle ("" = in-memory)
//	-m int      max password attempts before lockout
//	-w int      lockout window, seconds
//	-t int      storage operation timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-u", "-p", "-g", "-e", "-l", "-r", "-m", "-w", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LocalStoragePath, "l", config.LocalStoragePath, "local fallback storage path")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for attempt throttle")
	fs.Int64Var(&config.MaxPasswordAttempts, "m", config.MaxPasswordAttempts, "max password attempts")

	lockoutWindow := fs.Int("w", int(config.LockoutWindow.Seconds()), "lockout window (in seconds)")
	storageTimeout := fs.Int("t", int(config.StorageTimeout.Seconds()), "storage timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.LockoutWindow = time.Duration(*lockoutWindow) * time.Second
	config.StorageTimeout = time.Duration(*storageTimeout) * time.Second
}
