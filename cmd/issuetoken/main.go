// Command issuetoken は /v1 ルート用のデバイスJWTを発行します。
//
//	JWT_SECRET=... go run ./cmd/issuetoken -device kiosk-01 -ttl 720h
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"ecosort_backend/internal/app/config"
	jwtmw "ecosort_backend/internal/platform/jwt"
)

func main() {
	device := flag.String("device", "", "device id stored in the sub claim")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	config.LoadDotEnv()

	if err := issue(os.Stdout, os.Getenv("JWT_SECRET"), *device, *ttl); err != nil {
		slog.Error("failed to issue token", "error", err)
		os.Exit(1)
	}
}

func issue(w io.Writer, secret, deviceID string, ttl time.Duration) error {
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %s", ttl)
	}
	token, err := jwtmw.NewGenerator(secret, ttl).GenerateToken(deviceID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
