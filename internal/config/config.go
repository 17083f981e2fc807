package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const (
	// DefaultPresenceWindow bounds how stale a non-offline presence record
	// may be before snapshots stop reporting it.
	DefaultPresenceWindow = 30 * time.Second
	// DefaultRoomCapacity is applied to rooms created without an explicit
	// participant limit.
	DefaultRoomCapacity = 50
)

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
	PresenceWindow time.Duration
	RoomCapacity   int
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string, presenceWindow time.Duration) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if presenceWindow <= 0 {
		presenceWindow = DefaultPresenceWindow
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		PresenceWindow: presenceWindow,
		RoomCapacity:   DefaultRoomCapacity,
	}, nil
}
