package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

type serverJSON struct {
	Address       *string `json:"address"`
	NodeID        *string `json:"node_id"`
	Restore       *bool   `json:"restore"`
	StoreInterval *string `json:"store_interval"` // "1s"
	PollInterval  *string `json:"poll_interval"`  // "10s"
	StoreFile     *string `json:"store_file"`
	DatabaseDSN   *string `json:"database_dsn"`
	TrustedSubnet *string `json:"trusted_subnet"`
}

func loadServerJSON(path string) (*serverJSON, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg serverJSON
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseDurationSeconds accepts either "300" or a Go duration like "5m".
func parseDurationSeconds(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return int(d / time.Second), nil
}
