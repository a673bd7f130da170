// Package config provides application configuration structures and helpers.
package config

import (
	"flag"
	"log"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// ServerConfig holds the configuration settings for the node.
type ServerConfig struct {
	Addr            string // Admin HTTP server address
	NodeID          string // Node identifier in the replicated store
	Logger          *zap.SugaredLogger
	StoreInterval   int    // Interval for flushing the in-memory store to file (in seconds)
	FileStoragePath string // Path to the store snapshot file
	Restore         bool   // Whether to restore the store from file on startup
	DatabaseDsn     string // Data Source Name for the PostgreSQL store backend
	PollInterval    int    // Interval for collecting node counters (in seconds)
	Key             string // Key for hash verification on the admin API
	TrustedSubnet   string // CIDR, ex. "192.168.1.0/24"
}

// NewServerConfig creates and returns a new ServerConfig with defaults
// overridden by flags, then a JSON config file, then environment variables.
func NewServerConfig() *ServerConfig {
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stdout", "statadmin.log"}
	logger := zap.Must(logCfg.Build())

	// 0) defaults
	cfg := &ServerConfig{
		Addr:            "localhost:8080",
		NodeID:          defaultNodeID(),
		StoreInterval:   300,
		FileStoragePath: "./tmp/statadmin-db.json",
		Restore:         true,
		PollInterval:    10,
	}

	// 1) flags
	var fAddr strFlag
	fAddr.v = cfg.Addr
	var fNode strFlag
	fNode.v = cfg.NodeID
	var fStoreI intFlag
	fStoreI.v = cfg.StoreInterval
	var fFile strFlag
	fFile.v = cfg.FileStoragePath
	var fRestore boolFlag
	fRestore.v = cfg.Restore
	var fPollI intFlag
	fPollI.v = cfg.PollInterval
	var fDSN strFlag
	var fKey strFlag
	var fConf strFlag // -c / -config
	var fTrustedSubnet strFlag

	flag.Var(&fAddr, "a", "admin HTTP server address")
	flag.Var(&fNode, "n", "node identifier")
	flag.Var(&fStoreI, "i", "store flush interval (seconds)")
	flag.Var(&fFile, "f", "path to store snapshot file")
	flag.Var(&fRestore, "r", "restore store from file")
	flag.Var(&fPollI, "p", "counter poll interval (seconds)")
	flag.Var(&fDSN, "d", "DB connection string")
	flag.Var(&fKey, "k", "Hash key string")
	flag.Var(&fConf, "c", "Path to JSON config file")
	flag.Var(&fConf, "config", "Path to JSON config file (alias)")
	flag.Var(&fTrustedSubnet, "t", "trusted subnet")
	flag.Parse()

	cfg.Addr = fAddr.v
	cfg.NodeID = fNode.v
	cfg.StoreInterval = fStoreI.v
	cfg.FileStoragePath = fFile.v
	cfg.Restore = fRestore.v
	cfg.PollInterval = fPollI.v
	cfg.DatabaseDsn = fDSN.v
	cfg.Key = fKey.v
	cfg.TrustedSubnet = fTrustedSubnet.v

	// 2) JSON (lowest priority, fills only what flags left untouched)
	if fConf.v == "" {
		if v := os.Getenv("CONFIG"); v != "" {
			fConf.v = v
		}
	}

	if fConf.v != "" {
		if js, err := loadServerJSON(fConf.v); err == nil {
			if js.Address != nil && !fAddr.set {
				cfg.Addr = *js.Address
			}
			if js.NodeID != nil && !fNode.set {
				cfg.NodeID = *js.NodeID
			}
			if js.Restore != nil && !fRestore.set {
				cfg.Restore = *js.Restore
			}
			if js.StoreInterval != nil && !fStoreI.set {
				if sec, err := parseDurationSeconds(*js.StoreInterval); err == nil {
					cfg.StoreInterval = sec
				}
			}
			if js.PollInterval != nil && !fPollI.set {
				if sec, err := parseDurationSeconds(*js.PollInterval); err == nil {
					cfg.PollInterval = sec
				}
			}
			if js.StoreFile != nil && !fFile.set {
				cfg.FileStoragePath = *js.StoreFile
			}
			if js.DatabaseDSN != nil && !fDSN.set {
				cfg.DatabaseDsn = *js.DatabaseDSN
			}
			if js.TrustedSubnet != nil && !fTrustedSubnet.set {
				cfg.TrustedSubnet = *js.TrustedSubnet
			}
		}
	}

	// 3) environment wins
	readServerEnvironment(cfg)

	cfg.Logger = logger.Sugar()
	return cfg
}

func readServerEnvironment(cfg *ServerConfig) {
	if addr := os.Getenv("ADDRESS"); addr != "" {
		cfg.Addr = addr
	}

	if node := os.Getenv("NODE_ID"); node != "" {
		cfg.NodeID = node
	}

	storeIntervalEnv := os.Getenv("STORE_INTERVAL")
	if storeIntervalEnv != "" {
		v, err := strconv.Atoi(storeIntervalEnv)
		if err == nil {
			cfg.StoreInterval = v
		} else {
			log.Printf("invalid STORE_INTERVAL env var: %v", err)
		}
	}

	pollIntervalEnv := os.Getenv("POLL_INTERVAL")
	if pollIntervalEnv != "" {
		v, err := strconv.Atoi(pollIntervalEnv)
		if err == nil {
			cfg.PollInterval = v
		} else {
			log.Printf("invalid POLL_INTERVAL env var: %v", err)
		}
	}

	if fsp := os.Getenv("FILE_STORAGE_PATH"); fsp != "" {
		cfg.FileStoragePath = fsp
	}

	if dbDsn := os.Getenv("DATABASE_DSN"); dbDsn != "" {
		cfg.DatabaseDsn = dbDsn
	}

	restoreEnv := os.Getenv("RESTORE")
	if restoreEnv != "" {
		v, err := strconv.ParseBool(restoreEnv)
		if err == nil {
			cfg.Restore = v
		} else {
			log.Printf("invalid RESTORE env var: %v", err)
		}
	}

	if key := os.Getenv("KEY"); key != "" {
		cfg.Key = key
	}

	if trustedSubnet := os.Getenv("TRUSTED_SUBNET"); trustedSubnet != "" {
		cfg.TrustedSubnet = trustedSubnet
	}
}

func defaultNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "node0"
	}
	return host
}
