package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kestrel-broker/kestrel/internal/config"
	"github.com/kestrel-broker/kestrel/internal/output"
	"github.com/kestrel-broker/kestrel/internal/store"
)

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	config.LoadFromEnv(cfg)
	if pgDSN != "" {
		cfg.Postgres.DSN = pgDSN
	}
	return cfg, nil
}

func getStore() (*store.PostgresStore, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	s, err := store.NewPostgresStore(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return s, cfg, nil
}

func printer() *output.Printer {
	return output.NewPrinter(output.ParseFormat(outputFmt))
}

// readJSONArg decodes a positional argument as JSON. An argument prefixed
// with '@' names a file whose contents are decoded instead.
func readJSONArg(arg string, out any) error {
	var data []byte
	if len(arg) > 0 && arg[0] == '@' {
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return err
		}
		data = b
	} else {
		data = []byte(arg)
	}
	return json.Unmarshal(data, out)
}
