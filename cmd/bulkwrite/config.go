// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/ikmak/mongo-bulkwrite/bulk"
)

// Environment variables read after the config file and before the flags.
const (
	envURI       = "BULKWRITE_URI"
	envNamespace = "BULKWRITE_NS"
	envW         = "BULKWRITE_W"
)

type config struct {
	URI            string      `toml:"uri"`
	Namespace      string      `toml:"namespace"`
	Ordered        bool        `toml:"ordered"`
	W              string      `toml:"w"`
	MaxConcurrency int         `toml:"max_concurrency"`
	LogLevel       string      `toml:"log_level"`
	Limits         bulk.Limits `toml:"limits"`
}

func defaultConfig() config {
	return config{Ordered: true}
}

// loadConfigFile overlays the TOML file at path onto cfg.
func loadConfigFile(cfg *config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	if err = toml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parsing config %s", path)
	}
	return nil
}

// loadEnv overlays the environment onto cfg. Files named in envFiles are loaded first and never
// override variables already set; missing files are ignored.
func loadEnv(cfg *config, envFiles ...string) error {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "loading %s", f)
		}
	}

	if v, ok := os.LookupEnv(envURI); ok {
		cfg.URI = v
	}
	if v, ok := os.LookupEnv(envNamespace); ok {
		cfg.Namespace = v
	}
	if v, ok := os.LookupEnv(envW); ok {
		cfg.W = v
	}
	return nil
}

// parseW converts a w value ("majority", a number, or empty) into a write concern.
func parseW(w string) (*writeconcern.WriteConcern, error) {
	switch w {
	case "":
		return nil, nil
	case "majority":
		return writeconcern.New(writeconcern.WMajority()), nil
	}
	n, err := strconv.Atoi(w)
	if err != nil || n < 0 {
		return nil, errors.Errorf("invalid w %q", w)
	}
	return writeconcern.New(writeconcern.W(n)), nil
}
