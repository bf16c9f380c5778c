// Package config loads tilestore's HCL configuration file, grounded in
// the teacher's cmd/maho.go loadConfig (hashicorp/hcl decode into a
// generic map, then apply onto named settings).
package config

import (
	"fmt"
	"io/ioutil"

	"github.com/hashicorp/hcl"
)

// Config holds the settings a deployment cares about: where to listen
// for SQL and admin connections, and how big a fresh tile group is.
type Config struct {
	Proto3Address string `hcl:"proto3_address"`

	SSHEnabled        bool     `hcl:"ssh_enabled"`
	SSHAddress        string   `hcl:"ssh_address"`
	SSHHostKeyFiles   []string `hcl:"ssh_host_key_files"`
	SSHAuthorizedKeys string   `hcl:"ssh_authorized_keys"`

	GroupCapacity int `hcl:"group_capacity"`
}

// Default returns the configuration tilestore runs with when no config
// file is given.
func Default() Config {
	return Config{
		Proto3Address: "localhost:35432",
		SSHAddress:    "localhost:2222",
		GroupCapacity: 1024,
	}
}

// Load reads and decodes an HCL config file at path, starting from
// Default and overriding only the fields the file sets.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := hcl.Decode(&cfg, string(b)); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}
