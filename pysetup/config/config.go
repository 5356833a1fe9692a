// Package config loads the optional INI profile for a setup run.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

const hostSectionPrefix = "hosts."

// Config holds the effective settings for a run. The zero-flag defaults
// reproduce the plain local setup: python resolved from the environment,
// requirements.txt from the working directory, no deadline. A zero Timeout
// means the run waits as long as the installer needs.
type Config struct {
	Python       string
	Requirements string
	Timeout      time.Duration
	HostGroups   map[string][]string
}

// Default returns the built-in settings used when no profile is given.
func Default() *Config {
	return &Config{
		Requirements: "requirements.txt",
		HostGroups:   map[string][]string{},
	}
}

// Load reads a profile file and overlays it on the defaults. A timeout of
// zero (or no timeout key) leaves the run without a deadline.
//
// Format:
//
//	[setup]
//	python = /opt/venv/bin/python
//	requirements = deps/requirements.txt
//	timeout = 30m
//
//	[hosts.workers]
//	host1 = 10.0.0.1
//	host2 = 10.0.0.2
func Load(path string) (*Config, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	c := Default()

	setup := cfg.Section("setup")
	if v := setup.Key("python").String(); v != "" {
		c.Python = v
	}
	if v := setup.Key("requirements").String(); v != "" {
		c.Requirements = v
	}
	if v := setup.Key("timeout").String(); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", v, err)
		}
		c.Timeout = timeout
	}

	for _, section := range cfg.Sections() {
		name := section.Name()
		if !strings.HasPrefix(name, hostSectionPrefix) {
			continue
		}
		group := strings.TrimPrefix(name, hostSectionPrefix)
		for _, key := range section.Keys() {
			c.HostGroups[group] = append(c.HostGroups[group], key.String())
		}
	}

	return c, nil
}

// Hosts flattens the host groups into a single ordered list.
func (c *Config) Hosts() []string {
	var hosts []string
	for _, group := range sortedGroupNames(c.HostGroups) {
		hosts = append(hosts, c.HostGroups[group]...)
	}
	return hosts
}

func sortedGroupNames(groups map[string][]string) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
