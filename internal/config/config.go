// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package config implements the layered configuration model: CLI flags,
// an optional JSON override file (-c), and an optional .env-style
// secrets file (-envfile) so the pre-shared key need not appear in argv
// or shell history.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/hashicorp/go-envparse"
	"github.com/pkg/errors"
)

// Config is the fully resolved set of knobs rsockd runs with.
type Config struct {
	Listen               string        `json:"listen"`
	Key                  string        `json:"key"`
	TargetTimeout        time.Duration `json:"-"`
	TargetTimeoutSeconds int           `json:"target_timeout"`
	CloseWait            int           `json:"closewait"`
	MetricsListen        string        `json:"metrics_listen"`
	Pprof                bool          `json:"pprof"`
	Log                  string        `json:"log"`
	Quiet                bool          `json:"quiet"`
}

// ParseJSONFile decodes a JSON config file on top of cfg, overriding
// any field present in the file.
func ParseJSONFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "config: opening %s", path)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return errors.Wrapf(err, "config: decoding %s", path)
	}
	return nil
}

// LoadEnvFile parses name as a .env-style secrets file (KEY=VALUE per
// line) via go-envparse, returning it as a string slice in os.Environ
// form.
func LoadEnvFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "config: opening env file %s", name)
	}
	defer f.Close()

	m, err := envparse.Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "config: parsing env file %s", name)
	}

	var r []string
	for k, v := range m {
		r = append(r, k+"="+v)
	}
	return r, nil
}

// ApplyEnvKey looks up key in the env-file lines produced by LoadEnvFile
// and, if present, overrides dst. Used to let -envfile carry the
// pre-shared key without it ever appearing in argv or shell history.
func ApplyEnvKey(dst *string, env []string, key string) {
	prefix := key + "="
	for _, kv := range env {
		if len(kv) > len(prefix) && kv[:len(prefix)] == prefix {
			*dst = kv[len(prefix):]
			return
		}
	}
}

// ResolveTargetTimeout fills in TargetTimeout from TargetTimeoutSeconds,
// defaulting to 10 seconds when unset or invalid.
func (c *Config) ResolveTargetTimeout() {
	if c.TargetTimeoutSeconds <= 0 {
		c.TargetTimeout = 10 * time.Second
		return
	}
	c.TargetTimeout = time.Duration(c.TargetTimeoutSeconds) * time.Second
}
