package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
)

// Remote is a named server profile.
type Remote struct {
	URL     string `toml:"url"`                // gRPC address
	HTTPURL string `toml:"http_url,omitempty"` // REST base URL
	Token   string `toml:"token,omitempty"`
}

// RemotesConfig is the remotes.toml file: every known remote and the one in use.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

func errNoRemote(name string) error { return fmt.Errorf("remote %q not found", name) }

// Set adds or replaces a remote.
func (c *RemotesConfig) Set(name string, r Remote) {
	if c.Remotes == nil {
		c.Remotes = map[string]Remote{}
	}
	c.Remotes[name] = r
}

// Remove deletes a remote, clearing Active when it pointed there.
func (c *RemotesConfig) Remove(name string) error {
	if _, ok := c.Remotes[name]; !ok {
		return errNoRemote(name)
	}
	delete(c.Remotes, name)
	if c.Active == name {
		c.Active = ""
	}
	return nil
}

// Use makes name the active remote.
func (c *RemotesConfig) Use(name string) error {
	if _, ok := c.Remotes[name]; !ok {
		return errNoRemote(name)
	}
	c.Active = name
	return nil
}

// Names returns the remote names in sorted order.
func (c *RemotesConfig) Names() []string {
	names := make([]string, 0, len(c.Remotes))
	for name := range c.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// stateDir returns ~/.local/state/jobs, creating it when missing.
func stateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "jobs")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func statePath(name string) (string, error) {
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func loadRemotesConfig() (RemotesConfig, error) {
	cfg := RemotesConfig{Remotes: map[string]Remote{}}
	path, err := statePath("remotes.toml")
	if err != nil {
		return cfg, err
	}
	if err := readTOML(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := statePath("remotes.toml")
	if err != nil {
		return err
	}
	return writeTOML(path, cfg)
}

// editRemotes loads remotes.toml, applies fn and saves the result unless fn fails.
func editRemotes(fn func(*RemotesConfig) error) error {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return err
	}
	if err := fn(&cfg); err != nil {
		return err
	}
	return saveRemotesConfig(cfg)
}

func readTOML(path string, v any) error {
	_, err := toml.DecodeFile(path, v)
	return err
}

// writeTOML replaces path with the encoding of v. The file is written to a
// temporary sibling first and is only ever readable by the owner.
func writeTOML(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := toml.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// activeRemote returns the active remote, loaded once per process. The zero
// Remote means none is configured.
var activeRemote = sync.OnceValue(func() Remote {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return Remote{}
	}
	return cfg.Remotes[cfg.Active]
})
