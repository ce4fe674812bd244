package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "NETVIZ_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "netviz.yaml"
	// ConfigDirName is the directory under XDG and /etc
	ConfigDirName = "netviz"
)

// SearchPaths lists config file candidates, highest priority first:
// $NETVIZ_CONFIG, ./netviz.yaml, $XDG_CONFIG_HOME/netviz/config.yaml,
// ~/.config/netviz/config.yaml, /etc/netviz/config.yaml
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	} else {
		paths = append(paths, ConfigFileName)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing candidate from SearchPaths, or
// "" when there is none
func FindConfigPath() string {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
