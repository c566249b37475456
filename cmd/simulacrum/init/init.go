// Package initcmder provides the init command for initializing a local
// .simulacrum directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/simulacrum/pkg/config"
)

const (
	dirName = ".simulacrum"
)

const initLongDesc string = `Initialize a new .simulacrum/ directory in the current working directory.

Creates a local .simulacrum/ directory that takes precedence over the
default ~/.simulacrum/ directory for session state, the memory store,
configuration, and other simulacrum operations. A config.toml with
default values is written if none exists.

This is useful for maintaining separate memory per project or directory.

Use --preset to write a named provider preset (local, ollama, server)
or to fetch a shared config.toml from a URL.

Examples:
  simulacrum init
  simulacrum init --preset local
  simulacrum init --preset https://configs.internal/simulacrum.toml`

const initShortDesc string = "Initialize a local .simulacrum/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Preset name (local, ollama, server) or config URL")

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	alreadyInit := err == nil && info.IsDir()

	if !alreadyInit {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .simulacrum directory: %w", err)
		}
	}

	if err := writeConfig(dir, preset); err != nil {
		return err
	}

	if alreadyInit {
		fmt.Printf("Already initialized: %s\n", dir)
	} else {
		fmt.Printf("Initialized .simulacrum directory: %s\n", dir)
	}
	return nil
}

// writeConfig writes config.toml into dir. A preset always overwrites;
// plain init only writes defaults when no config exists yet.
func writeConfig(dir, preset string) error {
	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if preset == "" {
		if _, err := os.Stat(filepath.Join(dir, "config.toml")); err == nil {
			return nil
		}
		return cfger.SaveConfig(config.NewDefaultConfig())
	}

	cfg, err := resolvePreset(preset)
	if err != nil {
		return err
	}

	return cfger.SaveConfig(cfg)
}

// resolvePreset turns a preset argument into a Config, treating http(s)
// arguments as remote config.toml URLs.
func resolvePreset(preset string) (*config.Config, error) {
	if strings.HasPrefix(preset, "http://") || strings.HasPrefix(preset, "https://") {
		return fetchRemoteConfig(preset)
	}

	return config.PresetConfig(preset)
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
