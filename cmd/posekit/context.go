package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"posekit/internal/config"
	"posekit/internal/library"
	"posekit/internal/logging"
	"posekit/internal/rig"
)

type commandContext struct {
	configFlag *string
	sceneFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger *slog.Logger
}

func newCommandContext(configFlag, sceneFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		sceneFlag:  sceneFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerFor returns the command logger, writing console output to the
// command's stderr.
func (c *commandContext) loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	c.logger = logger
	return logger, nil
}

// withCatalog opens the catalog and its index for the duration of fn.
func (c *commandContext) withCatalog(cmd *cobra.Command, fn func(*library.Catalog) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return err
	}
	index, err := library.OpenIndex(cfg)
	if err != nil {
		return err
	}
	defer index.Close()
	return fn(library.NewFromConfig(cfg, index, logger))
}

func (c *commandContext) scenePath() (string, error) {
	if c.sceneFlag != nil && strings.TrimSpace(*c.sceneFlag) != "" {
		return config.ExpandPath(strings.TrimSpace(*c.sceneFlag))
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if cfg.Paths.ScenePath == "" {
		return "", errors.New("no scene file: pass --scene or set paths.scene_path")
	}
	return cfg.Paths.ScenePath, nil
}

// loadScene reads the scene file. A missing file yields an empty scene.
func (c *commandContext) loadScene() (*rig.Scene, string, error) {
	path, err := c.scenePath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return rig.NewScene(), path, nil
	}
	scene, err := rig.LoadScene(path)
	if err != nil {
		return nil, "", err
	}
	return scene, path, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
