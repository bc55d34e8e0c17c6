// Command shadowdemo renders a scene with the shadow engine, either in a
// window or headless for benchmarking.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shadow-engine/core"
	"shadow-engine/engine"
	"shadow-engine/io"
	"shadow-engine/scene"
	"shadow-engine/shadow"
)

// options are the flags shared by every subcommand.
type options struct {
	config    string
	settings  string
	technique string
	model     string
	verbose   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "shadowdemo",
		Short:        "Render a scene with stencil or texture shadows",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(cmd, opts.verbose)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.config, "config", "c", "", "scene file (.scene.toml); a built-in scene when empty")
	pf.StringVarP(&opts.settings, "settings", "s", "", "shadow settings file (.toml or .yaml)")
	pf.StringVarP(&opts.technique, "technique", "t", "", "shadow technique, overriding the settings")
	pf.StringVarP(&opts.model, "model", "m", "", "glTF model added to the scene as a shadow caster")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(opts), newBenchCmd(opts))
	return root
}

func setupLogger(cmd *cobra.Command, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	core.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}

// loadScene builds the scene described by opts into sm and returns its
// camera and the scene's sun, if any.
func loadScene(sm *engine.SceneManager, opts *options) (*scene.Camera, *scene.Light, error) {
	sf := io.NewDefaultSceneFile("demo")
	dir := ""
	if opts.config != "" {
		var err error
		if sf, err = io.LoadScene(opts.config); err != nil {
			return nil, nil, err
		}
		dir = filepath.Dir(opts.config)
	}
	if opts.model != "" {
		abs, err := filepath.Abs(opts.model)
		if err != nil {
			return nil, nil, err
		}
		sf.Objects = append(sf.Objects, io.ObjectData{
			Name:     filepath.Base(opts.model),
			Position: [3]float32{2, 0, 0},
			Mesh:     "gltf",
			MeshFile: abs,
		})
	}

	cam, err := sf.Build(sm, dir)
	if err != nil {
		return nil, nil, err
	}
	if err := applyShadowFlags(sm.Shadows(), opts); err != nil {
		return nil, nil, err
	}

	var sun *scene.Light
	for _, l := range sm.Lights() {
		if l.Type == scene.LightDirectional {
			sun = l
			break
		}
	}
	return cam, sun, nil
}

// applyShadowFlags applies the settings file and then the technique flag.
func applyShadowFlags(r *shadow.Renderer, opts *options) error {
	if opts.settings != "" {
		s, err := io.LoadSettings(opts.settings)
		if err != nil {
			return err
		}
		if err := s.Apply(r); err != nil {
			return err
		}
	}
	if opts.technique != "" {
		t, err := shadow.ParseTechnique(opts.technique)
		if err != nil {
			return err
		}
		if err := r.SetTechnique(t); err != nil {
			return fmt.Errorf("failed to set technique: %w", err)
		}
	}
	return nil
}
