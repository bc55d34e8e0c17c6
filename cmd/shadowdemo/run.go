package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"shadow-engine/core"
	"shadow-engine/engine"
	"shadow-engine/internal/opengl"
	"shadow-engine/io"
	"shadow-engine/renderer"
	"shadow-engine/shadow"
	"shadow-engine/textures"
)

type runOptions struct {
	width  int
	height int
	watch  bool
	vsync  bool
}

func newRunCmd(opts *options) *cobra.Command {
	ro := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open a window and render the scene",
		Long: `Open a window and render the scene.

Keys: 0 no shadows, 1 stencil modulative, 2 stencil additive,
3 texture modulative, 4 texture additive, D debug volumes, Esc quit.
Click an object to toggle whether it casts shadows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindow(cmd.Context(), opts, ro)
		},
	}
	f := cmd.Flags()
	f.IntVar(&ro.width, "width", 1280, "window width")
	f.IntVar(&ro.height, "height", 720, "window height")
	f.BoolVarP(&ro.watch, "watch", "w", false, "reload the settings file when it changes")
	f.BoolVar(&ro.vsync, "vsync", true, "wait for vertical sync")
	return cmd
}

var techniqueKeys = map[int]shadow.Technique{
	core.Key0: shadow.None,
	core.Key1: shadow.StencilModulative,
	core.Key2: shadow.StencilAdditive,
	core.Key3: shadow.TextureModulative,
	core.Key4: shadow.TextureAdditive,
}

func runWindow(ctx context.Context, opts *options, ro *runOptions) error {
	if ro.watch && opts.settings == "" {
		return fmt.Errorf("--watch needs --settings")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := core.DefaultWindowConfig()
	cfg.Width, cfg.Height, cfg.VSync = ro.width, ro.height, ro.vsync
	window, err := core.NewWindow(cfg)
	if err != nil {
		return err
	}
	defer window.Destroy()

	texDir := ""
	if opts.config != "" {
		texDir = filepath.Dir(opts.config)
	}
	rs, err := opengl.New(textures.NewManager(texDir))
	if err != nil {
		return err
	}
	defer rs.Destroy()

	sm := engine.NewSceneManager("demo", rs, nil)
	cam, sun, err := loadScene(sm, opts)
	if err != nil {
		return err
	}
	vp := renderer.NewViewport(cam, nil, window.Width, window.Height)
	vp.Background = core.Color{R: 0.35, G: 0.45, B: 0.6, A: 1}
	vp.ClearBuffers |= renderer.BufferStencil
	vp.Source = sm

	var reloads <-chan io.Reload
	if ro.watch {
		if reloads, err = io.Watch(ctx, opts.settings); err != nil {
			return err
		}
	}

	debug := false
	window.SetKeyCallback(func(key int) {
		switch key {
		case core.KeyEscape:
			window.Handle.SetShouldClose(true)
		case core.KeyD:
			debug = !debug
			sm.Shadows().SetShowDebugShadows(debug)
		default:
			if t, ok := techniqueKeys[key]; ok {
				if err := sm.Shadows().SetTechnique(t); err != nil {
					core.Logger().Error("shadowdemo: technique change failed", "technique", t, "err", err)
				}
			}
		}
	})

	window.SetClickCallback(func(x, y float64) {
		w, h := window.WindowSize()
		hit, ok := sm.Pick(cam.ScreenRay(float32(x), float32(y), float32(w), float32(h)))
		if !ok {
			return
		}
		hit.Entity.CastShadows = !hit.Entity.CastShadows
		core.Logger().Info("shadowdemo: picked", "entity", hit.Entity.Name(), "casts", hit.Entity.CastShadows)
	})

	cycle := NewSunCycle()
	last := window.Time()
	frames, fpsStart := 0, last
	for !window.ShouldClose() {
		now := window.Time()
		dt := float32(now - last)
		last = now

		select {
		case r := <-reloads:
			if r.Err != nil {
				core.Logger().Warn("shadowdemo: settings not applied", "err", r.Err)
			} else if err := r.Settings.Apply(sm.Shadows()); err != nil {
				core.Logger().Warn("shadowdemo: settings not applied", "err", err)
			}
		default:
		}

		w, h := window.GetFramebufferSize()
		if w != vp.ActualWidth || h != vp.ActualHeight {
			vp.ActualWidth, vp.ActualHeight = w, h
			cam.UpdateAspectRatio(float32(w), float32(h))
		}

		cycle.Update(dt)
		cycle.Apply(sm, sun)
		vp.Update()
		window.SwapBuffers()
		window.PollEvents()

		frames++
		if now-fpsStart >= 1 {
			window.SetTitle(fmt.Sprintf("%s | %s | %s | %.0f fps",
				cfg.Title, sm.Shadows().Technique(), cycle.Label(), float64(frames)/(now-fpsStart)))
			frames, fpsStart = 0, now
		}
	}
	return nil
}
