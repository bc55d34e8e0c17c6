package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"shadow-engine/engine"
	"shadow-engine/internal/headless"
	"shadow-engine/renderer"
	"shadow-engine/textures"
)

type benchOptions struct {
	frames    int
	width     int
	height    int
	noStencil bool
	animate   bool
	dump      string
}

func newBenchCmd(opts *options) *cobra.Command {
	bo := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Render frames headless and report device calls per frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, opts, bo)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&bo.frames, "frames", "n", 10, "frames to render")
	f.IntVar(&bo.width, "width", 1280, "viewport width")
	f.IntVar(&bo.height, "height", 720, "viewport height")
	f.BoolVar(&bo.noStencil, "no-stencil", false, "report no stencil buffer")
	f.BoolVar(&bo.animate, "animate", true, "move the sun between frames")
	f.StringVar(&bo.dump, "dump", "", "directory to write shadow textures to after the last frame")
	return cmd
}

// benchCounts are the device calls of one frame.
var benchCounts = []headless.Op{
	headless.OpRender,
	headless.OpSetPass,
	headless.OpStencilParams,
	headless.OpClear,
	headless.OpSetTarget,
	headless.OpScissor,
	headless.OpClipPlanes,
}

func runBench(cmd *cobra.Command, opts *options, bo *benchOptions) error {
	if bo.frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", bo.frames)
	}
	caps := headless.FullCapabilities()
	caps.HWStencil = !bo.noStencil
	rs := headless.New(caps)
	sm := engine.NewSceneManager("bench", rs, nil)

	cam, sun, err := loadScene(sm, opts)
	if err != nil {
		return err
	}
	cam.UpdateAspectRatio(float32(bo.width), float32(bo.height))
	vp := renderer.NewViewport(cam, nil, bo.width, bo.height)
	vp.Source = sm

	cycle := NewSunCycle()
	cycle.Active = bo.animate

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "technique %s, %d entities, %d lights\n", sm.Shadows().Technique(), len(sm.Entities()), len(sm.Lights()))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "frame\t")
	for _, op := range benchCounts {
		fmt.Fprintf(tw, "%s\t", op)
	}
	fmt.Fprintln(tw, "triangles\t")

	totals := make([]int, len(benchCounts))
	for i := range bo.frames {
		if bo.animate {
			cycle.Update(1.0 / 60)
			cycle.Apply(sm, sun)
		}
		rs.Reset()
		vp.Update()

		fmt.Fprintf(tw, "%d\t", i)
		for j, op := range benchCounts {
			n := rs.Count(op)
			totals[j] += n
			fmt.Fprintf(tw, "%d\t", n)
		}
		fmt.Fprintf(tw, "%d\t\n", triangles(rs))
	}
	fmt.Fprint(tw, "mean\t")
	for _, n := range totals {
		fmt.Fprintf(tw, "%.1f\t", float64(n)/float64(bo.frames))
	}
	fmt.Fprintln(tw, "\t")
	if err := tw.Flush(); err != nil {
		return err
	}

	if bo.dump != "" && sm.Shadows().Technique().IsTexture() {
		return dumpShadowTextures(cmd, sm, rs, bo.dump)
	}
	return nil
}

func triangles(rs *headless.RenderSystem) int {
	n := 0
	for _, c := range rs.Filter(func(c headless.Command) bool { return c.Op == headless.OpRender }) {
		n += c.Triangles
	}
	return n
}

// dumpShadowTextures writes every live shadow texture as a PNG.
func dumpShadowTextures(cmd *cobra.Command, sm *engine.SceneManager, rs renderer.RenderSystem, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for slot := 0; ; slot++ {
		tex, err := sm.Shadows().Texture(slot)
		if err != nil || tex == nil {
			return nil
		}
		img, err := rs.ReadPixels(tex)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, fmt.Sprintf("shadow%d.png", slot))
		if err := textures.SavePNG(path, img); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}
}
