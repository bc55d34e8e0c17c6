package shadow

// IlluminationStage tracks which part of a shadowed frame is being rendered.
// It keeps nested renders (the shadow texture updates issued from inside a
// frame) from starting their own shadow work.
type IlluminationStage int

const (
	StageNone IlluminationStage = iota
	StageRenderToTexture
	StageRenderReceiverPass
)

func (s IlluminationStage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageRenderToTexture:
		return "render-to-texture"
	case StageRenderReceiverPass:
		return "receiver-pass"
	}
	return "unknown"
}

// Stage returns the current illumination stage.
func (r *Renderer) Stage() IlluminationStage { return r.stage }

// enter switches to s and returns the function restoring the previous stage.
// Callers defer it so that every exit path restores the stage.
func (r *Renderer) enter(s IlluminationStage) (restore func()) {
	prev := r.stage
	r.stage = s
	return func() { r.stage = prev }
}
