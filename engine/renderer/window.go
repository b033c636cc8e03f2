package renderer

// WindowSizeProvider reports the drawable size of the window in pixels.
type WindowSizeProvider interface {
	CurrentSize() (uint32, uint32)
}

// VisibilityProvider is optionally implemented by windows that can report
// being hidden or iconified.
type VisibilityProvider interface {
	IsVisible() bool
}

func isMinimized(w WindowSizeProvider) bool {
	width, height := w.CurrentSize()
	if width == 0 || height == 0 {
		return true
	}
	if v, ok := w.(VisibilityProvider); ok && !v.IsVisible() {
		return true
	}
	return false
}
