package readiness

// HostState describes the host process at startup.
type HostState struct {
	// GUIUp is the host's readiness flag at the time of the decision.
	GUIUp bool

	// HasQt reports whether a Qt binding is importable.
	HasQt bool

	// HasQApplication reports whether a GUI application object exists.
	HasQApplication bool

	// HasCoreApplication reports whether a non-GUI core application object
	// exists.
	HasCoreApplication bool
}

// Headless reports a console-only host: a core application without a GUI
// application.
func (h HostState) Headless() bool {
	return h.HasQt && h.HasCoreApplication && !h.HasQApplication
}

// Path is the startup decision.
type Path int

// Startup paths.
const (
	// StartNow means it is safe to start immediately.
	StartNow Path = iota

	// WaitForGUI means the GUI is still initializing; start through a Gate.
	WaitForGUI
)

// String returns the path name.
func (p Path) String() string {
	if p == WaitForGUI {
		return "wait_for_gui"
	}
	return "start_now"
}

// Plan decides how to start. A GUI that is already up, a headless host,
// and a host without Qt all start now. Otherwise the GUI is initializing,
// or has not created its application yet, and startup must wait.
func Plan(h HostState) Path {
	switch {
	case h.GUIUp:
		return StartNow
	case h.Headless():
		return StartNow
	case h.HasQt:
		return WaitForGUI
	default:
		return StartNow
	}
}

// Begin plans startup and returns a started gate for it. For StartNow the
// gate fires on its first check; for WaitForGUI it polls cfg.Ready.
func Begin(h HostState, cfg Config) (*Gate, Path, error) {
	path := Plan(h)
	if path == StartNow {
		cfg.Ready = func() bool { return true }
	}
	g, err := New(cfg)
	if err != nil {
		return nil, path, err
	}
	g.Start()
	return g, path, nil
}
