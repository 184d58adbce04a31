package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Sheet reference and columns shown in the status bar.
	SheetRef     string
	SourceColumn string
	TargetColumn string

	EnableMouse bool

	// Recent per-row outcome lines kept on screen while the run is in
	// flight. The final summary always lists every failure.
	TailSize int `env:"SHEETVOX_TAIL" envDefault:"8"`
}
