package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

func setupLog() (func() error, error) {
	// Log to file, if set
	if logFile := os.Getenv("SHEETVOX_LOGFILE"); logFile != "" {
		f, err := tea.LogToFile(logFile, "sheetvox")
		if err != nil {
			return nil, fmt.Errorf("error setting up log file: %w", err)
		}
		log.SetOutput(f)
		log.SetLevel(log.DebugLevel)
		return f.Close, nil
	}
	log.SetOutput(os.Stderr)
	return func() error { return nil }, nil
}
