// Command drill runs a lesson in the terminal.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/p-n-ai/pai-ionian/internal/lesson"
	"github.com/p-n-ai/pai-ionian/internal/tui"
)

func main() {
	dir := flag.String("lessons", "", "Directory of lesson YAML files (default: embedded lessons)")
	index := flag.Int("lesson", 0, "Index of the lesson to run")
	flag.Parse()

	// The alternate screen owns stdout; keep library logs out of it.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	catalog, err := loadCatalog(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	model, err := tui.New(catalog, *index, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func loadCatalog(dir string) (*lesson.Catalog, error) {
	if dir == "" {
		return lesson.Default()
	}
	return lesson.LoadDir(dir)
}
