// Command lessonctl checks lesson content and exports it for review.
//
//	lessonctl validate [dir]
//	lessonctl export -o lessons.xlsx [dir]
//
// With no dir the embedded lessons are used.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/p-n-ai/pai-ionian/internal/export"
	"github.com/p-n-ai/pai-ionian/internal/lesson"
)

const usage = `usage:
  lessonctl validate [dir]
  lessonctl export -o file.xlsx [dir]
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "validate":
		err = validate(args[1:], stdout, stderr)
	case "export":
		err = exportCatalog(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func validate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cat, err := loadCatalog(fs.Arg(0))
	if err != nil {
		return err
	}
	steps := 0
	for _, l := range cat.Lessons() {
		evaluable := 0
		for _, s := range l.Steps {
			if lesson.Evaluable(s) {
				evaluable++
			}
		}
		steps += l.Len()
		fmt.Fprintf(stdout, "%s: %d steps, %d questions\n", l.Name, l.Len(), evaluable)
	}
	fmt.Fprintf(stdout, "ok: %d lessons, %d steps\n", cat.Len(), steps)
	return nil
}

func exportCatalog(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "lessons.xlsx", "Output workbook path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cat, err := loadCatalog(fs.Arg(0))
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	if err := export.WriteCatalog(f, cat); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *out, err)
	}
	fmt.Fprintf(stdout, "wrote %s\n", *out)
	return nil
}

func loadCatalog(dir string) (*lesson.Catalog, error) {
	if dir == "" {
		return lesson.Default()
	}
	return lesson.LoadDir(dir)
}
