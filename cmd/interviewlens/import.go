package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/wesm/interviewlens/internal/config"
	"github.com/wesm/interviewlens/internal/importer"
)

// importPaths imports each path, a directory tree or a single
// export file, and prints one line per path to w.
func importPaths(
	im *importer.Importer, paths []string, w io.Writer,
) (importer.Totals, error) {
	var all importer.Totals
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return all, fmt.Errorf("import %s: %w", p, err)
		}

		var t importer.Totals
		if info.IsDir() {
			t, err = im.ImportDir(p)
			if err != nil {
				return all, err
			}
		} else {
			r, err := im.ImportFile(p)
			if err != nil {
				return all, err
			}
			t.Files = 1
			if r.Skipped {
				t.Unchanged = 1
			}
			t.Sessions = r.Written.Sessions
			t.Turns = r.Written.Turns
		}

		fmt.Fprintf(w, "%s: %d sessions, %d turns (%d files, %d unchanged, %d failed)\n",
			p, t.Sessions, t.Turns, t.Files, t.Unchanged, t.Failed)
		all.Files += t.Files
		all.Unchanged += t.Unchanged
		all.Failed += t.Failed
		all.Sessions += t.Sessions
		all.Turns += t.Turns
	}
	return all, nil
}

func runImport(args []string) {
	cfg, err := config.LoadMinimal()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	paths := args
	if len(paths) == 0 {
		if cfg.ImportDir == "" {
			fmt.Fprintln(os.Stderr,
				"error: no paths given and no import directory configured")
			os.Exit(2)
		}
		paths = []string{cfg.ImportDir}
	}

	database := mustOpenStore(cfg)
	defer database.Close()

	totals, err := importPaths(importer.New(database), paths, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if totals.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d file(s) failed, see log\n", totals.Failed)
	}
}
