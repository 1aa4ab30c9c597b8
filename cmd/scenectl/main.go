package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"fabula.engine/internal/config"
	persistlog "fabula.engine/internal/persistence/log"
	"fabula.engine/internal/persistence/persister"
	"fabula.engine/internal/sim/catalogs"
	"fabula.engine/internal/sim/tuning"
)

const usage = `usage: scenectl <command> [flags]

commands:
  new      generate a demo scene and save it
  info     print a scene file's metadata
  verify   fully load scene files against the catalogs
  resave   load a scene and write it again (e.g. .yaml -> .yaml.zst)
  index    (re)index every scene under the data dir
  list     list indexed scenes
  archive  keep a timestamped compressed copy of a scene
  journal  print the save/load journal

environment: FABULA_DATA_DIR FABULA_CONFIG_DIR FABULA_INDEX_DB FABULA_JOURNAL`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	env, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "new":
		newCmd(env, args)
	case "info":
		infoCmd(env, args)
	case "verify":
		verifyCmd(env, args)
	case "resave":
		resaveCmd(env, args)
	case "index":
		indexCmd(env, args)
	case "list":
		listCmd(env, args)
	case "archive":
		archiveCmd(env, args)
	case "journal":
		journalCmd(env, args)
	case "-h", "-help", "--help", "help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "[scenectl] ", log.LstdFlags|log.Lmicroseconds)
}

// persistOptions wires the logger and, when enabled, the op journal. The
// returned func closes the journal.
func persistOptions(env config.Env, logger *log.Logger, debugGid int32) (persister.Options, func()) {
	opts := persister.Options{Logger: logger, DebugTileGid: debugGid}
	if !env.Journal {
		return opts, func() {}
	}
	j := persistlog.NewOpLogger(env.DataDir)
	opts.Journal = j
	return opts, func() {
		if err := j.Close(); err != nil {
			logger.Printf("close journal: %v", err)
		}
	}
}

func loadAssets(env config.Env) (*catalogs.Catalogs, tuning.Tuning) {
	cats, err := catalogs.Load(env.ConfigDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	// A missing tuning file means defaults.
	tune, err := tuning.Load(env.TuningPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	return cats, tune
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
