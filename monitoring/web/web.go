// Package web holds the page that the monitor serves.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

//go:embed dist/*
var dist embed.FS

// DevModeEnv names the environment variable that makes the monitor serve the
// page from the source tree, so that it can be edited without rebuilding.
const DevModeEnv = "VAIVERIF_MONITOR_DEV"

// Assets returns the files of the page.
func Assets() http.FileSystem {
	if devMode() {
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			panic("cannot locate the web package source")
		}

		dir := filepath.Join(filepath.Dir(file), "dist")
		fmt.Fprintf(os.Stderr, "monitor: serving pages from %s\n", dir)

		return http.Dir(dir)
	}

	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

func devMode() bool {
	on, err := strconv.ParseBool(os.Getenv(DevModeEnv))
	return err == nil && on
}
