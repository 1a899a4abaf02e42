package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// unsafeNameChars are replaced in artifact file names.
var unsafeNameChars = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// ScreenshotPath returns <dir>/<scenario>_<yyyyMMdd_HHmmss>.png for the
// current clock.
func (o *Orchestrator) ScreenshotPath(scenario string) string {
	name := unsafeNameChars.Replace(scenario)
	return filepath.Join(o.rc.Config.ScreenshotsDir, name+"_"+o.now().Format("20060102_150405")+".png")
}

// captureScreenshot saves a screenshot of the live session bound to the
// scope's chain, even when the scenario itself never used it. It never
// acquires a session: without one it returns "" and no error.
func (o *Orchestrator) captureScreenshot(scope *Scope, scenario string) (path string, err error) {
	if scope == nil || scope.Driver == nil {
		return "", nil
	}
	h := scope.Driver.LiveHandle()
	if h == nil {
		return "", nil
	}

	path = o.ScreenshotPath(scenario)
	defer func() {
		if r := recover(); r != nil {
			path = ""
			err = &ArtifactCaptureError{Scenario: scenario, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	data, err := h.Session.Screenshot()
	if err != nil {
		return "", &ArtifactCaptureError{Scenario: scenario, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", &ArtifactCaptureError{Scenario: scenario, Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", &ArtifactCaptureError{Scenario: scenario, Path: path, Err: err}
	}

	o.rc.Log.Infof("Screenshot captured: %s", path)
	return path, nil
}
