package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// chromeNames are the executable names searched when no chrome_path is set.
var chromeNames = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"headless-shell",
}

// CheckChrome reports the browser the page inspector will launch. An explicit
// path must exist and be executable; otherwise PATH is searched.
func CheckChrome(configured string) Status {
	result := Status{
		Name:        "Chrome",
		Description: "Headless browser for hearing page inspection",
		Optional:    true,
	}

	if path := strings.TrimSpace(configured); path != "" {
		result.Command = path
		info, err := os.Stat(path)
		if err != nil || !isExecutable(info) {
			result.Detail = fmt.Sprintf("configured browser %q is not executable", path)
			return result
		}
		result.Available = true
		return result
	}

	for _, name := range chromeNames {
		if resolved, err := exec.LookPath(name); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
	}
	result.Command = chromeNames[0]
	result.Detail = "no chromium or chrome binary found on PATH"
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
