package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"hearingcap/internal/committee"
	"hearingcap/internal/hearing"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCommitteeTable loads and validates the committee table. An empty path
// checks the built-in table.
func CheckCommitteeTable(path string) Result {
	const name = "Committee table"
	registry, err := committee.Load(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	source := path
	if source == "" {
		source = "built-in"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d committees)", source, registry.Len())}
}

// CheckStatusMapping verifies the stage to status table is complete and monotonic.
func CheckStatusMapping(raw map[string]string) Result {
	const name = "Status mapping"
	if _, err := hearing.NewStatusMapping(raw); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "monotonic"}
}
