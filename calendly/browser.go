// ABOUTME: Opens the authorize URL in the user's default browser
// ABOUTME: Best effort; callers always print the URL as well
package calendly

import (
	"os/exec"
	"runtime"
)

// OpenBrowser attempts to open url in the default browser.
func OpenBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	return exec.Command(cmd, args...).Start()
}
