// Package cmd implements the command-line interface for anistream.
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/style"
	"github.com/charmbracelet/lipgloss"
)

var installHints = map[string]string{
	constant.Darwin:  "brew install mpv",
	constant.Linux:   "sudo apt install mpv",
	constant.Windows: "scoop install mpv",
	constant.Android: "pkg install mpv",
}

// CheckDependencies exits when mpv, the media player every playback
// session runs in, is not on the PATH.
func CheckDependencies() {
	if _, err := exec.LookPath("mpv"); err != nil {
		fmt.Println(missingPlayerBox(runtime.GOOS))
		os.Exit(1)
	}
}

func missingPlayerBox(goos string) string {
	lines := []string{
		style.New().Bold(true).Foreground(style.HiRed).Render(icon.Get(icon.Fail) + " mpv not found"),
		"",
		style.New().Foreground(style.Text).Render("Episodes play in mpv, which is not on your PATH."),
	}

	if hint, ok := installHints[goos]; ok {
		lines = append(lines, "", "Install it with", "  "+style.New().Foreground(style.AccentColor).Bold(true).Render(hint))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
