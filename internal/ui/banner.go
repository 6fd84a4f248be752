package ui

import (
	"fmt"

	"github.com/pterm/pterm"
)

const logo = `
   _______ __            __     __
  / ____(_) /_____ _____/ /__  / /
 / /   / / __/ __ ` + "`" + `/ __  / _ \/ /
/ /___/ / /_/ /_/ / /_/ /  __/ /
\____/_/\__/\__,_/\__,_/\___/_/
`

// Banner prints the logo and the local-only notice.
func (u *UI) Banner(version string) {
	if !u.interactive {
		return
	}
	fmt.Fprintln(u.err, pterm.FgCyan.Sprint(logo))
	fmt.Fprintln(u.err, pterm.DefaultCenter.Sprint(pterm.FgGray.Sprintf("%s - local security council", version)))
	fmt.Fprintln(u.err, pterm.DefaultBox.
		WithTitle(pterm.FgYellow.Sprint("DEFENSIVE USE ONLY")).
		WithTitleBottomCenter().
		WithRightPadding(2).
		WithLeftPadding(2).
		Sprint("Scan code you own. Nothing leaves this machine except\ncalls to the configured Ollama endpoint."))
}
