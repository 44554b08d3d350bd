package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// RemovePrompt is asked before --delete without --force.
const RemovePrompt = "Stop tracking this thread? (y/n): "

// Confirm writes prompt to out and reads one line from in. Only "y" or
// "yes" (any case) confirm; EOF and read errors decline.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
