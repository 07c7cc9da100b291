package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readLine prints prompt to stderr and reads one trimmed line.
// A final line without a newline is accepted.
func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.errOut, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo when stdin is a terminal and falls
// back to a plain line otherwise, so passwords can be piped in.
func (a *app) readPassword(prompt string) (string, error) {
	f, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return a.readLine(prompt)
	}

	fmt.Fprint(a.errOut, prompt)
	pw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.errOut)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// valueOrPrompt returns the flag value, prompting when it is empty.
func (a *app) valueOrPrompt(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return a.readLine(prompt)
}
