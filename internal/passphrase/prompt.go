package passphrase

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrMismatch is returned by Confirm when the two entries differ.
var ErrMismatch = errors.New("passphrases do not match")

// Prompter asks the user for a secret.
type Prompter interface {
	Prompt(message string) (string, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(message string) (string, error)

func (f PrompterFunc) Prompt(message string) (string, error) {
	return f(message)
}

// TerminalPrompter reads a masked line from a terminal. When In is not a
// terminal (pipes, CI) it falls back to reading a plain line.
type TerminalPrompter struct {
	In  io.Reader // defaults to os.Stdin
	Out io.Writer // defaults to os.Stderr
}

func (p TerminalPrompter) Prompt(message string) (string, error) {
	in, out := p.In, p.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}

	fmt.Fprint(out, message)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// FormPrompter asks through a huh password input.
type FormPrompter struct {
	Accessible bool
}

func (p FormPrompter) Prompt(message string) (string, error) {
	var v string
	input := huh.NewInput().
		Title(strings.TrimSuffix(strings.TrimSpace(message), ":")).
		EchoMode(huh.EchoModePassword).
		Value(&v).
		Validate(func(s string) error {
			if s == "" {
				return ErrEmpty
			}
			return nil
		})
	if err := huh.NewForm(huh.NewGroup(input)).WithAccessible(p.Accessible).Run(); err != nil {
		return "", err
	}
	return v, nil
}

// Confirm asks for a new passphrase twice and returns it only if both
// entries match and are non-empty.
func Confirm(p Prompter) (string, error) {
	first, err := p.Prompt("New sync passphrase: ")
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", ErrEmpty
	}
	second, err := p.Prompt("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", ErrMismatch
	}
	return first, nil
}
