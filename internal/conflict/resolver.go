package conflict

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/disoardi/sshmenuc/internal/ui"
)

const header = "Conflict: both the local and the remote configuration changed since the last sync."

// LineResolver shows the diff and reads L/R/A answers line by line. End of
// input aborts.
type LineResolver struct {
	In  io.Reader // defaults to os.Stdin
	Out io.Writer // defaults to os.Stderr
}

func (r LineResolver) Resolve(ctx context.Context, c Conflict) (Resolution, error) {
	in, out := r.In, r.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	if !c.HasChanges() {
		res, _ := Decide(c, "")
		return res, nil
	}

	printDiff(out, c)
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return Abort, err
		}
		fmt.Fprint(out, "\n[L] keep local  [R] use remote  [A] abort > ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return Abort, scanner.Err()
		}
		if res, ok := Decide(c, scanner.Text()); ok {
			return res, nil
		}
		fmt.Fprintln(out, ui.RenderWarn("Invalid choice. Enter L, R or A."))
	}
}

// PromptResolver shows the diff and asks through a huh select.
type PromptResolver struct {
	Out        io.Writer // defaults to os.Stderr
	Accessible bool
}

func (r PromptResolver) Resolve(ctx context.Context, c Conflict) (Resolution, error) {
	out := r.Out
	if out == nil {
		out = os.Stderr
	}
	if !c.HasChanges() {
		res, _ := Decide(c, "")
		return res, nil
	}

	printDiff(out, c)
	choice := Abort
	sel := huh.NewSelect[Resolution]().
		Title("Which version should win?").
		Options(
			huh.NewOption("Keep local (push it to the remote)", Local),
			huh.NewOption("Use remote (overwrite local file)", Remote),
			huh.NewOption("Abort (change nothing for now)", Abort),
		).
		Value(&choice)

	err := huh.NewForm(huh.NewGroup(sel)).WithAccessible(r.Accessible).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return Abort, nil
	}
	if err != nil {
		return Abort, err
	}
	return choice, nil
}

func printDiff(out io.Writer, c Conflict) {
	fmt.Fprintf(out, "\n%s %s\n\n", ui.RenderWarn("⚠"), header)
	lines, more := c.Preview(MaxDiffLines)
	for _, l := range lines {
		fmt.Fprintln(out, ui.RenderDiffLine(l))
	}
	if more > 0 {
		fmt.Fprintln(out, ui.RenderMuted(fmt.Sprintf("... and %d more lines", more)))
	}
}
