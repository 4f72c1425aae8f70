// Package console is the terminal front-end of the group browser.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rayark/linkedgroups/linkedin"
	"github.com/rayark/linkedgroups/tree"
)

const (
	title    = "LinkedIn groups"
	helpText = "↑/k ↓/j move • enter open • c comment • r refresh • a login • q quit"

	// rows kept for everything but the tree when the window is small
	reservedRows = 12
	minTreeRows  = 3
)

var ErrAuthorizationUnavailable = errors.New("authorization is not available")

// ReauthorizeFunc obtains a new access token. It owns the terminal while it
// runs and talks to the user through in and out.
type ReauthorizeFunc func(ctx context.Context, in io.Reader, out io.Writer) error

// ExecFunc hands the terminal to cmd and reports its outcome through fn.
type ExecFunc func(cmd tea.ExecCommand, fn tea.ExecCallback) tea.Cmd

type mode int

const (
	modeBrowse mode = iota
	modeComment
)

type (
	loadedMsg struct {
		err         error
		reauthorize bool
	}

	authorizedMsg struct {
		err error
	}

	postedMsg struct {
		node *tree.Node
		err  error
	}
)

// Console is a tea.Model over the tree: a cursor over the visible nodes, the
// details of the selected one and a comment box.
type Console struct {
	ctx         context.Context
	tree        *tree.Tree
	reauthorize ReauthorizeFunc
	exec        ExecFunc

	mode   mode
	cursor int
	height int
	input  []rune
	status string
	err    error
}

// WithExec replaces tea.Exec for running the authorization.
func WithExec(exec ExecFunc) func(*Console) {
	return func(c *Console) {
		c.exec = exec
	}
}

func New(ctx context.Context, t *tree.Tree, reauthorize ReauthorizeFunc, opts ...func(*Console)) *Console {
	c := &Console{
		ctx:         ctx,
		tree:        t,
		reauthorize: reauthorize,
		exec:        tea.Exec,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) Init() tea.Cmd {
	return c.loadGroups(true)
}

func (c *Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.height = msg.Height
		return c, nil

	case tea.KeyMsg:
		if c.mode == modeComment {
			return c, c.commentKey(msg)
		}
		return c, c.browseKey(msg)

	case loadedMsg:
		c.syncCursor()
		if msg.err == nil {
			return c, nil
		}
		if msg.reauthorize && c.reauthorize != nil && linkedin.NeedsReauthorization(msg.err) {
			c.status = "authorization required: " + msg.err.Error()
			c.err = nil
			return c, c.authorize()
		}
		log.WithError(msg.err).Debug("load failed")
		c.err = msg.err
		return c, nil

	case authorizedMsg:
		if msg.err != nil {
			c.status = ""
			c.err = msg.err
			return c, nil
		}
		c.status = "authorized"
		return c, c.loadGroups(false)

	case postedMsg:
		if msg.err != nil {
			c.status = ""
			c.err = errors.Wrap(msg.err, "unable to post comment")
			return c, nil
		}
		c.status = "posted"
		c.syncCursor()
		return c, nil
	}

	return c, nil
}

func (c *Console) browseKey(msg tea.KeyMsg) tea.Cmd {
	c.err = nil

	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "up", "k":
		c.move(-1)
	case "down", "j":
		c.move(1)
	case "enter", "right", "l", " ", "space":
		return c.expand()
	case "c":
		if !c.tree.Details().CanComment {
			c.err = tree.ErrNoPostSelected
			return nil
		}
		c.mode = modeComment
		c.input = nil
		c.status = ""
	case "r":
		c.status = ""
		return c.loadGroups(true)
	case "a":
		if c.reauthorize == nil {
			c.err = ErrAuthorizationUnavailable
			return nil
		}
		c.status = ""
		return c.authorize()
	}

	return nil
}

func (c *Console) commentKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		c.mode = modeBrowse
		c.input = nil
	case tea.KeyEnter:
		text := strings.TrimSpace(string(c.input))
		c.mode = modeBrowse
		c.input = nil
		if text == "" {
			return nil
		}
		c.status = "posting..."
		return c.post(text)
	case tea.KeyBackspace:
		if len(c.input) > 0 {
			c.input = c.input[:len(c.input)-1]
		}
	case tea.KeySpace:
		c.input = append(c.input, ' ')
	case tea.KeyRunes:
		c.input = append(c.input, msg.Runes...)
	}

	return nil
}

func (c *Console) move(delta int) {
	lines := c.tree.Lines()
	if len(lines) == 0 {
		c.cursor = 0
		return
	}

	c.cursor += delta
	if c.cursor < 0 {
		c.cursor = 0
	}
	if c.cursor >= len(lines) {
		c.cursor = len(lines) - 1
	}
	c.tree.Select(lines[c.cursor].Node)
}

// syncCursor puts the cursor back on the selected node after the tree
// changed under it.
func (c *Console) syncCursor() {
	lines := c.tree.Lines()
	if selected := c.tree.Selected(); selected != nil {
		for i, l := range lines {
			if l.Node == selected {
				c.cursor = i
				return
			}
		}
	}
	if c.cursor >= len(lines) {
		c.cursor = len(lines) - 1
	}
	if c.cursor < 0 {
		c.cursor = 0
	}
}

func (c *Console) loadGroups(reauthorize bool) tea.Cmd {
	c.cursor = 0
	return wait(c.tree.LoadGroups(c.ctx), reauthorize)
}

func (c *Console) expand() tea.Cmd {
	lines := c.tree.Lines()
	if c.cursor >= len(lines) {
		return nil
	}

	n := lines[c.cursor].Node
	c.tree.Select(n)
	return wait(c.tree.Expand(c.ctx, n), true)
}

func wait(done <-chan error, reauthorize bool) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: <-done, reauthorize: reauthorize}
	}
}

func (c *Console) post(text string) tea.Cmd {
	ctx, t := c.ctx, c.tree
	return func() tea.Msg {
		n, err := t.AddComment(ctx, text)
		return postedMsg{node: n, err: err}
	}
}

func (c *Console) authorize() tea.Cmd {
	cmd := &authorizeCommand{ctx: c.ctx, reauthorize: c.reauthorize}
	return c.exec(cmd, func(err error) tea.Msg {
		return authorizedMsg{err: err}
	})
}

func (c *Console) View() string {
	var b strings.Builder

	b.WriteString(title + "\n\n")

	lines := c.tree.Lines()
	if len(lines) == 0 {
		b.WriteString("  (no groups)\n")
	}
	start, end := c.window(len(lines))
	for i := start; i < end; i++ {
		l := lines[i]

		cursor := " "
		if i == c.cursor {
			cursor = ">"
		}
		marker := " "
		switch {
		case l.Expanded:
			marker = "-"
		case l.Node.Kind == tree.KindGroup || l.Node.Kind == tree.KindPost:
			marker = "+"
		}
		fmt.Fprintf(&b, "%s %s%s %s\n", cursor, strings.Repeat("  ", l.Depth), marker, l.Node.Label)
	}

	if info := c.tree.Details().Info; info != "" {
		b.WriteString("\n" + info + "\n")
	}

	if c.mode == modeComment {
		b.WriteString("\ncomment> " + string(c.input) + "_\n")
	}

	switch {
	case c.err != nil:
		b.WriteString("\nerror: " + c.err.Error() + "\n")
	case c.status != "":
		b.WriteString("\n" + c.status + "\n")
	}

	if c.mode == modeComment {
		b.WriteString("\nenter post • esc cancel\n")
	} else {
		b.WriteString("\n" + helpText + "\n")
	}

	return b.String()
}

// window is the range of tree lines that fits the terminal, keeping the
// cursor in view.
func (c *Console) window(n int) (int, int) {
	if c.height <= 0 {
		return 0, n
	}

	rows := c.height - reservedRows
	if rows < minTreeRows {
		rows = minTreeRows
	}
	if n <= rows {
		return 0, n
	}

	start := c.cursor - rows + 1
	if start < 0 {
		start = 0
	}
	return start, start + rows
}

// authorizeCommand runs the reauthorization while the program has released
// the terminal.
type authorizeCommand struct {
	ctx         context.Context
	reauthorize ReauthorizeFunc

	in  io.Reader
	out io.Writer
}

func (a *authorizeCommand) Run() error {
	out := a.out
	if out == nil {
		out = io.Discard
	}
	return a.reauthorize(a.ctx, a.in, out)
}

func (a *authorizeCommand) SetStdin(r io.Reader)  { a.in = r }
func (a *authorizeCommand) SetStdout(w io.Writer) { a.out = w }
func (a *authorizeCommand) SetStderr(io.Writer)   {}
