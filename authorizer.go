package linkedgroups

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/browser"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/rayark/linkedgroups/state_handler"
)

// Authorizer runs the authorization-code flow of a session in the user's
// browser and exchanges the resulting code.
type Authorizer struct {
	session *AuthSession
	timeout time.Duration

	mu    sync.Mutex
	lines *lineReader

	// OpenURL opens a link in the system browser.
	OpenURL func(string) error
}

func NewAuthorizer(session *AuthSession, timeout time.Duration) *Authorizer {
	return &Authorizer{
		session: session,
		timeout: timeout,
		OpenURL: browser.OpenURL,
	}
}

// Authorize captures the redirect with a loopback listener. Cancelling ctx,
// or the timeout elapsing, cancels the authorization.
func (a *Authorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	server, err := NewCallbackServer(a.session)
	if err != nil {
		return nil, err
	}

	err = server.Start()
	if err != nil {
		return nil, err
	}
	defer server.Stop()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	authURL := server.AuthURL()
	err = a.OpenURL(authURL)
	if err != nil {
		log.WithError(err).Warn(ErrorStringUnableToOpenBrowser)
	}
	log.Infof("if your browser doesn't open automatically go to the following link: %s", authURL)
	log.Info("waiting for authorization...")

	var result AuthorizationResult
	select {
	case <-ctx.Done():
		result = server.Cancel()
	case result = <-server.Results():
	}

	return a.finish(ctx, result)
}

// AuthorizeManual prints the authorization link and reads back the URL the
// browser was redirected to. An empty line, end of input, cancelling ctx or
// the timeout elapsing cancels.
func (a *Authorizer) AuthorizeManual(ctx context.Context, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	handler, ok := a.session.stateHandler.(*state_handler.StaticHandler)
	if !ok {
		handler = state_handler.NewStaticHandler("")
	}
	state, err := handler.Nonce()
	if err != nil {
		return nil, err
	}

	req, err := NewAuthorizationRequest(a.session.AuthCodeURL(state))
	if err != nil {
		return nil, err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	_ = a.OpenURL(req.AuthLink())
	fmt.Fprintf(out, "Please go to the following link: %s\n", req.AuthLink())
	fmt.Fprintf(out, "Log in, authorize access, then paste the address your browser ends up on.\n")

	result := readRedirect(ctx, req, a.lineReader(in), out)
	return a.finish(ctx, result)
}

// lineReader keeps one reader per input, so a line read in the background
// for an abandoned prompt is handed to the next one instead of being lost.
func (a *Authorizer) lineReader(in io.Reader) *lineReader {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lines == nil || a.lines.src != in {
		a.lines = newLineReader(in)
	}
	return a.lines
}

func readRedirect(ctx context.Context, req *AuthorizationRequest, lines *lineReader, out io.Writer) AuthorizationResult {
	for {
		fmt.Fprint(out, "redirect url> ")
		line, err := lines.ReadLine(ctx)
		if err != nil {
			fmt.Fprintln(out)
			return req.Cancel()
		}

		line = strings.TrimSpace(line)
		if line == "" {
			return req.Cancel()
		}

		u, err := url.Parse(line)
		if err != nil {
			fmt.Fprintf(out, "not a URL: %v\n", err)
			continue
		}

		result, done := req.Navigated(u)
		if done {
			return result
		}
		fmt.Fprintf(out, "that is not %s with a response, try again\n", req.RedirectURI())
	}
}

type lineResult struct {
	line string
	err  error
}

// lineReader reads lines in the background so that waiting for one can be
// abandoned when a context ends.
type lineReader struct {
	src     io.Reader
	r       *bufio.Reader
	pending chan lineResult
}

func newLineReader(in io.Reader) *lineReader {
	r, ok := in.(*bufio.Reader)
	if !ok {
		r = bufio.NewReader(in)
	}
	return &lineReader{src: in, r: r}
}

// ReadLine returns the next line without its terminator. A line cut short by
// the end of input is returned without error.
func (lr *lineReader) ReadLine(ctx context.Context) (string, error) {
	if lr.pending == nil {
		pending := make(chan lineResult, 1)
		lr.pending = pending
		go func() {
			line, err := lr.r.ReadString('\n')
			pending <- lineResult{line: line, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-lr.pending:
		lr.pending = nil
		if res.err != nil && res.line == "" {
			return "", res.err
		}
		return strings.TrimRight(res.line, "\r\n"), nil
	}
}

func (a *Authorizer) finish(ctx context.Context, result AuthorizationResult) (*oauth2.Token, error) {
	log.WithField("outcome", result.Outcome).Debug("authorization settled")

	err := result.Err()
	if err != nil {
		return nil, err
	}

	return a.session.Exchange(ctx, result.Code)
}
