package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rayark/linkedgroups"
	"github.com/rayark/linkedgroups/internal/console"
	"github.com/rayark/linkedgroups/linkedin"
	"github.com/rayark/linkedgroups/state_handler"
	"github.com/rayark/linkedgroups/tree"
)

const (
	sessionName = "linkedgroups"

	requestTimeout = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "configuration file (YAML, or a legacy linkedin.config)")
	manual := flag.Bool("manual", false, "paste the redirect URL instead of running a local listener")
	verbose := flag.Bool("v", false, "debug logging")
	logPath := flag.String("log", "", "write the log to this file instead of stderr")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// a second interrupt kills the process
		<-ctx.Done()
		stop()
	}()

	err := run(ctx, resolveConfigPath(*configPath), *manual)
	if err != nil {
		log.Fatal(err)
	}
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v, ok := os.LookupEnv(linkedgroups.EnvConfigPath); ok && v != "" {
		return v
	}
	if _, err := os.Stat(linkedgroups.DefaultConfigPath); err != nil {
		if _, err := os.Stat(linkedgroups.DefaultLegacyPath); err == nil {
			return linkedgroups.DefaultLegacyPath
		}
	}
	return linkedgroups.DefaultConfigPath
}

func run(ctx context.Context, configPath string, manual bool) error {
	conf, err := linkedgroups.LoadConfig(configPath)
	if err != nil {
		return err
	}

	redirectURL, err := url.Parse(conf.RedirectURL)
	if err != nil {
		return errors.Wrap(err, "redirect_url")
	}
	if !linkedgroups.IsLoopbackURL(redirectURL) {
		manual = true
	}

	var stateHandler state_handler.Handler
	if manual {
		stateHandler = state_handler.NewStaticHandler("")
	}

	baseClient := &http.Client{Timeout: requestTimeout}
	session, err := linkedgroups.NewAuthSession(sessionName, conf, stateHandler, baseClient)
	if err != nil {
		return errors.Wrap(err, "unable to create session")
	}

	// a terminal is handed over by the program while the browser is away;
	// anything else is read through one buffered reader shared with it
	var stdin io.Reader = os.Stdin
	var programOpts []tea.ProgramOption
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		stdin = bufio.NewReader(os.Stdin)
		programOpts = append(programOpts, tea.WithInput(stdin))
	}

	authorizer := linkedgroups.NewAuthorizer(session, conf.Timeout)
	reauthorize := func(ctx context.Context, in io.Reader, out io.Writer) error {
		err := session.Forget()
		if err != nil {
			log.WithError(err).Warn("unable to drop stored token")
		}

		if manual {
			_, err = authorizer.AuthorizeManual(ctx, in, out)
		} else {
			_, err = authorizer.Authorize(ctx)
		}
		if err != nil {
			return err
		}

		log.Info("authorized")
		return nil
	}

	if !session.HasToken() {
		err = reauthorize(ctx, stdin, os.Stdout)
		if err != nil {
			return err
		}
	}

	app, err := linkedin.New(session.Client(ctx),
		linkedin.WithBaseURL(conf.APIURL),
		linkedin.WithCacheTTL(conf.CacheTTL),
	)
	if err != nil {
		return errors.Wrap(err, "unable to create API client")
	}

	programOpts = append(programOpts, tea.WithContext(ctx))
	p := tea.NewProgram(console.New(ctx, tree.New(app), reauthorize), programOpts...)
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || ctx.Err() != nil {
		return nil
	}
	return err
}
