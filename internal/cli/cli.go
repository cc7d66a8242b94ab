package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"snowboard-doctor/internal/identity"
)

// Version is set at build time with -ldflags "-X snowboard-doctor/internal/cli.Version=...".
var Version = "dev"

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func Run() int {
	return run(os.Args[1:])
}

func run(args []string) int {
	if len(args) == 0 {
		return runChat(args)
	}

	cmd := args[0]
	if strings.HasPrefix(cmd, "-") {
		return runChat(args)
	}
	switch cmd {
	case "chat":
		return runChat(args[1:])
	case "ask":
		return runAsk(args[1:])
	case "whoami":
		return runWhoami(args[1:])
	case "signout":
		return runSignOut(args[1:])
	case "session-id":
		return runSessionID(args[1:])
	case "version":
		fmt.Fprintf(stdout, "snowboard-doctor %s\n", Version)
		return 0
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		usage()
		return 1
	}
}

func usage() {
	fmt.Fprintln(stderr, "snowboard-doctor <command> [options]")
	fmt.Fprintln(stderr, "Commands: chat (default), ask, whoami, signout, session-id, version")
}

// runAsk sends one message and prints the reply. It reuses a stored
// account session, or starts a guest session from --email.
func runAsk(args []string) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommonFlags(fs)
	email := fs.String("email", os.Getenv("SNOWBOARD_EMAIL"), "email for a guest session when not signed in")
	name := fs.String("name", "", "display name for a guest session")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fmt.Fprintln(stderr, `usage: snowboard-doctor ask [--email you@example.com] "message"`)
		return 1
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	env := newEnv(cfg, stderrLogger(cfg))
	defer env.Close()

	ctx, cancel := contextWithSignals()
	defer cancel()

	session, err := env.session(ctx, *email, *name)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	channel := env.newChannel(session)
	out, ok := channel.Submit(ctx, text)
	if !ok {
		return 1
	}
	if out.Notice != nil {
		red := color.New(color.FgRed, color.Bold)
		red.Fprintf(stderr, "%s: ", out.Notice.Title)
		fmt.Fprintln(stderr, out.Notice.Description)
	}
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprint(stdout, "Snowboard Doctor: ")
	fmt.Fprintln(stdout, out.Reply.Content)
	if out.Notice != nil {
		return 1
	}
	return 0
}

func runWhoami(args []string) int {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg, err := common.load()
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	env := newEnv(cfg, stderrLogger(cfg))
	defer env.Close()

	ctx, cancel := contextWithSignals()
	defer cancel()

	if env.resolver.Resolve(ctx) != identity.StateAuthenticated {
		yellow := color.New(color.FgYellow)
		yellow.Fprintln(stdout, "Not signed in.")
		if err := env.resolver.LastError(); err != nil {
			fmt.Fprintf(stderr, "last error: %v\n", err)
		}
		return 1
	}
	session, _ := env.resolver.Session()
	green := color.New(color.FgGreen)
	green.Fprint(stdout, "▶ ")
	fmt.Fprintf(stdout, "Email:      %s\n", session.Identity.Email)
	if session.Identity.DisplayName != "" {
		green.Fprint(stdout, "▶ ")
		fmt.Fprintf(stdout, "Name:       %s\n", session.Identity.DisplayName)
	}
	green.Fprint(stdout, "▶ ")
	fmt.Fprintf(stdout, "Account:    %s\n", session.Identity.Kind)
	green.Fprint(stdout, "▶ ")
	fmt.Fprintf(stdout, "Session ID: %s...\n", session.Token.Short())
	return 0
}

func runSignOut(args []string) int {
	fs := flag.NewFlagSet("signout", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg, err := common.load()
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	env := newEnv(cfg, stderrLogger(cfg))
	defer env.Close()

	ctx, cancel := contextWithSignals()
	defer cancel()

	if env.resolver.Resolve(ctx) != identity.StateAuthenticated {
		fmt.Fprintln(stdout, "Not signed in.")
		return 0
	}
	if err := env.resolver.SignOut(ctx); err != nil {
		red := color.New(color.FgRed)
		red.Fprintf(stderr, "sign-out failed: %v\n", err)
		return 1
	}
	green := color.New(color.FgGreen)
	green.Fprintln(stdout, "Signed out.")
	return 0
}

// runSessionID prints the guest token this environment would be issued now.
func runSessionID(args []string) int {
	fs := flag.NewFlagSet("session-id", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommonFlags(fs)
	verbose := fs.Bool("show-fingerprint", false, "also print the fingerprint that was hashed")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg, err := common.load()
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	ctx, cancel := contextWithSignals()
	defer cancel()

	signals := collectSignals(ctx, cfg)
	now := time.Now()
	if *verbose {
		dim := color.New(color.Faint)
		dim.Fprintln(stderr, signals.Fingerprint(now))
	}
	fmt.Fprintln(stdout, identity.GenerateSessionID(signals, now))
	return 0
}

var errGuestEmailRequired = errors.New("not signed in: pass --email to start a guest session")

func contextWithSignals() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
