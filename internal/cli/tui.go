package cli

import (
	"flag"
	"fmt"

	"snowboard-doctor/internal/tui"
	"snowboard-doctor/internal/utils"
)

func runChat(args []string) int {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommonFlags(fs)
	noAltScreen := fs.Bool("inline", false, "render inline instead of taking over the terminal")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if *noAltScreen {
		cfg.UI.AltScreen = false
	}

	// The TUI owns the terminal, so logs go to a file.
	logger, err := utils.NewFileLogger(cfg.Logging.Level, cfg.LogPath())
	if err != nil {
		fmt.Fprintf(stderr, "opening log file: %v\n", err)
		return 1
	}
	env := newEnv(cfg, logger)
	defer env.Close()

	ctx, cancel := contextWithSignals()
	defer cancel()

	logger.Infof("starting snowboard-doctor %s", Version)
	err = tui.Run(tui.Options{
		Context:       ctx,
		Resolver:      env.resolver,
		NewChannel:    env.newChannel,
		Logger:        logger.Named("tui"),
		Federated:     env.cfg.FederatedEnabled(),
		ToastDuration: cfg.UI.ToastDuration,
		AltScreen:     cfg.UI.AltScreen,
	})
	if err != nil {
		logger.Errorf("tui exited: %v", err)
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return 0
}
