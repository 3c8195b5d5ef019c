package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCommand()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "podcrop",
		Short:         "Turn podcast episodes into speaker-aware vertical shorts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Config file (default ./podcrop.yaml or ~/.config/podcrop/config.yaml)")
	root.PersistentFlags().String("out", "", "Output directory (overrides paths.output)")
	root.PersistentFlags().String("log-level", "", "Log level (overrides log.level)")
	root.PersistentFlags().String("log-format", "", "Log format: text or json")

	root.AddCommand(newRunCommand())
	root.AddCommand(newPlanCommand())
	root.AddCommand(newResetCommand())
	root.AddCommand(newConfigCommand())
	return root
}
