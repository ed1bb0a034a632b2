package main

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"
)

// binaries maps the run subcommand's targets to their main packages.
var binaries = map[string]string{
	"server": "./cmd/server",
	"worker": "./cmd/worker",
}

func newTestCmd() *cobra.Command {
	var race, cover, short bool
	cmd := &cobra.Command{
		Use:   "test [packages...]",
		Short: "Run the Go test suite (./... by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return goTool(cmd, testArgs(args, race, cover, short)...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "Enable the race detector")
	cmd.Flags().BoolVar(&cover, "cover", false, "Report coverage")
	cmd.Flags().BoolVar(&short, "short", false, "Skip long-running tests")
	return cmd
}

func testArgs(pkgs []string, race, cover, short bool) []string {
	args := []string{"test"}
	for flag, on := range map[string]bool{"-race": race, "-cover": cover, "-short": short} {
		if on {
			args = append(args, flag)
		}
	}
	if len(pkgs) == 0 {
		pkgs = []string{"./..."}
	}
	return append(args, pkgs...)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "run <server|worker> [-- flags...]",
		Short:     "Run the API server or the orphan worker from source",
		Long:      "Runs a binary with go run, passing --config through so both share one TOML file.",
		Args:      cobra.MatchAll(cobra.MinimumNArgs(1), func(cmd *cobra.Command, args []string) error { return validBinary(args[0]) }),
		ValidArgs: []string{"server", "worker"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return goTool(cmd, runArgs(binaries[args[0]], configPath, args[1:])...)
		},
	}
}

func validBinary(name string) error {
	if _, ok := binaries[name]; !ok {
		return fmt.Errorf("unknown binary %q (want server or worker)", name)
	}
	return nil
}

func runArgs(pkg, config string, extra []string) []string {
	args := []string{"run", pkg}
	if config != "" {
		args = append(args, "-config", config)
	}
	return append(args, extra...)
}

// goTool runs the go command with the command's streams attached.
func goTool(cmd *cobra.Command, args ...string) error {
	c := exec.CommandContext(cmd.Context(), "go", args...)
	c.Stdin = cmd.InOrStdin()
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()
	if err := c.Run(); err != nil {
		return fmt.Errorf("go %s: %w", args[0], err)
	}
	return nil
}
