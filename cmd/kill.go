package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"portwatch/internal/classify"
	"portwatch/internal/scan"
	"portwatch/internal/terminate"
)

func newKillCmd() *cobra.Command {
	var pidFlag int32

	cmd := &cobra.Command{
		Use:   "kill [port]",
		Short: "Terminate the process behind a port",
		Long: `Terminates processes gracefully first, then by force after a short
grace window. With a port argument every process listening on that port
is killed; with --pid a single process is killed directly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			initCLILogging(cfg)

			if pidFlag == 0 && len(args) == 0 {
				return fmt.Errorf("either a port argument or --pid is required")
			}
			if pidFlag != 0 && len(args) > 0 {
				return fmt.Errorf("a port argument and --pid are mutually exclusive")
			}

			scanner := scan.NewSystemScanner()
			scanner.SetClassifier(classify.WithExtraKeywords(cfg.ExtraKeywords()))
			terminator := terminate.NewTerminator(scanner)

			out := cmd.OutOrStdout()

			if pidFlag != 0 {
				result := terminator.Kill(cmd.Context(), pidFlag)
				printKillResult(cmd, result)
				if !result.Success() {
					return fmt.Errorf("process %d could not be terminated", pidFlag)
				}
				return nil
			}

			port, err := parsePortArg(args[0])
			if err != nil {
				return err
			}
			killed, err := terminator.KillAllOnPort(cmd.Context(), port)
			if err != nil {
				return fmt.Errorf("killing processes on port %d: %w", port, err)
			}
			if killed == 0 {
				fmt.Fprintf(out, "No process is listening on port %d.\n", port)
				return nil
			}
			fmt.Fprintf(out, "Killed %d process(es) on port %d.\n", killed, port)
			return nil
		},
	}

	cmd.Flags().Int32Var(&pidFlag, "pid", 0, "kill this PID instead of resolving a port")

	return cmd
}

func printKillResult(cmd *cobra.Command, result terminate.Result) {
	out := cmd.OutOrStdout()
	switch result.Outcome {
	case terminate.OutcomeKilled:
		if result.Forced {
			fmt.Fprintf(out, "Process %d killed (forced after grace window).\n", result.PID)
		} else {
			fmt.Fprintf(out, "Process %d terminated gracefully.\n", result.PID)
		}
	case terminate.OutcomeAlreadyGone:
		fmt.Fprintf(out, "Process %d was already gone.\n", result.PID)
	case terminate.OutcomeFailed:
		fmt.Fprintf(out, "Failed to terminate process %d: %v\n", result.PID, result.Err)
	}
}

func parsePortArg(arg string) (uint16, error) {
	n, err := strconv.ParseUint(arg, 10, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid port %q: must be 1-65535", arg)
	}
	return uint16(n), nil
}
