package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"darkroom/internal/ipc"
)

func newWatchCommands(ctx *commandContext) []*cobra.Command {
	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause watching without stopping the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Pause()
				if err != nil {
					return err
				}
				if !resp.Paused {
					return ackError(resp.Message, "daemon could not pause watching")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Watching paused")
				return nil
			})
		},
	}

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume watching after a pause",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Resume()
				if err != nil {
					return err
				}
				if !resp.Resumed {
					return ackError(resp.Message, "daemon could not resume watching")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Watching resumed")
				return nil
			})
		},
	}

	rescanCmd := &cobra.Command{
		Use:   "rescan",
		Short: "Trigger an immediate sweep of the watch roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RescanNow()
				if err != nil {
					return err
				}
				if !resp.Triggered {
					return errors.New("daemon did not accept the rescan request")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Rescan requested")
				return nil
			})
		},
	}

	reloadCmd := &cobra.Command{
		Use:   "reload",
		Short: "Reload the configuration file and restart the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reload()
				if err != nil {
					return err
				}
				if !resp.Reloaded {
					return ackError(resp.Message, "daemon could not reload configuration")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration reloaded")
				return nil
			})
		},
	}

	return []*cobra.Command{pauseCmd, resumeCmd, rescanCmd, reloadCmd}
}

// ackError surfaces the daemon's message for control verbs that report
// failure in the response body rather than as an RPC error.
func ackError(message, fallback string) error {
	if msg := strings.TrimSpace(message); msg != "" {
		return errors.New(msg)
	}
	return errors.New(fallback)
}
