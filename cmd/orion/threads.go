package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Manage chat threads",
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chat threads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.workspace.State()
		out := cmd.OutOrStdout()
		if len(st.ChatThreads) == 0 {
			fmt.Fprintln(out, "No chat threads.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tTITLE\tMESSAGES\tUPDATED")
		for _, th := range st.ChatThreads {
			marker := ""
			if th.ID == st.ActiveThreadID {
				marker = "*"
			}
			updated := time.UnixMilli(th.UpdatedAt).Format(time.DateTime)
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", marker, th.ID, th.Title, len(th.Messages), updated)
		}
		return w.Flush()
	},
}

var threadsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start an empty chat thread",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		th := a.workspace.NewChat()
		fmt.Fprintf(cmd.OutOrStdout(), "Started %s (%s)\n", th.Title, th.ID)
		return nil
	},
}

var threadsUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make a thread active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.workspace.SelectThread(args[0]); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, m := range a.workspace.State().CurrentMessages() {
			fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
		}
		return nil
	},
}

var threadsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a thread",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.workspace.RenameThread(args[0], strings.Join(args[1:], " "))
	},
}

var threadsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.workspace.DeleteThread(args[0])
	},
}

func init() {
	threadsCmd.AddCommand(threadsListCmd, threadsNewCmd, threadsUseCmd, threadsRenameCmd, threadsDeleteCmd)
	rootCmd.AddCommand(threadsCmd)
}
