package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/liliang-cn/orion/internal/chart"
	"github.com/liliang-cn/orion/internal/dataset"
	"github.com/liliang-cn/orion/internal/domain"
	"github.com/spf13/cobra"
)

var (
	askFile        string
	suggestFile    string
	suggestContext bool
	previewRows    int
	chatFile       string
)

// File bindings are not persisted, so commands that talk about a file
// upload it first when --file is given.
func bindFile(ctx context.Context, a *app, out io.Writer, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	schema, err := a.workspace.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Uploaded %s (%d columns)\n", schema.FileName, len(schema.Columns))
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a CSV or Excel file for analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		out := cmd.OutOrStdout()
		if err := bindFile(ctx, a, out, args[0]); err != nil {
			return err
		}

		st := a.workspace.State()
		if th, ok := st.ActiveThread(); ok {
			fmt.Fprintf(out, "Thread: %s (%s)\n", th.Title, th.ID)
		}
		if schema := st.CurrentSchema(); schema != nil {
			for _, col := range schema.Columns {
				fmt.Fprintf(out, "  %-24s %s\n", col.Name, col.Type)
			}
		}
		printSuggestions(out, "Try asking:", st.Suggestions)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the current file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		out := cmd.OutOrStdout()
		if err := bindFile(ctx, a, out, askFile); err != nil {
			return err
		}
		return ask(ctx, a, out, strings.Join(args, " "))
	},
}

func ask(ctx context.Context, a *app, out io.Writer, prompt string) error {
	msg, err := a.workspace.Ask(ctx, prompt)
	if msg != nil {
		printMessage(out, *msg)
	}
	return err
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest questions for the current file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		out := cmd.OutOrStdout()
		if err := bindFile(ctx, a, out, suggestFile); err != nil {
			return err
		}

		var suggestions []string
		if suggestContext {
			suggestions = a.workspace.ContextualSuggestions(ctx)
		} else {
			suggestions = a.workspace.RefreshSuggestions(ctx)
		}
		if len(suggestions) == 0 {
			fmt.Fprintln(out, "No suggestions available.")
			return nil
		}
		printSuggestions(out, "Suggestions:", suggestions)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: `Read questions from standard input, one per line. Lines starting with
a slash are commands: /upload <file>, /suggest, /new, /quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		out := cmd.OutOrStdout()
		if err := bindFile(ctx, a, out, chatFile); err != nil {
			return err
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			cmdName, arg, _ := strings.Cut(line, " ")

			switch {
			case line == "":
				continue
			case cmdName == "/quit" || cmdName == "/exit":
				return nil
			case cmdName == "/upload":
				err = bindFile(ctx, a, out, strings.TrimSpace(arg))
			case cmdName == "/suggest":
				printSuggestions(out, "Follow-ups:", a.workspace.ContextualSuggestions(ctx))
			case cmdName == "/new":
				th := a.workspace.NewChat()
				fmt.Fprintf(out, "Started %s (%s)\n", th.Title, th.ID)
			case strings.HasPrefix(line, "/"):
				fmt.Fprintf(out, "Unknown command %s\n", cmdName)
			default:
				err = ask(ctx, a, out, line)
			}
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
				err = nil
			}
		}
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show the first rows and column statistics of a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := dataset.Preview(args[0], previewRows)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d rows, %d columns\n\n", tbl.FileName, tbl.TotalRows, len(tbl.Columns))
		fmt.Fprintln(out, strings.Join(columnNames(tbl.Columns), "\t"))
		for _, row := range tbl.Rows {
			fmt.Fprintln(out, strings.Join(row, "\t"))
		}
		fmt.Fprintln(out)
		for _, col := range tbl.Columns {
			fmt.Fprintf(out, "%-24s %-7s %s\n", col.Name, col.Type, formatStats(tbl.Summary[col.Name]))
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard all threads and saved state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		a.workspace.Reset()
		fmt.Fprintln(cmd.OutOrStdout(), "Workspace reset.")
		return nil
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the saved workspace state as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(a.workspace.State())
	},
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "Upload this file before asking")
	suggestCmd.Flags().StringVarP(&suggestFile, "file", "f", "", "Upload this file first")
	suggestCmd.Flags().BoolVar(&suggestContext, "contextual", false, "Suggest follow-ups to the current conversation")
	chatCmd.Flags().StringVarP(&chatFile, "file", "f", "", "Upload this file before the first question")
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", dataset.DefaultPreviewRows, "Number of rows to show")

	rootCmd.AddCommand(uploadCmd, askCmd, suggestCmd, chatCmd, previewCmd, resetCmd, stateCmd)
}

func printMessage(out io.Writer, msg domain.ChatMessage) {
	fmt.Fprintln(out, msg.Content)
	if msg.ChartMessage != "" {
		fmt.Fprintf(out, "(%s)\n", msg.ChartMessage)
	}
	for _, p := range chart.BuildAll(msg.Charts) {
		fmt.Fprintln(out)
		fmt.Fprint(out, chart.Describe(p))
	}
}

func printSuggestions(out io.Writer, heading string, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(out, heading)
	for _, s := range suggestions {
		fmt.Fprintf(out, "  - %s\n", s)
	}
}

func columnNames(cols []domain.ColumnInfo) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func formatStats(s domain.SummaryStats) string {
	parts := []string{fmt.Sprintf("nulls=%d/%d", s.NullCount, s.TotalCount)}
	if s.UniqueCount != nil {
		parts = append(parts, fmt.Sprintf("unique=%d", *s.UniqueCount))
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{{"min", s.Min}, {"max", s.Max}, {"mean", s.Mean}, {"median", s.Median}, {"std", s.StdDev}} {
		if f.v != nil {
			parts = append(parts, fmt.Sprintf("%s=%.4g", f.name, *f.v))
		}
	}
	return strings.Join(parts, " ")
}
