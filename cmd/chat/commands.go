package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comigor/chat-go/internal/api"
	"github.com/comigor/chat-go/internal/app"
	"github.com/comigor/chat-go/internal/mcpserver"
	"github.com/comigor/chat-go/internal/session"
	"github.com/comigor/chat-go/internal/turn"
	"github.com/comigor/chat-go/pkg/tools"
)

func (c *cli) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "send [message]",
		Short:   "Send one message and print the reply",
		Example: `  chat send "What do my notes say about deployments?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := c.app.Send(cmd.Context(), strings.Join(args, " "))
			switch res.Status {
			case turn.StatusSkipped:
				return errors.New("message is empty")
			case turn.StatusBusy:
				return errors.New("another message is still waiting for a reply")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Reply.Content)
			if len(res.Reply.Sources) > 0 {
				fmt.Fprintf(out, "\nSources: %s\n", strings.Join(res.Reply.Sources, ", "))
			}
			if res.Status == turn.StatusFailed {
				return fmt.Errorf("message failed: %w", res.Err)
			}
			return nil
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the transcript of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs := c.app.Snapshot().Transcript
			if limit > 0 && len(msgs) > limit {
				msgs = msgs[len(msgs)-limit:]
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "The transcript is empty.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), tools.FormatTranscript(msgs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the last N messages")
	return cmd
}

func (c *cli) clearCmd() *cobra.Command {
	var newSession bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the transcript (keeps the session id and preferences)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if newSession {
				if err := c.app.NewSession(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started session %s.\n", c.app.Snapshot().SessionID)
				return nil
			}
			if err := c.app.ClearTranscript(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Transcript cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&newSession, "new-session", false, "Also start a new session id")
	return cmd
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "reset",
		Short:       "Delete the stored session; the next run starts fresh",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Purge(c.cfg); err != nil {
				return fmt.Errorf("failed to delete stored session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stored session deleted.")
			return nil
		},
	}
}

func (c *cli) prefsCmd() *cobra.Command {
	var (
		model  string
		rag    bool
		memory bool
		theme  string
	)
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change preferences",
		Example: `  chat prefs --model gpt-4o --rag=false
  chat prefs --theme light`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := c.app.Store
			flags := cmd.Flags()

			if flags.Changed("model") {
				if _, ok := store.Catalog().Lookup(model); !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not in the model catalog\n", model)
				}
				store.SetSelectedModel(model)
			}
			if flags.Changed("rag") {
				store.SetUseRAG(rag)
			}
			if flags.Changed("memory") {
				store.SetUseMemory(memory)
			}
			if flags.Changed("theme") {
				switch session.Theme(theme) {
				case session.ThemeDark, session.ThemeLight:
				default:
					return fmt.Errorf("unknown theme %q (dark or light)", theme)
				}
				if store.Snapshot().Theme != session.Theme(theme) {
					store.ToggleTheme()
				}
			}

			st := store.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "model:  %s\n", st.SelectedModel)
			fmt.Fprintf(out, "rag:    %t\n", st.UseRAG)
			fmt.Fprintf(out, "memory: %t\n", st.UseMemory)
			fmt.Fprintf(out, "theme:  %s\n", st.Theme)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Model id to use for new messages")
	cmd.Flags().BoolVar(&rag, "rag", true, "Ground replies in uploaded documents")
	cmd.Flags().BoolVar(&memory, "memory", true, "Use long-term memory")
	cmd.Flags().StringVar(&theme, "theme", "", "Color theme: dark or light")
	return cmd
}

func (c *cli) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the offered models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := c.app.Store.Catalog()
			selected := c.app.Snapshot().SelectedModel
			for _, m := range catalog.Models {
				mark := " "
				if m.ID == selected {
					mark = "*"
				}
				line := fmt.Sprintf("%s %-24s %s", mark, m.ID, m.Name)
				if m.ID == catalog.DefaultID() {
					line += " (default)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service health, stats and the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ov := c.app.Overview(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), tools.FormatOverview(c.app.Snapshot(), ov))
			return nil
		},
	}
}

func (c *cli) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a document for retrieval (" + strings.Join(api.SupportedExtensions, ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Upload(cmd.Context(), args[0])
			fmt.Fprintln(cmd.OutOrStdout(), app.UploadStatus(res, err))
			return err
		},
	}
}

func (c *cli) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the chat session as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := tools.NewToolManager()
			tools.RegisterChatTools(m, c.app)

			c.app.Monitor.Start(cmd.Context())
			defer c.app.Monitor.Stop()

			return mcpserver.ServeStdio(mcpserver.New(m, version))
		},
	}
}
