package cmd

import (
	"context"
	"fmt"
	"os"

	errors "github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Laisky/knote/cmd/tui"
	"github.com/Laisky/knote/internal/web/note/service"
	"github.com/Laisky/knote/library/config"
	"github.com/Laisky/knote/library/log"
)

var tuiCMD = &cobra.Command{
	Use:   "tui",
	Short: "Browse and write notes in the terminal",
	Long: `Launch an interactive Terminal User Interface (TUI) for knote.

The TUI connects to the configured note store directly,
it lists notes newest first and publishes new ones.
Image uploads are only available on the web page.

Example:
  knote tui -c /etc/knote/settings.yml

Keyboard shortcuts:
  ↑/↓ or j/k  Navigate notes
  n           Write a new note
  Enter       Publish
  Esc         Go back
  r           Refresh
  q           Quit`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		if err := initialize(context.Background(), cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTUI(context.Background(), config.LoadSettings()); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCMD.AddCommand(tuiCMD)
}

// runTUI starts the interactive Terminal User Interface and returns any start/run error.
func runTUI(ctx context.Context, settings config.Settings) error {
	store, closeStore, err := newNoteStore(ctx, settings.DB)
	if err != nil {
		return errors.Wrap(err, "new note store")
	}
	defer closeStore()

	svc, err := service.New(store, nil,
		service.WithRenderMarkdown(settings.RenderMarkdown),
	)
	if err != nil {
		return errors.Wrap(err, "new note service")
	}

	p := tea.NewProgram(
		tui.NewModel(ctx, svc),
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	_, err = p.Run()
	return errors.WithStack(err)
}
