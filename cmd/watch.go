package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"portwatch/internal/classify"
	"portwatch/internal/notify"
	"portwatch/internal/registry"
	"portwatch/internal/scan"
	"portwatch/internal/settings"
	"portwatch/internal/terminate"
	"portwatch/internal/tui"
	"portwatch/pkg/logging"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Open the interactive port watcher",
		Long: `Opens the interactive terminal UI: a continuously refreshing table
of listening ports with favorites, watched-port notifications, search,
and process termination.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// Logs go to the in-memory channel so they cannot corrupt the
			// alternate screen. The channel is drained by the runtime; the
			// TUI's own state comes from the event bus.
			logging.InitForTUI(logging.ParseLevel(cfg.LogLevel))
			defer logging.CloseTUIChannel()

			store, err := settings.NewDefaultFileStore()
			if err != nil {
				return fmt.Errorf("opening settings store: %w", err)
			}

			scanner := scan.NewSystemScanner()
			scanner.SetClassifier(classify.WithExtraKeywords(cfg.ExtraKeywords()))

			bus := notify.NewBus()
			defer bus.Close()

			notifiers := notify.MultiNotifier{notify.NewBusNotifier(bus)}
			if cfg.DesktopNotificationsEnabled() {
				notifiers = append(notifiers, notify.NewDesktopNotifier())
			}

			reg := registry.New(registry.Deps{
				Scanner:    scanner,
				Terminator: terminate.NewTerminator(scanner),
				Store:      store,
				Notifier:   notifiers,
				Bus:        bus,
			})

			ctx := cmd.Context()
			reg.Start(ctx)
			defer reg.Stop()

			model := tui.NewModel(ctx, reg, bus)
			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("running port watcher: %w", err)
			}
			return nil
		},
	}
}
