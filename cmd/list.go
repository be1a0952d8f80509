package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"portwatch/internal/classify"
	"portwatch/internal/ports"
	"portwatch/internal/scan"
)

var (
	listHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	listCategoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func newListCmd() *cobra.Command {
	var (
		jsonOutput bool
		searchText string
		minPort    uint16
		maxPort    uint16
		categories []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Scan and list listening TCP ports",
		Long: `Performs a single scan of listening TCP sockets and prints one row
per (port, process) pair: the port, owning PID, process name, user, and
category. Sockets without a resolvable owner are omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			initCLILogging(cfg)

			scanner := scan.NewSystemScanner()
			scanner.SetClassifier(classify.WithExtraKeywords(cfg.ExtraKeywords()))

			records, err := scanner.Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("scanning ports: %w", err)
			}

			filter := ports.Filter{
				SearchText: searchText,
				MinPort:    minPort,
				MaxPort:    maxPort,
				Categories: parseCategories(categories),
			}
			filtered := records[:0:0]
			for _, r := range records {
				if filter.Matches(r, false, false) {
					filtered = append(filtered, r)
				}
			}
			sort.Slice(filtered, func(i, j int) bool {
				if filtered[i].Port != filtered[j].Port {
					return filtered[i].Port < filtered[j].Port
				}
				return filtered[i].PID < filtered[j].PID
			})

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(filtered)
			}

			printRecordTable(cmd, filtered)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output records as JSON")
	cmd.Flags().StringVar(&searchText, "search", "", "filter by substring of port, process name, or command")
	cmd.Flags().Uint16Var(&minPort, "min-port", 0, "only show ports >= this value")
	cmd.Flags().Uint16Var(&maxPort, "max-port", 0, "only show ports <= this value (0 disables)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "only show these categories (web, database, development, system, other)")

	return cmd
}

func printRecordTable(cmd *cobra.Command, records []ports.Record) {
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No listening ports found.")
		return
	}

	fmt.Fprintln(out, listHeaderStyle.Render(fmt.Sprintf("%-7s %-8s %-24s %-12s %-12s", "PORT", "PID", "PROCESS", "USER", "CATEGORY")))
	for _, r := range records {
		fmt.Fprintf(out, "%-7d %-8d %-24s %-12s %s\n",
			r.Port, r.PID, truncateCell(r.ProcessName, 24), truncateCell(r.User, 12),
			listCategoryStyle.Render(string(r.Category)))
	}
	fmt.Fprintf(out, "\n%d listening port(s)\n", len(records))
}

// truncateCell clips a cell to the given display width, wide runes included.
func truncateCell(s string, max int) string {
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max-1, "…")
}

// parseCategories maps flag values ("web", "database", ...) onto the
// classifier categories. Unknown names are ignored.
func parseCategories(names []string) map[classify.Category]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[classify.Category]bool)
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "web", "webserver", "web-server":
			set[classify.CategoryWebServer] = true
		case "database", "db":
			set[classify.CategoryDatabase] = true
		case "development", "dev":
			set[classify.CategoryDevelopment] = true
		case "system":
			set[classify.CategorySystem] = true
		case "other":
			set[classify.CategoryOther] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}
