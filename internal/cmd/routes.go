package cmd

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/simplifygenai/chatrelay/internal/server"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route and guard matrix",
	Long:  "Print every route the relay serves and whether auth and rate limiting apply to it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		renderRouteTable(cmd.OutOrStdout(), server.RouteTable())
		return nil
	},
}

func renderRouteTable(w io.Writer, routes []server.RouteInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Method", "Path", "Auth", "Rate-Limited", "Description"})
	for _, route := range routes {
		t.AppendRow(table.Row{
			route.Method,
			route.Path,
			formatGuard(route.Auth),
			formatGuard(route.RateLimited),
			route.Description,
		})
	}

	t.Render()
}

func formatGuard(applied bool) string {
	if applied {
		return "yes"
	}
	return "-"
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
