package main

import (
	"fmt"

	godbus "github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/popuptrack/internal/dbus"
)

var statusOpts struct {
	dump bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running popuptrack serve over D-Bus",
	Long: `Print the one-line status of a running "popuptrack serve", or with --dump
its current popup trees as JSON.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.dump, "dump", false,
		"Print the popup trees as JSON instead of the status line")
}

func runStatus(cmd *cobra.Command, args []string) error {
	c := getConfig()

	conn, err := godbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	method := dbus.DBusInterface + ".Status"
	if statusOpts.dump {
		method = dbus.DBusInterface + ".Dump"
	}

	var out string
	obj := conn.Object(c.DBus.BusName, godbus.ObjectPath(dbus.DBusPath))
	if err := obj.Call(method, 0).Store(&out); err != nil {
		return fmt.Errorf("is popuptrack serve running? %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
