package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/registrar"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <zone>",
	Short: "Start monitoring a forecast zone",
	Args:  cobra.ExactArgs(1),
	RunE: withDeployment(func(dep *deployment, cmd *cobra.Command, args []string) error {
		zone, err := resolveZoneCode(args[0])
		if err != nil {
			return err
		}
		if err := dep.API.MonitorZone(cmd.Context(), zone); err != nil {
			return fmt.Errorf("monitor %s: %w", zone, err)
		}
		fmt.Printf("monitoring %s\n", zone)
		return nil
	}),
}

var ignoreCmd = &cobra.Command{
	Use:   "ignore <zone>",
	Short: "Stop monitoring a forecast zone",
	Args:  cobra.ExactArgs(1),
	RunE: withDeployment(func(dep *deployment, cmd *cobra.Command, args []string) error {
		zone, err := resolveZoneCode(args[0])
		if err != nil {
			return err
		}
		if err := dep.API.IgnoreZone(cmd.Context(), zone); err != nil {
			return fmt.Errorf("ignore %s: %w", zone, err)
		}
		fmt.Printf("no longer monitoring %s\n", zone)
		return nil
	}),
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Stop monitoring every forecast zone",
	Args:  cobra.NoArgs,
	RunE: withDeployment(func(dep *deployment, cmd *cobra.Command, _ []string) error {
		if err := dep.API.ClearMonitoring(cmd.Context()); err != nil {
			return fmt.Errorf("clear monitoring: %w", err)
		}
		fmt.Println("cleared all monitored zones")
		return nil
	}),
}

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "List currently monitored forecast zones",
	Args:  cobra.NoArgs,
	RunE: withDeployment(func(dep *deployment, cmd *cobra.Command, _ []string) error {
		state, err := registrar.DeriveState(cmd.Context(), dep.Store)
		if err != nil {
			return fmt.Errorf("list monitored zones: %w", err)
		}
		zones := state.List()
		if len(zones) == 0 {
			fmt.Println("no zones monitored")
			return nil
		}
		for _, z := range zones {
			fmt.Println(z)
		}
		return nil
	}),
}

var updateCmd = &cobra.Command{
	Use:   "update <zone>...",
	Short: "Start an update-weather saga for the given zones (or every monitored zone if none given)",
	RunE: withDeployment(func(dep *deployment, cmd *cobra.Command, args []string) error {
		zones := make([]ids.ZoneCode, 0, len(args))
		for _, raw := range args {
			z, err := resolveZoneCode(raw)
			if err != nil {
				return err
			}
			zones = append(zones, z)
		}
		if len(zones) == 0 {
			state, err := registrar.DeriveState(cmd.Context(), dep.Store)
			if err != nil {
				return fmt.Errorf("list monitored zones: %w", err)
			}
			zones = state.List()
		}

		updateID, err := dep.API.UpdateWeather(cmd.Context(), zones)
		if err != nil {
			return fmt.Errorf("update weather: %w", err)
		}
		if updateID == nil {
			fmt.Println("no zones to update")
			return nil
		}
		fmt.Println(string(*updateID))
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status <update-id>",
	Short: "Fetch the status of an update-weather saga run",
	Args:  cobra.ExactArgs(1),
	RunE: withDeployment(func(dep *deployment, cmd *cobra.Command, args []string) error {
		status, err := dep.API.FetchUpdateStatus(cmd.Context(), ids.UpdateID(args[0]))
		if err != nil {
			return fmt.Errorf("fetch update status: %w", err)
		}
		if status == nil {
			fmt.Println("no such update")
			return nil
		}
		return printJSON(status)
	}),
}

var weatherCmd = &cobra.Command{
	Use:   "weather <zone>",
	Short: "Fetch the current observation, forecast, and active alert for a zone",
	Args:  cobra.ExactArgs(1),
	RunE: withDeployment(func(dep *deployment, cmd *cobra.Command, args []string) error {
		zone, err := resolveZoneCode(args[0])
		if err != nil {
			return err
		}
		view, err := dep.API.FetchZoneWeather(cmd.Context(), zone)
		if err != nil {
			return fmt.Errorf("fetch zone weather: %w", err)
		}
		if view == nil {
			fmt.Println("no weather recorded for this zone yet")
			return nil
		}
		return printJSON(view)
	}),
}

// withDeployment adapts a RunE that needs an open deployment, closing it
// after the command completes regardless of outcome.
func withDeployment(fn func(dep *deployment, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dep, err := openDeployment(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer dep.Close()
		return fn(dep, cmd, args)
	}
}

func resolveZoneCode(raw string) (ids.ZoneCode, error) {
	_, zone, err := ids.ParseZoneCode(raw)
	if err != nil {
		return "", fmt.Errorf("invalid zone %q: %w", raw, err)
	}
	return zone, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
