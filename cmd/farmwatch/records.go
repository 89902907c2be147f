package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/farmwatch-core/internal/audit"
	"github.com/nerrad567/farmwatch-core/internal/dashboard"
	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/monitor"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/reading"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// session is a one-shot connection for the record commands.
type session struct {
	monitor.Components
	audit *auditTrail
}

// connect opens the store, verifies it is reachable and loads the records.
// Writes are audited when the local database opens.
func (a *app) connect(ctx context.Context, fn func(*session) error) error {
	store, err := openStore(ctx, a.cfg.Store, a.log)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close() //nolint:errcheck // Best effort on exit

	cctx, cancel := context.WithTimeout(ctx, a.cfg.Store.RequestTimeout)
	defer cancel()
	if ok, err := store.Connected(cctx); err != nil || !ok {
		return fmt.Errorf("%s (%v)", monitor.ConnectionErrorMessage, err)
	}

	s := &session{Components: newComponents(a.cfg, store, a.log)}
	if err := s.Registry.Refresh(ctx); err != nil {
		return err
	}
	if err := s.Settings.Load(ctx); err != nil {
		return fmt.Errorf("%s: %w", dashboard.MsgSettingsFetchFailed, err)
	}
	if err := s.Pumps.Refresh(ctx); err != nil {
		return err
	}

	s.audit, err = openAudit(ctx, a.cfg.Database, "cli", a.log)
	if err != nil {
		a.log.Debug("audit trail unavailable", "error", err)
	}
	defer s.audit.Close() //nolint:errcheck // Best effort on exit

	return fn(s)
}

func (s *session) record(e audit.Entry, err error) {
	e.Outcome = audit.OutcomeOK
	if err != nil {
		e.Outcome = audit.OutcomeFailed
	}
	s.audit.Recorder().Record(e)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ─── devices ───────────────────────────────────────────────────────

func newDevicesCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List sensor nodes with their latest reading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.connect(cmd.Context(), func(s *session) error {
				devices := s.Registry.Devices()
				if asJSON {
					return printJSON(cmd.OutOrStdout(), devices)
				}
				return printDevices(cmd.OutOrStdout(), devices)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "place <device> <place>",
		Short: "Set a device's place name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.connect(cmd.Context(), func(s *session) error {
				id, place := args[0], args[1]
				err := s.Registry.SetPlace(cmd.Context(), id, place)
				s.record(audit.Entry{
					Action:     audit.ActionDevicePlace,
					EntityType: "device",
					EntityID:   id,
					Path:       device.PlacePath(id),
					Details:    map[string]any{"place": place},
				}, err)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s place set to %q\n", id, place)
				return nil
			})
		},
	})
	return cmd
}

func printDevices(w io.Writer, devices []device.Device) error {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices found")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tPLACE\tREADINGS\tLATEST\tHUMIDITY\tTEMPERATURE\tSOIL MOISTURE")
	for _, d := range devices {
		latest, hum, temp, soil := "-", "-", "-", "-"
		if d.Latest != nil {
			latest = d.Latest.FormattedTime
			if latest == "" {
				latest = strconv.FormatInt(d.Latest.Timestamp, 10)
			}
			hum = formatValue(reading.Humidity.Value(*d.Latest))
			temp = formatValue(reading.Temperature.Value(*d.Latest))
			soil = formatValue(reading.SoilMoisture.Value(*d.Latest))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			d.ID, d.DisplayName(), d.ReadingCount, latest, hum, temp, soil)
	}
	return tw.Flush()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ─── settings ──────────────────────────────────────────────────────

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the shared thresholds",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.connect(cmd.Context(), func(s *session) error {
				return printJSON(cmd.OutOrStdout(), s.Settings.Current())
			})
		},
	})

	set := &cobra.Command{
		Use:   "set",
		Short: "Change thresholds; omitted bounds keep their value",
		Args:  cobra.NoArgs,
	}
	type bound struct {
		metric reading.Metric
		max    bool
		val    float64
	}
	var bounds []*bound
	for _, m := range reading.Metrics() {
		for _, isMax := range []bool{false, true} {
			b := &bound{metric: m, max: isMax}
			bounds = append(bounds, b)
			set.Flags().Float64Var(&b.val, flagName(m, isMax), 0, fmt.Sprintf("%s %s", m.Label(), minMax(isMax)))
		}
	}
	set.RunE = func(cmd *cobra.Command, _ []string) error {
		return a.connect(cmd.Context(), func(s *session) error {
			next := s.Settings.Current()
			for _, b := range bounds {
				if !cmd.Flags().Changed(flagName(b.metric, b.max)) {
					continue
				}
				t := next.For(b.metric)
				if b.max {
					t.Max = b.val
				} else {
					t.Min = b.val
				}
				next = next.With(b.metric, t)
			}

			err := s.Settings.Save(cmd.Context(), next)
			s.record(audit.Entry{
				Action:     audit.ActionSettingsSave,
				EntityType: "settings",
				Path:       s.Settings.Path(),
				Details:    map[string]any{"settings": next.Record()},
			}, err)
			if err != nil {
				return fmt.Errorf("%s: %w", settings.MsgSaveFailed, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), settings.MsgSaved)
			return printJSON(cmd.OutOrStdout(), next)
		})
	}
	cmd.AddCommand(set)
	return cmd
}

func flagName(m reading.Metric, isMax bool) string {
	return m.Slug() + "-" + minMax(isMax)
}

func minMax(isMax bool) string {
	if isMax {
		return "max"
	}
	return "min"
}

// ─── pump ──────────────────────────────────────────────────────────

func newPumpCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pump",
		Short: "List and command pumps",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every pump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.connect(cmd.Context(), func(s *session) error {
				return printPumps(cmd.OutOrStdout(), s.Pumps.List())
			})
		},
	})

	command := func(use, short, action, field string, nargs int,
		run func(ctx context.Context, s *session, args []string) (pump.Pump, error),
	) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(nargs),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.connect(cmd.Context(), func(s *session) error {
					p, err := run(cmd.Context(), s, args)
					e := audit.Entry{
						Action:     action,
						EntityType: "pump",
						EntityID:   args[0],
						Path:       rtdb.JoinPath(s.Pumps.Path(), args[0], field),
					}
					if nargs > 1 {
						e.Details = map[string]any{field: args[1]}
					}
					s.record(e, err)
					if err != nil {
						return err
					}
					return printPumps(cmd.OutOrStdout(), []pump.Pump{p})
				})
			},
		}
	}

	cmd.AddCommand(
		command("toggle-mode <pump>", "Switch a pump between manual and auto",
			audit.ActionPumpMode, pump.FieldMode, 1,
			func(ctx context.Context, s *session, args []string) (pump.Pump, error) {
				return s.Pumps.ToggleMode(ctx, args[0])
			}),
		command("toggle <pump>", "Switch a manual pump on or off",
			audit.ActionPumpStatus, pump.FieldStatus, 1,
			func(ctx context.Context, s *session, args []string) (pump.Pump, error) {
				return s.Pumps.ToggleStatus(ctx, args[0])
			}),
		command("link <pump> <device>", "Link an auto pump to a sensor node",
			audit.ActionPumpDevice, pump.FieldDevice, 2,
			func(ctx context.Context, s *session, args []string) (pump.Pump, error) {
				return s.Pumps.SetDevice(ctx, args[0], args[1])
			}),
	)
	return cmd
}

func printPumps(w io.Writer, pumps []pump.Pump) error {
	if len(pumps) == 0 {
		fmt.Fprintln(w, "No pumps found")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PUMP\tMODE\tSTATUS\tDEVICE\tAUTO BASED ON")
	for _, p := range pumps {
		dev := p.Device
		if dev == "" {
			dev = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Mode, p.Status, dev, p.AutoBasedOnLabel())
	}
	return tw.Flush()
}
