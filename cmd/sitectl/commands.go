package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/feed"
	"github.com/matthewbaird/sitecontent/internal/handler"
	"github.com/matthewbaird/sitecontent/internal/types"
)

func (a *app) kindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "Show the element kinds and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var body handler.SchemaResponse
			if err := a.client.Schema(cmd.Context(), &body); err != nil {
				return fmt.Errorf("fetching schema: %w", err)
			}
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), body)
			}
			return printSchema(cmd.OutOrStdout(), body)
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <kind>",
		Short: "List the elements of a kind in display order",
		Example: `  sitectl list pillars
  sitectl list statistic -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd, args[0])
			if err != nil {
				return err
			}
			return a.printList(cmd, m)
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create <kind> [key=value...]",
		Short: "Create an element at the end of its collection",
		Long: `Create an element. Fields come from key=value pairs, a YAML or JSON file
(--file), or both; pairs win over the file. Dotted keys set nested fields.`,
		Example: `  sitectl create pillar title=Calidad "description=Procesos certificados" icon=Award
  sitectl create service --file servicio.yaml cta.text=Cotizar`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := readFields(file, args[1:])
			if err != nil {
				return err
			}
			m, err := a.manager(cmd, args[0])
			if err != nil {
				return err
			}
			rec, err := m.CreateFrom(cmd.Context(), fields)
			if err != nil {
				return describe(err)
			}
			return a.printRecord(cmd, rec)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file with the element fields")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:     "update <kind> <id> key=value...",
		Short:   "Change fields of an element",
		Example: `  sitectl update project 0192... type=industrial enabled=false`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := readFields(file, args[2:])
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				return fmt.Errorf("nothing to update")
			}
			m, err := a.manager(cmd, args[0])
			if err != nil {
				return err
			}
			rec, err := m.UpdateFrom(cmd.Context(), args[1], fields)
			if err != nil {
				return describe(err)
			}
			return a.printRecord(cmd, rec)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file with the fields to change")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete an element and close the gap in the order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd, args[0])
			if err != nil {
				return err
			}
			if err := m.Delete(cmd.Context(), args[1]); err != nil {
				return describe(err)
			}
			return a.printList(cmd, m)
		},
	}
}

func (a *app) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "move <kind> <from> <to>",
		Short:   "Move the element at one position to another (positions start at 1)",
		Example: `  sitectl move pillars 3 1`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := position(args[1])
			if err != nil {
				return err
			}
			to, err := position(args[2])
			if err != nil {
				return err
			}
			m, err := a.manager(cmd, args[0])
			if err != nil {
				return err
			}
			if err := m.Move(cmd.Context(), from, to); err != nil {
				return describe(err)
			}
			return a.printList(cmd, m)
		},
	}
}

func (a *app) reorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <kind> <id>...",
		Short: "Set the full display order of a kind",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd, args[0])
			if err != nil {
				return err
			}
			if err := m.Reorder(cmd.Context(), args[1:]); err != nil {
				return describe(err)
			}
			return a.printList(cmd, m)
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [kind...]",
		Short: "Stream changes as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]types.Kind, 0, len(args))
			for _, arg := range args {
				k, err := types.ParseKind(arg)
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}
			u, err := feed.URL(a.v.GetString(cfgAPIURL))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return feed.Watch(cmd.Context(), u, kinds, func(evt event.DomainEvent) error {
				if a.jsonOutput() {
					return printJSON(out, evt)
				}
				_, err := fmt.Fprintf(out, "%s  %-18s %-9s %s\n",
					evt.OccurredAt.Local().Format("15:04:05"), evt.EventType, evt.Kind, evt.Summary)
				return err
			})
		},
	}
}

func position(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q: positions start at 1", s)
	}
	return n - 1, nil
}

// readFields merges the optional file with key=value pairs.
func readFields(file string, pairs []string) (map[string]any, error) {
	fields := make(map[string]any)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		// YAML is a superset of JSON.
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
	}
	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: want key=value", pair)
		}
		setPath(fields, key, parseValue(key, val))
	}
	return fields, nil
}

// setPath assigns val at a dotted key, creating nested maps as needed.
func setPath(m map[string]any, key string, val any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = val
}

// parseValue keeps values as strings; the validator coerces numbers. Only
// the enabled flag is boolean.
func parseValue(key, val string) any {
	if key == types.FieldEnabled {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return val
}
