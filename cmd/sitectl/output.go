package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/sitecontent/internal/crud"
	"github.com/matthewbaird/sitecontent/internal/handler"
	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
)

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func (a *app) printList(cmd *cobra.Command, m crud.Manager) error {
	recs, err := m.Snapshot()
	if err != nil {
		return err
	}
	if a.jsonOutput() {
		if recs == nil {
			recs = []types.Record{}
		}
		return printJSON(cmd.OutOrStdout(), recs)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tID\tTITLE\tENABLED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", r.Order, r.ID, r.Title(), r.Enabled())
	}
	return tw.Flush()
}

func (a *app) printRecord(cmd *cobra.Command, rec types.Record) error {
	if a.jsonOutput() {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", rec.ID)
	fmt.Fprintf(tw, "order\t%d\n", rec.Order)
	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%v\n", k, rec.Fields[k])
	}
	return tw.Flush()
}

func printSchema(w io.Writer, body handler.SchemaResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, ks := range body.Kinds {
		fmt.Fprintf(tw, "%s (%s)\t%s\n", ks.Kind, ks.Resource, ks.Description)
		for _, f := range ks.Fields {
			req := ""
			if f.Required {
				req = "required"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Key, f.Type, req)
		}
	}
	fmt.Fprintf(tw, "icons\t%s\n", strings.Join(body.Icons, ", "))
	return tw.Flush()
}

// describe turns a validation error into one line per field.
func describe(err error) error {
	fields, ok := store.IsValidation(err)
	if !ok {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %s", k, fields[k])
	}
	return fmt.Errorf("%s", b.String())
}
