package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nodeflow/internal/behavior/builtin"
	"nodeflow/internal/codec"
	"nodeflow/internal/flow"
	"nodeflow/internal/loader"
)

// validateResult is the JSON form of a validate run
type validateResult struct {
	Path        string            `json:"path"`
	Nodes       int               `json:"nodes"`
	Connections int               `json:"connections"`
	Fingerprint string            `json:"fingerprint"`
	Report      *codec.LoadReport `json:"report"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	doc, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	registry, err := builtin.NewRegistry()
	if err != nil {
		return err
	}

	model := flow.New(registry)
	report, err := codec.Load(model, doc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(validateResult{
			Path:        path,
			Nodes:       model.NodeCount(),
			Connections: model.ConnectionCount(),
			Fingerprint: model.Fingerprint(),
			Report:      report,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%s: %d nodes, %d connections\n", path, model.NodeCount(), model.ConnectionCount())
		fmt.Fprintf(out, "fingerprint: %s\n", model.Fingerprint())
		for _, s := range report.SkippedNodes {
			fmt.Fprintf(out, "skipped node %s: %s\n", s.Ref, s.Reason)
		}
		for _, s := range report.SkippedConnections {
			fmt.Fprintf(out, "skipped connection %s: %s\n", s.Ref, s.Reason)
		}
	}

	if !report.Complete() {
		return fmt.Errorf("%s: %d nodes and %d connections would be skipped",
			path, len(report.SkippedNodes), len(report.SkippedConnections))
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	doc, err := loader.Convert(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d nodes, %d connections)\n",
		args[1], len(doc.Nodes), len(doc.Connections))
	return nil
}

func runTypes(cmd *cobra.Command, args []string) error {
	registry, err := builtin.NewRegistry()
	if err != nil {
		return err
	}
	types := registry.Types()

	out := cmd.OutOrStdout()
	if jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(types)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tCATEGORY\tCONVERTER")
	for _, t := range types {
		fmt.Fprintf(tw, "%s\t%s\t%v\n", t.ID, t.Category, t.Converter)
	}
	return tw.Flush()
}
