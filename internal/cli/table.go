package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/fine-dev/fine-go/pkg/rest"
)

// filterArg is one filter flag as given on the command line.
type filterArg struct {
	op, column, value string
}

// filterValue collects every filter flag into one list, so filters reach the builder in the
// order they were typed regardless of their operator.
type filterValue struct {
	op   string
	dest *[]filterArg
}

func (v *filterValue) Set(s string) error {
	column, value, err := splitAssignment(v.op, s)
	if err != nil {
		return err
	}
	*v.dest = append(*v.dest, filterArg{op: v.op, column: column, value: value})
	return nil
}

func (v *filterValue) String() string { return "" }

func (v *filterValue) Type() string { return "column=value" }

// tableFlags holds the filter and output flags shared by the table commands.
type tableFlags struct {
	filters       []filterArg
	order         []string
	limit, offset int
	columns       []string
	set           []string
	file          string
	path          string
	retries       uint
	dryRun        bool
	all           bool
}

func (f *tableFlags) addFilters(cmd *cobra.Command) {
	filters := []struct{ op, usage string }{
		{"eq", "Filter column=value (equal), repeatable"},
		{"neq", "Filter column=value (not equal), repeatable"},
		{"gt", "Filter column=value (greater than), repeatable"},
		{"lt", "Filter column=value (less than), repeatable"},
		{"like", "Filter column=pattern (LIKE, % matches any run), repeatable"},
		{"in", "Filter column=a,b,c (one of), repeatable"},
	}
	for _, fl := range filters {
		cmd.Flags().Var(&filterValue{op: fl.op, dest: &f.filters}, fl.op, fl.usage)
	}
}

func (f *tableFlags) addOutput(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "path", "", "Print only the part of the result at this gjson path (e.g. \"#.id\")")
	cmd.Flags().UintVar(&f.retries, "retries", 0, "Retry transport failures, 429 and 5xx responses up to this many times")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Print the request instead of sending it")
}

func splitAssignment(flag, s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("invalid --%s %q, expected column=value", flag, s)
	}
	return k, v, nil
}

func (f *tableFlags) hasFilters() bool {
	return len(f.filters) > 0
}

// apply adds the filters to fb in command line order, then ordering and paging.
func (f *tableFlags) apply(fb *rest.FilterBuilder) error {
	for _, a := range f.filters {
		switch a.op {
		case "eq":
			fb.Eq(a.column, a.value)
		case "neq":
			fb.Neq(a.column, a.value)
		case "gt":
			fb.Gt(a.column, a.value)
		case "lt":
			fb.Lt(a.column, a.value)
		case "like":
			fb.Like(a.column, a.value)
		case "in":
			var values []any
			for _, item := range strings.Split(a.value, ",") {
				values = append(values, item)
			}
			fb.In(a.column, values...)
		default:
			return fmt.Errorf("unknown filter --%s", a.op)
		}
	}
	for _, o := range f.order {
		column, dir, _ := strings.Cut(o, ".")
		switch dir {
		case "", "asc":
			fb.Order(column, true)
		case "desc":
			fb.Order(column, false)
		default:
			return fmt.Errorf("invalid --order %q, expected column[.asc|.desc]", o)
		}
	}
	if f.limit >= 0 {
		fb.Limit(f.limit)
	}
	if f.offset >= 0 {
		fb.Offset(f.offset)
	}
	return nil
}

// run executes the builder, or prints the request with --dry-run, and prints the result.
func (f *tableFlags) run(cmd *cobra.Command, fb *rest.FilterBuilder) error {
	out := cmd.OutOrStdout()
	if f.dryRun {
		return printRequest(out, fb)
	}

	var raw json.RawMessage
	err := withRetries(cmd.Context(), f.retries, func() error {
		var err error
		raw, err = fb.Execute(cmd.Context())
		return err
	})
	if err != nil {
		return err
	}

	if f.path != "" {
		r := gjson.GetBytes(raw, f.path)
		if !r.Exists() {
			return fmt.Errorf("path %q not found in result", f.path)
		}
		raw = json.RawMessage(r.Raw)
	}
	return printResult(out, raw)
}

func printRequest(out io.Writer, fb *rest.FilterBuilder) error {
	req, err := fb.Request()
	if err != nil {
		return err
	}
	if jsonOutput {
		view := map[string]any{"method": req.Method, "url": req.URL}
		if req.Body != nil {
			view["body"] = json.RawMessage(req.Body)
		}
		printJSON(out, view)
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", req.Method, req.URL)
	for _, h := range req.Header {
		fmt.Fprintf(out, "%s: %s\n", h.Key, h.Value)
	}
	if req.Body != nil {
		fmt.Fprintf(out, "\n%s\n", req.Body)
	}
	return nil
}

func newTableCmd() *cobra.Command {
	tableCmd := &cobra.Command{
		Use:   "table [command]",
		Short: "Read and write table rows",
		Long: `Read and write table rows through the REST API.

Filters are column=value pairs. Every filter narrows the result; repeating a flag adds
another condition on the same column. Filters are sent in the order they are given.

Examples:
  fine table select tasks --gt priority=1 --lt priority=5 --order priority.desc
  fine table insert tasks --set title="Write report" --set priority=3
  fine table insert tasks -f tasks.yaml
  fine table update tasks --eq id=7 --set done=true
  fine table delete tasks --eq done=true`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	tableCmd.AddCommand(newTableSelectCmd(), newTableInsertCmd(), newTableUpdateCmd(), newTableDeleteCmd())
	return tableCmd
}

func newTableSelectCmd() *cobra.Command {
	f := &tableFlags{}
	cmd := &cobra.Command{
		Use:   "select TABLE [flags]",
		Short: "Select rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newFineClient()
			if err != nil {
				return err
			}
			fb := client.Table(args[0]).Select(f.columns...)
			if err := f.apply(fb); err != nil {
				return err
			}
			return f.run(cmd, fb)
		},
	}
	f.addFilters(cmd)
	f.addOutput(cmd)
	cmd.Flags().StringSliceVar(&f.columns, "select", nil, "Columns to return (default all)")
	cmd.Flags().StringArrayVar(&f.order, "order", nil, "Order by column[.asc|.desc], repeatable")
	cmd.Flags().IntVar(&f.limit, "limit", -1, "Maximum number of rows")
	cmd.Flags().IntVar(&f.offset, "offset", -1, "Number of rows to skip")
	return cmd
}

func newTableInsertCmd() *cobra.Command {
	f := &tableFlags{limit: -1, offset: -1}
	cmd := &cobra.Command{
		Use:   "insert TABLE [flags]",
		Short: "Insert rows from --set assignments or a YAML/JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := insertBody(f)
			if err != nil {
				return err
			}
			client, err := newFineClient()
			if err != nil {
				return err
			}
			return f.run(cmd, client.Table(args[0]).Insert(body))
		},
	}
	f.addOutput(cmd)
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "Field assignment key=value, repeatable")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML or JSON file with the rows to insert, - for stdin")
	return cmd
}

func insertBody(f *tableFlags) (json.RawMessage, error) {
	switch {
	case f.file != "" && len(f.set) > 0:
		return nil, errors.New("use either --file or --set, not both")
	case f.file != "":
		records, err := readRecords(f.file)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("no records in %s", f.file)
		}
		var v any = records
		if len(records) == 1 {
			v = records[0]
		}
		body, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode records: %v", err)
		}
		return body, nil
	case len(f.set) > 0:
		return buildRecord(f.set)
	}
	return nil, errors.New("nothing to insert, use --set or --file")
}

func newTableUpdateCmd() *cobra.Command {
	f := &tableFlags{limit: -1, offset: -1}
	cmd := &cobra.Command{
		Use:   "update TABLE --set key=value [filters]",
		Short: "Update the rows matching the filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !f.hasFilters() && !f.all {
				return errors.New("refusing to update every row, add a filter or --all")
			}
			values, err := buildRecord(f.set)
			if err != nil {
				return err
			}
			client, err := newFineClient()
			if err != nil {
				return err
			}
			fb := client.Table(args[0]).Update(values)
			if err := f.apply(fb); err != nil {
				return err
			}
			return f.run(cmd, fb)
		},
	}
	f.addFilters(cmd)
	f.addOutput(cmd)
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "Field assignment key=value, repeatable")
	cmd.Flags().BoolVar(&f.all, "all", false, "Allow updating every row")
	cmd.MarkFlagRequired("set")
	return cmd
}

func newTableDeleteCmd() *cobra.Command {
	f := &tableFlags{limit: -1, offset: -1}
	cmd := &cobra.Command{
		Use:   "delete TABLE [filters]",
		Short: "Delete the rows matching the filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !f.hasFilters() && !f.all {
				return errors.New("refusing to delete every row, add a filter or --all")
			}
			client, err := newFineClient()
			if err != nil {
				return err
			}
			fb := client.Table(args[0]).Delete()
			if err := f.apply(fb); err != nil {
				return err
			}
			return f.run(cmd, fb)
		},
	}
	f.addFilters(cmd)
	f.addOutput(cmd)
	cmd.Flags().BoolVar(&f.all, "all", false, "Allow deleting every row")
	return cmd
}

// parseMetadata turns key=value flags into a metadata object. Values that parse as numbers or
// booleans keep that type.
func parseMetadata(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	md := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, err := splitAssignment("metadata", p)
		if err != nil {
			return nil, err
		}
		if b, err := strconv.ParseBool(v); err == nil {
			md[k] = b
		} else if n, err := strconv.ParseFloat(v, 64); err == nil {
			md[k] = n
		} else {
			md[k] = v
		}
	}
	return md, nil
}
