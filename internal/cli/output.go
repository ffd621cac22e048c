package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintFields prints a flat record. Text output is one "key: value" line per field
// in key order.
func (p *Printer) PrintFields(fields map[string]any) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(fields)
	case OutputFormatText:
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(p.writer, "%s: %v\n", k, fields[k])
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintValue prints a single value: raw in text mode, encoded in JSON mode.
func (p *Printer) PrintValue(v any) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(v)
	case OutputFormatText:
		_, err := fmt.Fprintln(p.writer, v)
		return err
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintDocument always prints JSON; documents such as share sets and proofs have
// no text rendering.
func (p *Printer) PrintDocument(v any) error {
	return p.printJSON(v)
}

func (p *Printer) printJSON(v any) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
