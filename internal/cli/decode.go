package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kvserde/internal/envelope"
)

// DecodeOptions holds flags for the decode and inspect commands.
type DecodeOptions struct {
	*RootOptions
	Hex       bool
	Canonical bool
}

// DecodeResult is the JSON form of a decoded payload.
type DecodeResult struct {
	Kind   string          `json:"kind"`
	Record string          `json:"record,omitempty"`
	Value  json.RawMessage `json:"value"` // canonical text
}

// InspectResult describes the framing of a payload.
type InspectResult struct {
	Marker      string `json:"marker,omitempty"`
	Compression string `json:"compression"`
	WireBytes   int    `json:"wire_bytes"`
	TextBytes   int    `json:"text_bytes"`
	Kind        string `json:"kind"`
	Record      string `json:"record,omitempty"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Print the value carried by a payload",
		Long: `Print the value carried by a payload.

The payload is read from the file argument, or stdin when it is omitted or
"-". With --hex the input is hex text instead of raw bytes. The value is
printed as YAML, or as canonical text with --canonical. Records of types
this binary does not know are printed with the !record tag.

Examples:
  kvserde decode doc.bin
  kvserde encode doc.yaml | kvserde decode --hex
  kvserde decode doc.bin --canonical`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Hex, "hex", false, "input is hex text")
	cmd.Flags().BoolVar(&opts.Canonical, "canonical", false, "print canonical text instead of YAML")

	return cmd
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Describe the framing of a payload",
		Long: `Describe the framing of a payload: its marker, compression, sizes and
the kind of its top-level value.

Examples:
  kvserde inspect doc.bin
  kvserde inspect --hex payload.hex --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Hex, "hex", false, "input is hex text")

	return cmd
}

func runDecode(opts *DecodeOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)

	payload, err := readPayload(cmd, args, opts.Hex)
	if err != nil {
		return inputError(f, err)
	}
	info, err := envelope.Inspect(payload)
	if err != nil {
		return f.fail(ExitFailure, classify(err), "failed to decode payload", err)
	}
	return printValue(opts.RootOptions, cmd, info, opts.Canonical)
}

// printValue writes the value described by info in the configured format.
func printValue(opts *RootOptions, cmd *cobra.Command, info envelope.Info, canonical bool) error {
	f := opts.formatter(cmd)
	text := info.Text
	if len(text) == 0 {
		text = []byte("null")
	}

	if opts.Format == "json" {
		return f.Success(DecodeResult{
			Kind:   info.Kind.String(),
			Record: info.Record,
			Value:  json.RawMessage(text),
		})
	}
	if canonical {
		fmt.Fprintln(cmd.OutOrStdout(), string(text))
		return nil
	}
	if err := renderYAML(cmd.OutOrStdout(), info.Node); err != nil {
		return f.fail(ExitFailure, ErrCodeGeneric, "failed to render value", err)
	}
	return nil
}

func runInspect(opts *DecodeOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)

	payload, err := readPayload(cmd, args, opts.Hex)
	if err != nil {
		return inputError(f, err)
	}
	info, err := envelope.Inspect(payload)
	if err != nil {
		return f.fail(ExitFailure, classify(err), "failed to inspect payload", err)
	}

	result := InspectResult{
		Compression: info.Compression.String(),
		WireBytes:   info.WireSize,
		TextBytes:   info.TextSize,
		Kind:        info.Kind.String(),
		Record:      info.Record,
	}
	if info.Marker != 0 {
		result.Marker = string(info.Marker)
	}

	if opts.Format == "json" {
		return f.Success(result)
	}

	out := cmd.OutOrStdout()
	if result.Marker == "" {
		fmt.Fprintln(out, "Empty payload (decodes to null)")
		return nil
	}
	fmt.Fprintf(out, "Marker:      %s\n", result.Marker)
	fmt.Fprintf(out, "Compression: %s\n", result.Compression)
	fmt.Fprintf(out, "Wire bytes:  %d\n", result.WireBytes)
	fmt.Fprintf(out, "Text bytes:  %d\n", result.TextBytes)
	fmt.Fprintf(out, "Kind:        %s\n", result.Kind)
	if result.Record != "" {
		fmt.Fprintf(out, "Record:      %s\n", result.Record)
	}
	return nil
}
