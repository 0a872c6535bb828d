package cli

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/kvserde/internal/envelope"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Output string
}

// EncodeResult describes an encoded payload.
type EncodeResult struct {
	Payload     string `json:"payload,omitempty"` // hex
	Output      string `json:"output,omitempty"`
	Marker      string `json:"marker"`
	Compression string `json:"compression"`
	TextBytes   int    `json:"text_bytes"`
	WireBytes   int    `json:"wire_bytes"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode a YAML or JSON document into a payload",
		Long: `Encode a YAML or JSON document into a payload.

The document is read from the file argument, or stdin when it is omitted
or "-". Besides the standard YAML types, the local tags !tuple, !set,
!uuid and !duration select the matching value kinds, and !!binary,
!!timestamp and !!set map to bytes, timestamps and sets.

Without --out the payload is printed as hex.

Examples:
  kvserde encode doc.yaml
  echo '{a: !tuple [1, 2], b: !!set {2, 3}}' | kvserde encode
  kvserde encode doc.yaml --out doc.bin --compression zstd`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, cmd, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "write the raw payload to this file")

	return cmd
}

func runEncode(opts *EncodeOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)

	data, err := readInput(cmd, args)
	if err != nil {
		return inputError(f, err)
	}
	doc, err := parseDocument(data)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeInput, "failed to parse document", err)
	}

	eng, err := opts.engine()
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeGeneric, "invalid configuration", err)
	}
	payload, err := eng.Encode(doc)
	if err != nil {
		return f.fail(ExitFailure, classify(err), "failed to encode document", err)
	}
	info, err := envelope.Inspect(payload)
	if err != nil {
		return f.fail(ExitFailure, classify(err), "failed to inspect payload", err)
	}
	f.VerboseLog("Encoded %d text bytes into %d wire bytes (%s)",
		info.TextSize, info.WireSize, info.Compression)

	result := EncodeResult{
		Marker:      string(info.Marker),
		Compression: info.Compression.String(),
		TextBytes:   info.TextSize,
		WireBytes:   info.WireSize,
	}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, payload, 0o644); err != nil {
			return f.fail(ExitCommandError, ErrCodeGeneric, "failed to write payload", err)
		}
		result.Output = opts.Output
	} else {
		result.Payload = hex.EncodeToString(payload)
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	if opts.Output != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", result.WireBytes, opts.Output)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Payload)
	return nil
}
