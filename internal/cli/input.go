package cli

import (
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kvserde/internal/codec"
	"github.com/roach88/kvserde/internal/envelope"
	"github.com/roach88/kvserde/internal/registry"
	"github.com/roach88/kvserde/internal/schema"
)

// readInput returns the contents of the file named by args[0], or stdin
// when args is empty or names "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

// readPayload reads a payload, decoding it from hex text when isHex is set.
func readPayload(cmd *cobra.Command, args []string, isHex bool) ([]byte, error) {
	data, err := readInput(cmd, args)
	if err != nil {
		return nil, err
	}
	if !isHex {
		return data, nil
	}
	return hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
}

// inputError maps a failure to read input to an ExitError.
func inputError(f *OutputFormatter, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return f.fail(ExitCommandError, ErrCodeNotFound, "input file not found", err)
	}
	return f.fail(ExitCommandError, ErrCodeInput, "failed to read input", err)
}

// classify returns the error code for an engine failure.
func classify(err error) string {
	switch {
	case registry.IsUnknownType(err):
		return ErrCodeUnknownType
	case schema.IsValidationError(err):
		return ErrCodeValidation
	case envelope.IsMalformedPayload(err):
		return ErrCodeMalformed
	case codec.IsUnsupportedType(err), codec.IsCyclicValue(err):
		return ErrCodeEncode
	default:
		return ErrCodeGeneric
	}
}
