package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kvserde/internal/config"
	"github.com/roach88/kvserde/internal/envelope"
	"github.com/roach88/kvserde/internal/kv"
	"github.com/roach88/kvserde/internal/store"
)

// BucketOptions holds flags shared by the store commands.
type BucketOptions struct {
	*RootOptions
	Bucket    string
	Canonical bool
	Raw       bool
	Check     bool
}

// KeyResult is the JSON form of put, get and del results.
type KeyResult struct {
	Bucket    string          `json:"bucket,omitempty"`
	Key       string          `json:"key"`
	WireBytes int             `json:"wire_bytes,omitempty"`
	Kind      string          `json:"kind,omitempty"`
	Record    string          `json:"record,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	Payload   string          `json:"payload,omitempty"` // hex
}

func addBucketFlag(cmd *cobra.Command, opts *BucketOptions) {
	cmd.Flags().StringVarP(&opts.Bucket, "bucket", "b", "", "bucket name; keys are stored as <bucket>:<key>")
}

// open opens the configured store and returns a bucket over it.
func (o *BucketOptions) open() (*kv.Bucket, *store.Store, error) {
	path := config.DefaultDB
	if o.Config != nil {
		path = o.Config.DB
	}
	eng, err := o.engine()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return kv.NewBucket(o.Bucket, eng, st), st, nil
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BucketOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <key> [file]",
		Short: "Encode a document and store it under a key",
		Long: `Encode a YAML or JSON document and store the payload under a key.

The document is read as for encode.

Examples:
  kvserde put user:1 user.yaml
  echo '[1, 2, 3]' | kvserde put --bucket demo numbers`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, cmd, args[0], args[1:])
		},
	}
	addBucketFlag(cmd, opts)

	return cmd
}

func runPut(opts *BucketOptions, cmd *cobra.Command, key string, args []string) error {
	ctx := context.Background()
	f := opts.formatter(cmd)

	data, err := readInput(cmd, args)
	if err != nil {
		return inputError(f, err)
	}
	doc, err := parseDocument(data)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeInput, "failed to parse document", err)
	}

	bucket, st, err := opts.open()
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to open bucket", err)
	}
	defer st.Close()

	if err := bucket.Put(ctx, key, doc); err != nil {
		return f.fail(ExitFailure, classify(err), "failed to store value", err)
	}
	payload, _, err := bucket.Raw(ctx, key)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeStore, "failed to read back value", err)
	}
	f.VerboseLog("Stored %d bytes under %q", len(payload), key)

	if opts.Format == "json" {
		return f.Success(KeyResult{Bucket: opts.Bucket, Key: key, WireBytes: len(payload)})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (%d bytes)\n", key, len(payload))
	return nil
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BucketOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under a key",
		Long: `Print the value stored under a key, as YAML by default.

With --check the value is also rebuilt through the type registry, which
fails on record types this binary does not know.

Examples:
  kvserde get user:1
  kvserde get --bucket demo numbers --canonical
  kvserde get --bucket demo numbers --raw`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, cmd, args[0])
		},
	}
	addBucketFlag(cmd, opts)
	cmd.Flags().BoolVar(&opts.Canonical, "canonical", false, "print canonical text instead of YAML")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "print the stored payload as hex")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "rebuild the value through the type registry")

	return cmd
}

func runGet(opts *BucketOptions, cmd *cobra.Command, key string) error {
	ctx := context.Background()
	f := opts.formatter(cmd)

	bucket, st, err := opts.open()
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to open bucket", err)
	}
	defer st.Close()

	if opts.Check {
		if _, ok, err := bucket.GetErr(ctx, key); err != nil {
			return f.fail(ExitFailure, classify(err), "stored value does not decode", err)
		} else if !ok {
			return f.fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("key %q not found", key), nil)
		}
	}

	payload, ok, err := bucket.Raw(ctx, key)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeStore, "failed to read value", err)
	}
	if !ok {
		return f.fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("key %q not found", key), nil)
	}

	if opts.Raw {
		if opts.Format == "json" {
			return f.Success(KeyResult{Bucket: opts.Bucket, Key: key, WireBytes: len(payload), Payload: hex.EncodeToString(payload)})
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(payload))
		return nil
	}

	info, err := envelope.Inspect(payload)
	if err != nil {
		return f.fail(ExitFailure, classify(err), "failed to decode stored value", err)
	}
	return printValue(opts.RootOptions, cmd, info, opts.Canonical)
}

// NewDelCommand creates the del command.
func NewDelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BucketOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key",
		Long: `Delete a key. Deleting a missing key is not an error.

Example:
  kvserde del --bucket demo numbers`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDel(opts, cmd, args[0])
		},
	}
	addBucketFlag(cmd, opts)

	return cmd
}

func runDel(opts *BucketOptions, cmd *cobra.Command, key string) error {
	f := opts.formatter(cmd)

	bucket, st, err := opts.open()
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to open bucket", err)
	}
	defer st.Close()

	if err := bucket.Delete(context.Background(), key); err != nil {
		return f.fail(ExitFailure, ErrCodeStore, "failed to delete key", err)
	}

	if opts.Format == "json" {
		return f.Success(KeyResult{Bucket: opts.Bucket, Key: key})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", key)
	return nil
}

// NewKeysCommand creates the keys command.
func NewKeysCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BucketOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the keys of a bucket",
		Long: `List the keys of a bucket in binary order. Without --bucket every key in
the database is listed.

Example:
  kvserde keys --bucket demo`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(opts, cmd)
		},
	}
	addBucketFlag(cmd, opts)

	return cmd
}

func runKeys(opts *BucketOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	bucket, st, err := opts.open()
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to open bucket", err)
	}
	defer st.Close()

	keys, err := bucket.Keys(context.Background())
	if err != nil {
		return f.fail(ExitFailure, ErrCodeStore, "failed to list keys", err)
	}

	if opts.Format == "json" {
		if keys == nil {
			keys = []string{}
		}
		return f.Success(keys)
	}
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}
