package admin

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// IndexCmd returns the index command group.
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect index artifacts",
	}

	cmd.AddCommand(indexInspectCmd())

	return cmd
}

func indexInspectCmd() *cobra.Command {
	var metadataPath string

	cmd := &cobra.Command{
		Use:   "inspect <index-file>",
		Short: "Print header and chunk info for an index artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexInspect(cmd, args[0], metadataPath)
		},
	}

	cmd.Flags().StringVarP(&metadataPath, "metadata", "m", "", "Chunk metadata file to cross-check against the vector count")

	return cmd
}

// indexHeader mirrors the on-disk artifact layout: magic, dimension and
// vector count as little-endian uint64.
type indexHeader struct {
	Magic [8]byte
	Dim   uint64
	Count uint64
}

func runIndexInspect(cmd *cobra.Command, indexPath, metadataPath string) error {
	f, err := os.Open(indexPath)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	var header indexHeader
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read index header: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat index file: %w", err)
	}

	expectedSize := int64(24) + int64(header.Count)*int64(header.Dim)*4

	fmt.Fprintf(cmd.OutOrStdout(), "Magic:      %s\n", header.Magic)
	fmt.Fprintf(cmd.OutOrStdout(), "Dimension:  %d\n", header.Dim)
	fmt.Fprintf(cmd.OutOrStdout(), "Vectors:    %d\n", header.Count)
	fmt.Fprintf(cmd.OutOrStdout(), "File size:  %d bytes (expected %d)\n", stat.Size(), expectedSize)
	if stat.Size() != expectedSize {
		fmt.Fprintln(cmd.OutOrStdout(), "WARNING: file size does not match header")
	}

	if metadataPath == "" {
		return nil
	}

	metaBytes, err := os.ReadFile(metadataPath)
	if err != nil {
		return fmt.Errorf("failed to read metadata file: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(metaBytes, &entries); err != nil {
		return fmt.Errorf("failed to parse metadata file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Chunks:     %d\n", len(entries))
	if uint64(len(entries)) != header.Count {
		fmt.Fprintln(cmd.OutOrStdout(), "WARNING: chunk count does not match vector count")
	}

	return nil
}
