package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imqcam/girder-upload/internal/checksum"
)

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "hash <file>...",
		Short:       "Print the SHA-256 checksum of local files",
		Long:        `Print checksums in the same format as sha256sum. These are the values stored in an item's "checksum" metadata key.`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Args:        cobra.MinimumNArgs(1),
		RunE:        runHash,
	}
}

func runHash(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	for _, p := range args {
		digest, _, err := checksum.HashFile(p, checksum.DefaultChunkSize)
		if err != nil {
			return fmt.Errorf("hashing %s: %w", p, err)
		}

		fmt.Fprintf(cc.Stdout, "%s  %s\n", digest, p)
	}

	return nil
}
