package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuevox/cue-core/core/directives"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schemas of the embedded directive payloads",
	Long: `Prints the schemas of the [INPUT:] and [APPROVAL:] payload objects and of
the structured input_response payload, keyed by introducer, for server
implementers to generate against.`,
	RunE: func(*cobra.Command, []string) error {
		encoded, err := json.MarshalIndent(directives.PayloadSchemas(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schemas: %w", err)
		}

		fmt.Fprintln(os.Stdout, string(encoded))
		return nil
	},
}
