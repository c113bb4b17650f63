package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mrzgate/internal/bac"
)

// NewKeysCmd creates the keys command.
func NewKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Derive BAC keys from document number, birth and expiry dates",
		Long: `Keys derives Kenc and Kmac from the three MRZ fields Basic Access
Control uses. Dates are YYMMDD; check digits are computed.

Example:
  mrzgate keys --document L898902C --birth 690806 --expiry 940623`,
		Args: cobra.NoArgs,
		RunE: runKeys,
	}
	cmd.Flags().String("document", "", "Document number")
	cmd.Flags().String("birth", "", "Date of birth (YYMMDD)")
	cmd.Flags().String("expiry", "", "Date of expiry (YYMMDD)")
	cmd.Flags().Bool("json", false, "Print JSON")
	for _, f := range []string{"document", "birth", "expiry"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func runKeys(cmd *cobra.Command, _ []string) error {
	doc, _ := cmd.Flags().GetString("document")
	birth, _ := cmd.Flags().GetString("birth")
	expiry, _ := cmd.Flags().GetString("expiry")
	asJSON, _ := cmd.Flags().GetBool("json")

	keys, err := bac.Derive(doc, birth, expiry)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{
			"information": bac.Information(doc, birth, expiry),
			"kenc":        keys.EncHex(),
			"kmac":        keys.MacHex(),
		})
	}
	fmt.Fprintf(out, "Kenc: %s\n", keys.EncHex())
	fmt.Fprintf(out, "Kmac: %s\n", keys.MacHex())
	return nil
}
