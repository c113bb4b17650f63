package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mrzgate/internal/scan/handler"
)

// fileReport is one entry of the scan command output.
type fileReport struct {
	File   string                   `json:"file"`
	Result *handler.ExtractResponse `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <image>...",
		Short: "Read the MRZ of one or more passport photos",
		Long: `Scan runs the full pipeline on each image offline and prints one JSON
report per file, in argument order.

Examples:
  mrzgate scan passport.jpg
  mrzgate scan -j 4 scans/*.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScan,
	}
	cmd.Flags().IntP("concurrency", "j", 2, "Number of concurrent scans")
	cmd.Flags().Bool("compact", false, "Print compact JSON")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.service(nil)
	if err != nil {
		return err
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	compact, _ := cmd.Flags().GetBool("compact")

	results := svc.ScanFiles(cmd.Context(), args, concurrency)

	reports := make([]fileReport, len(results))
	failed := 0
	for i, r := range results {
		reports[i].File = r.Path
		if r.Err != nil {
			reports[i].Error = r.Err.Error()
			failed++
			continue
		}
		reports[i].Result = handler.FromResult(r.Result)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(reports); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scans failed", failed, len(results))
	}
	return nil
}
