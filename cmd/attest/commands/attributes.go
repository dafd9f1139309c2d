package commands

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/teeverse/attestation/pkg/attestation"
	"github.com/teeverse/attestation/pkg/verification"
)

var attributesReportPath string

var attributesCmd = &cobra.Command{
	Use:   "attributes",
	Short: "Extract the canonical attributes from a report",
	Long: `Attributes decodes a unified attestation report and prints its
canonical attribute record without verifying the platform chain or
matching a policy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := os.ReadFile(attributesReportPath)
		if err != nil {
			return errors.Wrap(err, "read report")
		}

		attrs, status := verification.ParseAttributes(string(report))
		if !status.OK() {
			fmt.Println(status.String())
			return errors.New(status.Message)
		}
		text, err := attestation.EncodeAttributes(attrs)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	attributesCmd.Flags().StringVar(&attributesReportPath, "report", "", "path to the report JSON file")
	_ = attributesCmd.MarkFlagRequired("report")
}
