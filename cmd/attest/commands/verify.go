package commands

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/teeverse/attestation/pkg/verification"
)

var (
	verifyReportPath string
	verifyPolicyPath string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an attestation report against a policy",
	Long: `Verify reads a unified attestation report and a policy, both as JSON
files, runs the platform verification chain and the policy match, and
prints the resulting status. The exit code is non-zero on any failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		report, err := os.ReadFile(verifyReportPath)
		if err != nil {
			return errors.Wrap(err, "read report")
		}
		policy, err := os.ReadFile(verifyPolicyPath)
		if err != nil {
			return errors.Wrap(err, "read policy")
		}

		status := verification.Verify(string(report), string(policy))
		fmt.Println(status.String())
		if !status.OK() {
			return errors.New(status.Message)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyReportPath, "report", "", "path to the report JSON file")
	verifyCmd.Flags().StringVar(&verifyPolicyPath, "policy", "", "path to the policy JSON file")
	_ = verifyCmd.MarkFlagRequired("report")
	_ = verifyCmd.MarkFlagRequired("policy")
}
