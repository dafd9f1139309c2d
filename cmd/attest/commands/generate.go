package commands

import (
	"fmt"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/teeverse/attestation/internal/collateral"
	"github.com/teeverse/attestation/pkg/attestation"
	"github.com/teeverse/attestation/pkg/generation"
)

var (
	generatePlatform   string
	generateReportType string
	generateNonce      string
	generateUserData   string
	generatePubkeyPath string
	generateOutPath    string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an attestation report on a TEE host",
	Long: `Generate obtains a quote from the platform kernel interface, binds the
given nonce or user data (and optionally a public key) into it, fetches
collateral for Passport reports, and prints the unified report JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		params := &attestation.GenerationParams{
			ReportType:     generateReportType,
			ReportHexNonce: generateNonce,
			ReportParams:   attestation.ReportParams{HexUserData: generateUserData},
		}
		if generatePubkeyPath != "" {
			pem, err := os.ReadFile(generatePubkeyPath)
			if err != nil {
				return errors.Wrap(err, "read public key")
			}
			params.ReportParams.PemPublicKey = string(pem)
		}

		var gen generation.Generator
		switch generatePlatform {
		case attestation.PlatformCsv:
			fetcher := collateral.NewHygonFetcher()
			fetcher.BaseURL = cfg.Collateral.HygonBaseURL
			fetcher.Client = &http.Client{Timeout: cfg.Collateral.Timeout}
			gen = generation.NewCsvGenerator(generation.NewCsvDevice(cfg.Devices.Csv), fetcher)
		case attestation.PlatformSgxDcap:
			gen = generation.NewSgxGenerator(generation.NewSgxDevice(cfg.Devices.Sgx), nil)
		case attestation.PlatformTdx:
			gen = generation.NewTdxGenerator(generation.NewTdxDevice(cfg.Devices.TdxTsm), nil)
		case attestation.PlatformHyperEnclave:
			gen = generation.NewHyperEnclaveGenerator(generation.NewSgxDevice(cfg.Devices.Sgx))
		default:
			return errors.Errorf("unknown platform %q, expected one of %s, %s, %s, %s",
				generatePlatform, attestation.PlatformCsv, attestation.PlatformSgxDcap,
				attestation.PlatformTdx, attestation.PlatformHyperEnclave)
		}

		report, err := gen.GenerateReport(params)
		if err != nil {
			return err
		}
		text, err := attestation.EncodeReport(report)
		if err != nil {
			return err
		}

		if generateOutPath != "" {
			return os.WriteFile(generateOutPath, []byte(text), 0o600)
		}
		fmt.Println(text)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	generateCmd.Flags().StringVar(&generatePlatform, "platform", "", "TEE platform tag (CSV, SGX_DCAP, TDX, HyperEnclave)")
	generateCmd.Flags().StringVar(&generateReportType, "type", attestation.ReportTypePassport, "report type (Passport or BackgroundCheck)")
	generateCmd.Flags().StringVar(&generateNonce, "nonce", "", "hex nonce to bind into the report data")
	generateCmd.Flags().StringVar(&generateUserData, "user-data", "", "hex user data to bind into the report data")
	generateCmd.Flags().StringVar(&generatePubkeyPath, "pubkey", "", "path to a PEM public key to bind")
	generateCmd.Flags().StringVar(&generateOutPath, "out", "", "write the report to a file instead of stdout")
	_ = generateCmd.MarkFlagRequired("platform")
}
