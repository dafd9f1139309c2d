// Package commands implements the attest CLI.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teeverse/attestation/internal/common/config"
	"github.com/teeverse/attestation/internal/common/logger"
)

var rootCmd = &cobra.Command{
	Use:   "attest",
	Short: "Unified attestation CLI",
	Long:  `Generate and verify TEE attestation reports (SGX-DCAP, TDX, Hygon CSV).`,
}

var cfgFile string

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is attestation.yaml when present)")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(attributesCmd)
	rootCmd.AddCommand(generateCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		_ = viper.ReadInConfig()
	}
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("attestation.yaml"); err == nil {
			path = "attestation.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
