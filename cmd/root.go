package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "opsgate",
	Short: "Policy-enforced gateway for cloud CLI commands and remediation playbooks",
	Long: `Opsgate mediates every aws, gcloud, and az command through a security
policy engine before it reaches the provider CLI. It understands a set of
natural language phrases, injects account context automatically, and runs
remediation playbooks with approval gates, dry-run, and rollback.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.opsgate.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output (shows progress + internal diagnostics)")
	rootCmd.PersistentFlags().String("mode", "", "security mode: strict or permissive (or set SECURITY_MODE)")
	rootCmd.PersistentFlags().String("audit-db", "", "path to the audit database (or set OPSGATE_AUDIT_DB)")

	// TODO: add error return here
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("security.mode", rootCmd.PersistentFlags().Lookup("mode"))
	viper.BindPFlag("audit.db", rootCmd.PersistentFlags().Lookup("audit-db"))

	viper.SetDefault("audit.db", "")
	viper.BindEnv("audit.db", "OPSGATE_AUDIT_DB")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".opsgate")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("debug") {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}
