package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/robocof/robocof/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "robocof",
	Short: "Human confirmation gate for robot actions",
	Long: `robocof watches the person in front of a robot and decides whether a
pending action should be carried out. Gesture, identity and seat detectors
race against a deadline; the first conclusive observation wins and exactly
one decision is returned.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/robocof/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ROBOCOF")
	// Replace dots with underscores for nested keys in env vars
	// e.g., ROBOCOF_DECISION_DEFAULT_TIMEOUT_SECONDS for decision.default_timeout_seconds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
