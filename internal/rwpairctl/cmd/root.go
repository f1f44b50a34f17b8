// Package cmd implements the RestWell pairing CLI commands
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/restwell/restwell-pairing/internal/rwpairctl/cmd/device"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/cmd/pair"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/config"
)

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rwpairctl",
	Short: "RestWell device pairing tool",
	Long: `rwpairctl is a command line tool for pairing devices to RestWell
accounts. It issues pairing tokens, waits for the companion device to
scan them, and manages the resulting device registry.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rwpairctl/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "API server address")
	rootCmd.PersistentFlags().String("token", "", "Authentication token")
	rootCmd.PersistentFlags().String("user", "", "Account identifier")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output")

	// Add commands
	rootCmd.AddCommand(pair.NewCommand(getConfig))
	rootCmd.AddCommand(device.NewCommand(getConfig))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	// Allow command line flags to override config file
	if server, _ := rootCmd.PersistentFlags().GetString("server"); server != "" {
		cfg.Server = server
	}
	if token, _ := rootCmd.PersistentFlags().GetString("token"); token != "" {
		cfg.Token = token
	}
	if user, _ := rootCmd.PersistentFlags().GetString("user"); user != "" {
		cfg.UserID = user
	}
}

// getConfig hands the loaded configuration to subcommand packages
func getConfig() *config.Config {
	if cfg == nil {
		return &config.Config{}
	}
	return cfg
}
