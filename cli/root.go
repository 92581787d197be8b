package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tuanle2204/BookSwap-Group07/cli/config"
)

var rootCmd = &cobra.Command{
	Use:     "bookswap",
	Short:   "BookSwap command line client",
	Long:    `Command line client for the BookSwap book exchange marketplace.`,
	Version: "1.0.0",
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  `Create the ~/.bookswap directory with a default config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			printError(fmt.Sprintf("Initialization failed: %v", err))
			return err
		}

		configPath, _ := config.GetConfigPath()
		printSuccess("Configuration initialized!")
		fmt.Printf("Config file: %s\n", configPath)
		fmt.Println("\nNext steps:")
		fmt.Println("  bookswap auth register --username you --email you@example.com")
		fmt.Println("  bookswap auth login --username you")
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printSuccess(msg string) {
	fmt.Printf("✓ %s\n", msg)
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "✗ %s\n", msg)
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(rankingCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(systemCmd)
}
