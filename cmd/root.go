/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	dwire "github.com/allbin/go-dwire"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dwire",
	Short: "Find and connect to debugWIRE devices",
	Long: `dwire locates AVR microcontrollers in debugWIRE mode behind USB serial
adapters and works out the baud rate they talk at.

A debugWIRE target answers a break on the line with 0x55 at its CPU clock
divided by 128. dwire sends breaks at trial rates, estimates the clock from
whatever comes back and narrows in on a rate that reproduces 0x55.

Settings can be given as flags, as DWIRE_* environment variables or in
$HOME/.dwire.yaml.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dwire.yaml)")
	rootCmd.PersistentFlags().String("backend", string(dwire.BackendNative), "Serial backend: native, portable")
	rootCmd.PersistentFlags().String("enumerator", "", "Adapter discovery: dir, system (default: dir on Linux)")
	rootCmd.PersistentFlags().Duration("read-timeout", 200*time.Millisecond, "Per-byte read timeout, a multiple of 100ms")
	rootCmd.PersistentFlags().Int("start-rate", 40000, "Baud rate of the first trial")
	rootCmd.PersistentFlags().Int("max-trials", 0, "Give up a port after this many trials (0: no limit)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every trial")

	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("enumerator", rootCmd.PersistentFlags().Lookup("enumerator"))
	viper.BindPFlag("read-timeout", rootCmd.PersistentFlags().Lookup("read-timeout"))
	viper.BindPFlag("start-rate", rootCmd.PersistentFlags().Lookup("start-rate"))
	viper.BindPFlag("max-trials", rootCmd.PersistentFlags().Lookup("max-trials"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".dwire" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dwire")
	}

	viper.SetEnvPrefix("DWIRE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		logger := newLogger(os.Stderr)
		logger.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	}
}

// newLogger returns the console logger shared by all commands
func newLogger(w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}).
		Level(level).
		With().Timestamp().Logger()
}

// searchOptions builds the options shared by every command that searches
func searchOptions(logger zerolog.Logger) []dwire.Option {
	opts := []dwire.Option{
		dwire.WithReadTimeout(viper.GetDuration("read-timeout")),
		dwire.WithLogger(logger),
	}
	if rate := viper.GetInt("start-rate"); rate > 0 {
		opts = append(opts, dwire.WithStartRate(rate))
	}
	if n := viper.GetInt("max-trials"); n > 0 {
		opts = append(opts, dwire.WithMaxTrials(n))
	}
	return opts
}

// newTransport opens ports through the configured backend
func newTransport() (dwire.Transport, error) {
	transport, err := dwire.NewTransport(
		dwire.Backend(viper.GetString("backend")),
		dwire.WithReadTimeout(viper.GetDuration("read-timeout")),
	)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	return transport, nil
}

// newEnumerator returns the configured adapter discovery
func newEnumerator() (dwire.Enumerator, error) {
	return dwire.NewEnumerator(dwire.EnumeratorKind(viper.GetString("enumerator")))
}
