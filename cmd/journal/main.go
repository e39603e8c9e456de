package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vx-labs/journal/journal"
)

func configFrom(config *viper.Viper) journal.Config {
	out := journal.DefaultConfig()
	out.FullSerialization = config.GetBool("full-serialization")
	if timeout := config.GetDuration("call-timeout"); timeout > 0 {
		out.CallTimeout = timeout
	}
	return out
}

func main() {
	config := viper.New()
	config.SetEnvPrefix("JOURNAL")
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	config.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use: "journal",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			config.BindPFlags(cmd.Flags())
			config.BindPFlags(cmd.PersistentFlags())
		},
	}
	rootCmd.PersistentFlags().Bool("debug", false, "Use a fancy logger and increase logging level.")
	rootCmd.PersistentFlags().Bool("full-serialization", false, "Marshal every payload when validating batches, instead of only checking a serializer is bound.")
	rootCmd.PersistentFlags().Duration("call-timeout", journal.DefaultCallTimeout, "Bound each journal call to this duration.")

	rootCmd.AddCommand(Bench(config))
	rootCmd.AddCommand(Config(config))
	rootCmd.Execute()
}
