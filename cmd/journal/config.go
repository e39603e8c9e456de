package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configTemplate = `{{ "full-serialization" | bold }}: {{ .FullSerialization }}
{{ "call-timeout" | bold }}: {{ .CallTimeout | humanDuration }}`

func Config(config *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective journal configuration",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ParseTemplate(configTemplate).Execute(cmd.OutOrStdout(), configFrom(config))
		},
	}
	return cmd
}
