package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"node.town/scribe/audio"
	"node.town/scribe/setup"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write config.yaml interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		var devices []audio.DeviceInfo
		audioCtx, err := audio.NewContext()
		if err != nil {
			logger.Warn("no audio backend, skipping device selection", "error", err)
		} else {
			defer audioCtx.Close()
			devices, err = audioCtx.Devices()
			if err != nil {
				logger.Warn("list devices", "error", err)
			}
		}

		path := viper.ConfigFileUsed()
		if path == "" {
			path = "config.yaml"
		}
		return setup.RunSetup(viper.GetViper(), devices, path)
	},
}
