package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"node.town/scribe/audio"
	"node.town/scribe/config"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices in a table",
	RunE:  runListDevices,
}

func runListDevices(cmd *cobra.Command, args []string) error {
	audioCtx, err := audio.NewContext()
	if err != nil {
		return err
	}
	defer audioCtx.Close()

	devices, err := audioCtx.Devices()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No capture devices found.")
		return nil
	}

	renderDevices(os.Stdout, devices, viper.GetString(config.KeyDevice))
	return nil
}

func renderDevices(w io.Writer, devices []audio.DeviceInfo, selected string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Name", "ID", "Selected"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for i, d := range devices {
		mark := ""
		if selected != "" && (d.Name == selected || d.ID == selected) {
			mark = "*"
		}
		table.Append([]string{strconv.Itoa(i + 1), d.Name, d.ID, mark})
	}

	table.Render()
}
