package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	"node.town/scribe/audio"
)

func TestRenderDevicesMarksSelection(t *testing.T) {
	var buf bytes.Buffer
	renderDevices(&buf, []audio.DeviceInfo{
		{ID: "0a0b", Name: "Built-in Microphone"},
		{ID: "0c0d", Name: "USB Mic"},
	}, "USB Mic")

	out := buf.String()
	assert.Contains(t, out, "Built-in Microphone")
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "USB Mic") {
			assert.Contains(t, line, "*")
		}
		if strings.Contains(line, "Built-in") {
			assert.NotContains(t, line, "*")
		}
	}
}

func TestCreateLoggersPrefixes(t *testing.T) {
	var buf bytes.Buffer
	mainLogger, connLogger, _, _, _ := createLoggers(log.New(&buf))

	mainLogger.Info("hello")
	connLogger.Info("dial")

	out := buf.String()
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "conn")
	assert.Contains(t, out, "dial")
}
