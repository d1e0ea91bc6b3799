// Package plugins registers all built-in plugins.
package plugins

import (
	"firestige.xyz/hpsdrdump/internal/source/afpacket"
	"firestige.xyz/hpsdrdump/internal/source/file"
	"firestige.xyz/hpsdrdump/pkg/plugin"
	"firestige.xyz/hpsdrdump/plugins/parser/openhpsdr"
	"firestige.xyz/hpsdrdump/plugins/processor/subproto"
	"firestige.xyz/hpsdrdump/plugins/reporter/console"
	"firestige.xyz/hpsdrdump/plugins/reporter/kafka"
)

func init() {
	// Capture plugins
	plugin.RegisterCapturer(file.Name, file.New)
	plugin.RegisterCapturer(afpacket.Name, afpacket.New)

	// Parser plugins
	plugin.RegisterParser(openhpsdr.Name, openhpsdr.New)

	// Processor plugins
	plugin.RegisterProcessor(subproto.Name, subproto.New)

	// Reporter plugins
	plugin.RegisterReporter(console.Name, console.NewConsoleReporter)
	plugin.RegisterReporter(kafka.Name, kafka.NewKafkaReporter)
}
