package pulseaudio

import (
	"strings"

	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/rbright/audioanchor/internal/device"
)

// node is one sink or source from the latest server snapshot.
type node struct {
	direction device.Direction
	name      string
	props     device.Properties
	eligible  bool
}

func sinkHandle(index uint32) device.Handle {
	return device.Handle(index) | sinkBit
}

func sourceHandle(index uint32) device.Handle {
	return device.Handle(index) &^ sinkBit
}

func buildNodes(sinks []*pulseproto.GetSinkInfoReply, sources []*pulseproto.GetSourceInfoReply) map[device.Handle]node {
	nodes := make(map[device.Handle]node, len(sinks)+len(sources))
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		nodes[sinkHandle(sink.SinkIndex)] = node{
			direction: device.Output,
			name:      sink.SinkName,
			props:     properties(sink.SinkName, sink.Device, sink.ActivePortName, sink.Properties),
			eligible:  sinkAvailable(sink),
		}
	}
	for _, source := range sources {
		if source == nil {
			continue
		}
		nodes[sourceHandle(source.SourceIndex)] = node{
			direction: device.Input,
			name:      source.SourceName,
			props:     properties(source.SourceName, source.Device, source.ActivePortName, source.Properties),
			eligible:  !isMonitor(source) && sourceAvailable(source),
		}
	}
	return nodes
}

// properties maps pulse metadata onto device properties. The sink or source
// name is the persistent identity: it is derived from the card and profile and
// survives reconnects.
func properties(name, description, activePort string, props pulseproto.PropList) device.Properties {
	display := strings.TrimSpace(description)
	if display == "" {
		display = propString(props, "device.description")
	}
	return device.Properties{
		UID:          name,
		Name:         display,
		Manufacturer: propString(props, "device.vendor.name"),
		Transport:    transportOf(name, activePort, props),
	}
}

func transportOf(name, activePort string, props pulseproto.PropList) device.Transport {
	lowerPort := strings.ToLower(activePort)
	lowerName := strings.ToLower(name)
	switch {
	case strings.Contains(lowerPort, "hdmi") || strings.Contains(lowerName, "hdmi"):
		return device.TransportHDMI
	case strings.Contains(lowerPort, "displayport"):
		return device.TransportDisplayPort
	case propString(props, "raop.ip") != "":
		return device.TransportAirPlay
	}

	switch strings.ToLower(propString(props, "device.bus")) {
	case "usb":
		return device.TransportUSB
	case "bluetooth":
		return device.TransportBluetooth
	case "firewire":
		return device.TransportFireWire
	case "thunderbolt":
		return device.TransportThunderbolt
	case "pci", "isa":
		return device.TransportBuiltIn
	}

	switch strings.ToLower(propString(props, "device.class")) {
	case "filter", "abstract", "monitor":
		return device.TransportVirtual
	}
	if strings.HasPrefix(lowerName, "combined") {
		return device.TransportAggregate
	}
	return device.TransportUnknown
}

func isMonitor(source *pulseproto.GetSourceInfoReply) bool {
	if source.MonitorSourceName != "" {
		return true
	}
	return propString(source.Properties, "device.class") == "monitor"
}

// PulseAudio port availability values: unknown=0, no=1, yes=2.
const portUnavailable = 1

func sinkAvailable(sink *pulseproto.GetSinkInfoReply) bool {
	if sink == nil {
		return false
	}
	for _, port := range sink.Ports {
		if port.Name == sink.ActivePortName {
			return port.Available != portUnavailable
		}
	}
	return true
}

func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available != portUnavailable
		}
	}
	return true
}

// propString reads a proplist entry. Pulse stores strings NUL-terminated.
func propString(props pulseproto.PropList, key string) string {
	value, ok := props[key]
	if !ok {
		return ""
	}
	return strings.TrimRight(string(value), "\x00")
}
