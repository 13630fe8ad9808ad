package device

// Transport is the connection kind of a device. It only drives icon choice.
type Transport string

const (
	TransportBuiltIn     Transport = "builtin"
	TransportUSB         Transport = "usb"
	TransportBluetooth   Transport = "bluetooth"
	TransportHDMI        Transport = "hdmi"
	TransportDisplayPort Transport = "displayport"
	TransportThunderbolt Transport = "thunderbolt"
	TransportFireWire    Transport = "firewire"
	TransportPCI         Transport = "pci"
	TransportAirPlay     Transport = "airplay"
	TransportAVB         Transport = "avb"
	TransportVirtual     Transport = "virtual"
	TransportAggregate   Transport = "aggregate"
	TransportContinuity  Transport = "continuity"
	TransportUnknown     Transport = "unknown"
)

// IconName maps a transport to the symbol name shown next to a device.
func IconName(dir Direction, transport Transport) string {
	generic := "mic.fill"
	if dir == Output {
		generic = "speaker.wave.2"
	}

	switch transport {
	case TransportBuiltIn:
		return "laptopcomputer"
	case TransportBluetooth:
		return "headphones"
	case TransportHDMI:
		return "tv"
	case TransportAirPlay:
		return "airplay.audio"
	case TransportAVB:
		return "network"
	case TransportVirtual:
		return "waveform"
	case TransportContinuity:
		return "iphone"
	default:
		return generic
	}
}
