package reconstruct

// Mode is the state of the reconstruction machine. It decides which frame
// kinds are legal next once the mode-independent kinds have been handled.
type Mode int

const (
	DeviceIdle Mode = iota
	WaitRegisterAck
	WaitDmaDataFromDevice
	WaitDmaDataFromHost
	WaitNonNcqData
)

var modeNames = [...]string{
	DeviceIdle:            "DeviceIdle",
	WaitRegisterAck:       "WaitRegisterAck",
	WaitDmaDataFromDevice: "WaitDmaDataFromDevice",
	WaitDmaDataFromHost:   "WaitDmaDataFromHost",
	WaitNonNcqData:        "WaitNonNcqData",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "Unknown"
}

// expecting describes the frames the mode accepts, for anomaly logs.
func (m Mode) expecting() string {
	switch m {
	case DeviceIdle:
		return "REG_H2D or DMA_SETUP"
	case WaitRegisterAck:
		return "REG_D2H"
	case WaitDmaDataFromDevice:
		return "D2H DATA"
	case WaitDmaDataFromHost:
		return "H2D DATA"
	case WaitNonNcqData:
		return "DATA"
	}
	return "nothing"
}
