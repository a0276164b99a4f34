package gearvr

import "github.com/robertof/go-gearvr-controller/device"

// GATT layout of the controller.
const (
	ServiceUUID              = "4f63756c-7573-2054-6872-65656d6f7465"
	NotifyCharacteristicUUID = "c8c51726-81bc-483b-a052-f7a14ea3d281"
	WriteCharacteristicUUID  = "c8c51726-81bc-483b-a052-f7a14ea3d282"

	NamePrefix = "Gear VR"
)

// Opcode is a two byte command written to the controller.
type Opcode [2]byte

var (
	OpcodePowerOff    = Opcode{0, 0}
	OpcodeSensorsMode = Opcode{1, 0}
	// Never sent by the connect/disconnect flow.
	OpcodeKeepAlive = Opcode{4, 0}
	OpcodeVRMode    = Opcode{8, 0}
)

func (o Opcode) Bytes() []byte {
	return []byte{o[0], o[1]}
}

func (o Opcode) String() string {
	switch o {
	case OpcodePowerOff:
		return "POWER_OFF"
	case OpcodeSensorsMode:
		return "SENSORS_MODE"
	case OpcodeKeepAlive:
		return "KEEP_ALIVE"
	case OpcodeVRMode:
		return "VR_MODE"
	default:
		return "UNKNOWN"
	}
}

// Telemetry packet layout.
const (
	PacketMinLength = 59

	offsetTouch   = 54
	offsetButtons = 58

	// Raw touch coordinates span 0..315.
	touchScale = 157.5
)

// buttonBits maps each bit of the button mask, starting from bit 0.
var buttonBits = [device.NumButtons]device.Button{
	device.ButtonTrigger,
	device.ButtonHome,
	device.ButtonBack,
	device.ButtonTouchpad,
	device.ButtonVolUp,
	device.ButtonVolDown,
}
