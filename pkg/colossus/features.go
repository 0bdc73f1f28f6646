package colossus

// FFTProtocol selects the transport the radar streams video on.
type FFTProtocol uint8

const (
	FFTProtocolUndefined FFTProtocol = 0
	FFTProtocolColossus  FFTProtocol = 1
	FFTProtocolCAT240    FFTProtocol = 2
	FFTProtocolReserved  FFTProtocol = 3
)

// PointDataOutput selects the radar's on-board point extraction.
type PointDataOutput uint8

const (
	PointDataNone     PointDataOutput = 0
	PointDataCACFAR   PointDataOutput = 1
	PointDataNavMode  PointDataOutput = 2
	PointDataReserved PointDataOutput = 3
)

// ModbusMode reports the radar's Modbus role.
type ModbusMode uint8

const (
	ModbusDisabled ModbusMode = 0
	ModbusMaster   ModbusMode = 1
	ModbusSlave    ModbusMode = 2
	ModbusRelay    ModbusMode = 3
)

// Features is the radar capability bitmap carried in the
// configuration message. Field order and widths are wire-exact, low
// bit to high: auto_tune(1), secondary_processing_module(1),
// non_contour_data(1), contour_map_defined(1), sector_blanking(1),
// fft_protocol(2), low_precision_output(1), high_precision_output(1),
// point_data_output(2), modbus_mode(2), motor_enabled(1),
// safeguard_enabled(1), reserved(17).
type Features struct {
	AutoTune                  bool
	SecondaryProcessingModule bool
	NonContourData            bool
	ContourMapDefined         bool
	SectorBlanking            bool
	FFTProtocol               FFTProtocol
	LowPrecisionOutput        bool
	HighPrecisionOutput       bool
	PointDataOutput           PointDataOutput
	ModbusMode                ModbusMode
	MotorEnabled              bool
	SafeguardEnabled          bool
}

// FeaturesFromWord unpacks the 32-bit wire representation.
func FeaturesFromWord(w uint32) Features {
	bit := func(shift uint) bool { return w>>shift&1 == 1 }
	return Features{
		AutoTune:                  bit(0),
		SecondaryProcessingModule: bit(1),
		NonContourData:            bit(2),
		ContourMapDefined:         bit(3),
		SectorBlanking:            bit(4),
		FFTProtocol:               FFTProtocol(w >> 5 & 0x3),
		LowPrecisionOutput:        bit(7),
		HighPrecisionOutput:       bit(8),
		PointDataOutput:           PointDataOutput(w >> 9 & 0x3),
		ModbusMode:                ModbusMode(w >> 11 & 0x3),
		MotorEnabled:              bit(13),
		SafeguardEnabled:          bit(14),
	}
}

// Word packs the bitmap back into its 32-bit wire representation.
func (f Features) Word() uint32 {
	var w uint32
	set := func(shift uint, on bool) {
		if on {
			w |= 1 << shift
		}
	}
	set(0, f.AutoTune)
	set(1, f.SecondaryProcessingModule)
	set(2, f.NonContourData)
	set(3, f.ContourMapDefined)
	set(4, f.SectorBlanking)
	w |= uint32(f.FFTProtocol&0x3) << 5
	set(7, f.LowPrecisionOutput)
	set(8, f.HighPrecisionOutput)
	w |= uint32(f.PointDataOutput&0x3) << 9
	w |= uint32(f.ModbusMode&0x3) << 11
	set(13, f.MotorEnabled)
	set(14, f.SafeguardEnabled)
	return w
}
