package colossus

import (
	"fmt"

	"radarlink/pkg/connection"
	"radarlink/pkg/units"
	"radarlink/pkg/wire"
)

// UDPMessage is one Colossus UDP message. Every datagram carries
// exactly one message with the same 22-byte header as the TCP stream.
type UDPMessage struct {
	msgType UDPType
	conn    connection.ID
	data    []byte
}

// NewUDPMessage builds an outgoing UDP message around a payload.
func NewUDPMessage(t UDPType, payload []byte) *UDPMessage {
	w := wire.NewWriter(HeaderSize + len(payload))
	w.Bytes(Signature)
	w.U8(ProtocolVersion)
	w.U8(uint8(t))
	w.U32(uint32(len(payload)))
	w.Bytes(payload)
	return &UDPMessage{msgType: t, data: w.Finish()}
}

// UDPFromFrame adopts a framed datagram.
func UDPFromFrame(conn connection.ID, frame connection.Frame) *UDPMessage {
	return &UDPMessage{
		msgType: UDPType(frame.Type),
		conn:    conn,
		data:    frame.Data,
	}
}

func (m *UDPMessage) Type() UDPType       { return m.msgType }
func (m *UDPMessage) Conn() connection.ID { return m.conn }
func (m *UDPMessage) Size() int           { return len(m.data) }
func (m *UDPMessage) Bytes() []byte       { return m.data }

// Payload returns the bytes after the header.
func (m *UDPMessage) Payload() []byte {
	if len(m.data) < HeaderSize {
		return nil
	}
	return m.data[HeaderSize:]
}

// IMU is the radar's inertial measurement sample: accelerations in
// milli-g, angular velocities in 0.1 °/s, attitude angles in 0.1 °.
type IMU struct {
	XAcc       int16
	YAcc       int16
	ZAcc       int16
	RollVel    int16
	PitchVel   int16
	YawVel     int16
	PhiAngle   int16
	ThetaAngle int16
	PsiAngle   int16
}

const imuPayloadSize = 18

// Encode packs the sample as an imu message.
func (i IMU) Encode() *UDPMessage {
	w := wire.NewWriter(imuPayloadSize)
	for _, v := range [...]int16{
		i.XAcc, i.YAcc, i.ZAcc,
		i.RollVel, i.PitchVel, i.YawVel,
		i.PhiAngle, i.ThetaAngle, i.PsiAngle,
	} {
		w.I16(v)
	}
	return NewUDPMessage(UDPTypeIMU, w.Finish())
}

// DecodeIMU reads an IMU view from a UDP message.
func DecodeIMU(m *UDPMessage) (IMU, error) {
	if m.Type() != UDPTypeIMU {
		return IMU{}, fmt.Errorf("colossus: %s is not an imu message", m.Type())
	}
	r := wire.NewReader(m.Payload())
	i := IMU{
		XAcc:       r.I16(),
		YAcc:       r.I16(),
		ZAcc:       r.I16(),
		RollVel:    r.I16(),
		PitchVel:   r.I16(),
		YawVel:     r.I16(),
		PhiAngle:   r.I16(),
		ThetaAngle: r.I16(),
		PsiAngle:   r.I16(),
	}
	if err := r.Err(); err != nil {
		return IMU{}, fmt.Errorf("colossus: decode imu: %w", err)
	}
	return i, nil
}

// AccelerationG returns the three accelerations in g.
func (i IMU) AccelerationG() (x, y, z float64) {
	return float64(i.XAcc) / 1000, float64(i.YAcc) / 1000, float64(i.ZAcc) / 1000
}

// AngularVelocityDeg returns roll/pitch/yaw rates in °/s.
func (i IMU) AngularVelocityDeg() (roll, pitch, yaw float64) {
	return float64(i.RollVel) / 10, float64(i.PitchVel) / 10, float64(i.YawVel) / 10
}

// AttitudeDeg returns phi/theta/psi in degrees.
func (i IMU) AttitudeDeg() (phi, theta, psi float64) {
	return float64(i.PhiAngle) / 10, float64(i.ThetaAngle) / 10, float64(i.PsiAngle) / 10
}

// PointCloudSpoke is one azimuth's worth of extracted points.
type PointCloudSpoke struct {
	Azimuth      uint16
	Seconds      uint32
	SplitSeconds uint32
	Points       []NavPoint
}

// Encode packs the spoke as a pointcloud_spoke message.
func (p PointCloudSpoke) Encode() *UDPMessage {
	w := wire.NewWriter(12 + 6*len(p.Points))
	w.U16(p.Azimuth)
	w.U32(p.Seconds)
	w.U32(p.SplitSeconds)
	w.U16(uint16(len(p.Points)))
	for _, pt := range p.Points {
		w.U32(uint32(pt.Range * 10000.0))
		w.U16(uint16(pt.Power * 100.0))
	}
	return NewUDPMessage(UDPTypePointCloudSpoke, w.Finish())
}

// DecodePointCloudSpoke reads a spoke view from a UDP message.
func DecodePointCloudSpoke(m *UDPMessage) (PointCloudSpoke, error) {
	if m.Type() != UDPTypePointCloudSpoke {
		return PointCloudSpoke{}, fmt.Errorf("colossus: %s is not a pointcloud spoke", m.Type())
	}
	r := wire.NewReader(m.Payload())
	p := PointCloudSpoke{
		Azimuth:      r.U16(),
		Seconds:      r.U32(),
		SplitSeconds: r.U32(),
	}
	count := int(r.U16())
	for n := 0; n < count; n++ {
		rng := r.U32()
		pwr := r.U16()
		p.Points = append(p.Points, NavPoint{
			Range: units.Metre(rng) / 10000.0,
			Power: units.DB(pwr) / 100.0,
		})
	}
	if err := r.Err(); err != nil {
		return PointCloudSpoke{}, fmt.Errorf("colossus: decode pointcloud spoke: %w", err)
	}
	return p, nil
}
