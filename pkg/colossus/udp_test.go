package colossus

import (
	"math"
	"testing"
)

func TestIMURoundTrip(t *testing.T) {
	imu := IMU{
		XAcc: -15, YAcc: 1000, ZAcc: 30,
		RollVel: -100, PitchVel: 55, YawVel: 0,
		PhiAngle: 900, ThetaAngle: -450, PsiAngle: 1800,
	}

	msg := imu.Encode()
	if msg.Type() != UDPTypeIMU {
		t.Fatalf("type %v", msg.Type())
	}
	if len(msg.Payload()) != 18 {
		t.Fatalf("payload %d bytes", len(msg.Payload()))
	}

	decoded, err := DecodeIMU(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != imu {
		t.Fatalf("decoded %+v, want %+v", decoded, imu)
	}

	_, ya, _ := decoded.AccelerationG()
	if math.Abs(ya-1.0) > 1e-9 {
		t.Fatalf("y acceleration %f g", ya)
	}
	roll, _, _ := decoded.AngularVelocityDeg()
	if math.Abs(roll+10.0) > 1e-9 {
		t.Fatalf("roll velocity %f", roll)
	}
	phi, theta, _ := decoded.AttitudeDeg()
	if math.Abs(phi-90.0) > 1e-9 || math.Abs(theta+45.0) > 1e-9 {
		t.Fatalf("attitude %f %f", phi, theta)
	}
}

func TestPointCloudSpokeRoundTrip(t *testing.T) {
	spoke := PointCloudSpoke{
		Azimuth: 120,
		Seconds: 55,
		Points: []NavPoint{
			{Range: 10.5, Power: 40.25},
			{Range: 99.0, Power: 12.0},
		},
	}

	decoded, err := DecodePointCloudSpoke(spoke.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Azimuth != 120 || len(decoded.Points) != 2 {
		t.Fatalf("decoded %+v", decoded)
	}
	if math.Abs(decoded.Points[0].Range-10.5) > 1e-4 {
		t.Fatalf("range %f", decoded.Points[0].Range)
	}
	if math.Abs(decoded.Points[0].Power-40.25) > 1e-2 {
		t.Fatalf("power %f", decoded.Points[0].Power)
	}
}

func TestDecodeIMURejectsWrongType(t *testing.T) {
	msg := NewUDPMessage(UDPTypePointCloud, []byte{1, 2})
	if _, err := DecodeIMU(msg); err == nil {
		t.Fatalf("imu view accepted a point cloud")
	}
}
