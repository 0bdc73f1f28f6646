// Package colossus implements the Colossus radar application
// protocol: the framed TCP stream, the one-message-per-datagram UDP
// variant, typed views over message payloads, and the client and
// server façades that tie the transport, framing and dispatch
// components together.
package colossus

import "fmt"

// Type tags a Colossus TCP message.
type Type uint8

const (
	TypeInvalid                 Type = 0
	TypeKeepAlive               Type = 1
	TypeConfiguration           Type = 10
	TypeConfigurationRequest    Type = 20
	TypeStartFFTData            Type = 21
	TypeStopFFTData             Type = 22
	TypeStartHealthMsgs         Type = 23
	TypeStopHealthMsgs          Type = 24
	TypeFFTData                 Type = 30
	TypeHighPrecisionFFTData    Type = 31
	TypeHealth                  Type = 40
	TypeContourUpdate           Type = 50
	TypeSectorBlankingUpdate    Type = 51
	TypeSystemRestart           Type = 76
	TypeStartNavData            Type = 120
	TypeStopNavData             Type = 121
	TypeSetNavThreshold         Type = 122
	TypeNavigationData          Type = 123
	TypeSetNavRangeOffsetGain   Type = 124
	TypeNavigationConfigRequest Type = 203
	TypeNavigationConfig        Type = 204
)

func (t Type) String() string {
	switch t {
	case TypeKeepAlive:
		return "keep_alive"
	case TypeConfiguration:
		return "configuration"
	case TypeConfigurationRequest:
		return "configuration_request"
	case TypeStartFFTData:
		return "start_fft_data"
	case TypeStopFFTData:
		return "stop_fft_data"
	case TypeStartHealthMsgs:
		return "start_health_msgs"
	case TypeStopHealthMsgs:
		return "stop_health_msgs"
	case TypeFFTData:
		return "fft_data"
	case TypeHighPrecisionFFTData:
		return "high_precision_fft_data"
	case TypeHealth:
		return "health"
	case TypeContourUpdate:
		return "contour_update"
	case TypeSectorBlankingUpdate:
		return "sector_blanking_update"
	case TypeSystemRestart:
		return "system_restart"
	case TypeStartNavData:
		return "start_nav_data"
	case TypeStopNavData:
		return "stop_nav_data"
	case TypeSetNavThreshold:
		return "set_nav_threshold"
	case TypeNavigationData:
		return "navigation_data"
	case TypeSetNavRangeOffsetGain:
		return "set_nav_range_offset_and_gain"
	case TypeNavigationConfigRequest:
		return "navigation_config_request"
	case TypeNavigationConfig:
		return "navigation_configuration"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// UDPType tags a Colossus UDP message.
type UDPType uint8

const (
	UDPTypeInvalid         UDPType = 0
	UDPTypePointCloud      UDPType = 1
	UDPTypePointCloudSpoke UDPType = 2
	UDPTypeIMU             UDPType = 3
)

func (t UDPType) String() string {
	switch t {
	case UDPTypePointCloud:
		return "point_cloud"
	case UDPTypePointCloudSpoke:
		return "pointcloud_spoke"
	case UDPTypeIMU:
		return "imu"
	default:
		return fmt.Sprintf("udp_type(%d)", uint8(t))
	}
}
