package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"radarlink/pkg/colossus"
	"radarlink/pkg/transport"
)

// runIMU prints one scaled IMU sample per second from the radar's
// UDP stream.
func runIMU(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("imu", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	raw := fs.Bool("raw", false, "print raw field values")
	multicast := fs.String("multicast", "", "multicast group to join")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, log, err := loadConfig(cf, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer log.Close()

	local, err := transport.MakeEndpoint("0.0.0.0", cfg.Radar.Port)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	var opts []colossus.UDPClientOption
	opts = append(opts, colossus.WithUDPLogger(log))
	if *multicast != "" {
		group, ok := parseAddr(*multicast)
		if !ok {
			fmt.Fprintln(stderr, "invalid multicast group:", *multicast)
			return 2
		}
		opts = append(opts, colossus.WithMulticast(group))
	}

	lastPrint := time.Time{}
	client := colossus.NewUDPClient(local, opts...)
	client.Ignore(colossus.UDPTypePointCloud)
	client.Ignore(colossus.UDPTypePointCloudSpoke)
	client.SetHandler(colossus.UDPTypeIMU, func(_ *colossus.UDPClient, msg *colossus.UDPMessage) {
		if time.Since(lastPrint) < time.Second {
			return
		}
		imu, err := colossus.DecodeIMU(msg)
		if err != nil {
			return
		}
		if *raw {
			fmt.Fprintf(stdout, "IMU [%d %d %d] [%d %d %d] [%d %d %d]\n",
				imu.XAcc, imu.YAcc, imu.ZAcc,
				imu.RollVel, imu.PitchVel, imu.YawVel,
				imu.PhiAngle, imu.ThetaAngle, imu.PsiAngle)
		} else {
			xa, ya, za := imu.AccelerationG()
			roll, pitch, yaw := imu.AngularVelocityDeg()
			phi, theta, psi := imu.AttitudeDeg()
			fmt.Fprintf(stdout,
				"IMU - x_acc:%.3fG y_acc:%.3fG z_acc:%.3fG roll:%.1f°/s pitch:%.1f°/s yaw:%.1f°/s phi:%.1f° theta:%.1f° psi:%.1f°\n",
				xa, ya, za, roll, pitch, yaw, phi, theta, psi)
		}
		lastPrint = time.Now()
	})

	if err := client.Start(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()

	client.Stop()
	return 0
}
