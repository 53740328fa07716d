// Command rtspd runs a single-source, multi-client RTSP/RTP live
// streaming server: one external H.264 encoder subprocess is looped and
// fanned out over RTSP 1.0 control to any number of UDP or
// TCP-interleaved clients.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"

	"github.com/avloop/rtspd/internal/config"
	"github.com/avloop/rtspd/internal/encoder"
	"github.com/avloop/rtspd/internal/fanout"
	"github.com/avloop/rtspd/internal/logger"
	"github.com/avloop/rtspd/internal/registry"
	"github.com/avloop/rtspd/internal/rtcpsr"
	"github.com/avloop/rtspd/internal/rtph264"
	"github.com/avloop/rtspd/internal/rtspserver"
	"github.com/avloop/rtspd/internal/session"
	"github.com/avloop/rtspd/internal/transport"
)

var cli struct {
	Config         string `help:"path to an optional YAML config file" short:"c"`
	RTSPAddr       string `help:"RTSP control listen address" name:"rtsp-addr"`
	RTPAddr        string `help:"RTP UDP listen address" name:"rtp-addr"`
	RTCPAddr       string `help:"RTCP UDP listen address" name:"rtcp-addr"`
	ServerIP       string `help:"IP advertised in the DESCRIBE SDP origin line" name:"server-ip"`
	ServerName     string `help:"name advertised in the DESCRIBE SDP session line" name:"server-name"`
	EncoderCommand string `help:"shell command line of the external H.264 Annex-B encoder" name:"encoder"`
	LogLevel       string `help:"debug, info, warn, or error" name:"log-level"`
}

func applyFlagOverrides(cfg *config.Config) {
	if cli.RTSPAddr != "" {
		cfg.RTSPAddr = cli.RTSPAddr
	}
	if cli.RTPAddr != "" {
		cfg.RTPAddr = cli.RTPAddr
	}
	if cli.RTCPAddr != "" {
		cfg.RTCPAddr = cli.RTCPAddr
	}
	if cli.ServerIP != "" {
		cfg.ServerIP = cli.ServerIP
	}
	if cli.ServerName != "" {
		cfg.ServerName = cli.ServerName
	}
	if cli.EncoderCommand != "" {
		cfg.EncoderCommand = cli.EncoderCommand
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
}

func main() {
	kong.Parse(&cli, kong.Description("rtspd: single-source, multi-client RTSP/RTP live streaming server"))

	cfg := config.Default()
	if err := cfg.LoadYAML(cli.Config); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyFlagOverrides(&cfg)

	if cfg.EncoderCommand == "" {
		fmt.Fprintln(os.Stderr, "an encoder command is required (--encoder or config encoder_command)")
		os.Exit(2)
	}

	log := logger.New(cfg.LogLevelValue())

	if err := run(cfg, log); err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	rtspListener, err := net.Listen("tcp", cfg.RTSPAddr)
	if err != nil {
		return fmt.Errorf("bind RTSP %s: %w", cfg.RTSPAddr, err)
	}
	defer rtspListener.Close()

	rtpConn, err := listenUDP(cfg.RTPAddr)
	if err != nil {
		return fmt.Errorf("bind RTP %s: %w", cfg.RTPAddr, err)
	}
	defer rtpConn.Close()

	rtcpConn, err := listenUDP(cfg.RTCPAddr)
	if err != nil {
		return fmt.Errorf("bind RTCP %s: %w", cfg.RTCPAddr, err)
	}
	defer rtcpConn.Close()

	reg := registry.New()
	params := &fanout.ParamCache{}

	pkt, err := rtph264.NewPacketizer()
	if err != nil {
		return fmt.Errorf("initialize packetizer: %w", err)
	}

	rtcpSender := &rtcpsr.Sender{SSRC: pkt.SSRC()}
	rtcpSender.Send = (&fanout.RTCPBroadcaster{
		Registry:   reg,
		RTCPSocket: transport.NewUDPSender(rtcpConn),
		TCPWriters: rtspserver.TCPWriter,
		Log:        log.Prefixed("rtcp"),
	}).Send
	rtcpSender.Initialize()
	defer rtcpSender.Close()

	sched := &fanout.Scheduler{
		Registry:   reg,
		Params:     params,
		Packetizer: pkt,
		RTCP:       rtcpSender,
		RTPSocket:  transport.NewUDPSender(rtpConn),
		TCPWriters: rtspserver.TCPWriter,
		Log:        log.Prefixed("fanout"),
	}
	sched.Start()

	enc := &encoder.Runner{
		Command: cfg.EncoderCommand,
		Log:     log.Prefixed("encoder"),
		Frames:  sched.Push,
		OnStart: sched.Flush,
	}
	enc.Start()
	defer enc.Stop()

	rtpPort := rtpConn.LocalAddr().(*net.UDPAddr).Port
	rtcpPort := rtcpConn.LocalAddr().(*net.UDPAddr).Port

	handler := &session.Handler{
		Registry:  reg,
		NowMillis: func() int64 { return time.Now().UnixMilli() },
		Stream: func() session.StreamInfo {
			sps, pps := params.Get()
			return session.StreamInfo{
				ServerIP:      cfg.ServerIP,
				ServerName:    cfg.ServerName,
				ServerPorts:   [2]int{rtpPort, rtcpPort},
				ParameterSets: session.ParameterSets{SPS: sps, PPS: pps},
				Sequence:      pkt.Sequence(),
				Timestamp:     pkt.Timestamp(),
			}
		},
		OnPlay: rtcpSender.ReportNow,
	}

	server := &rtspserver.Server{
		Listener:    rtspListener,
		Handler:     handler,
		Registry:    reg,
		IdleTimeout: idleTimeoutFromConfig(cfg),
		Log:         log.Prefixed("rtsp"),
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve() }()

	log.Infof("rtspd listening: rtsp=%s rtp=%s rtcp=%s", cfg.RTSPAddr, cfg.RTPAddr, cfg.RTCPAddr)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case err := <-serveErr:
		return fmt.Errorf("rtsp accept loop: %w", err)
	case <-interrupt:
		log.Infof("shutting down")
		return nil
	}
}

func listenUDP(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", udpAddr)
}

func idleTimeoutFromConfig(cfg config.Config) time.Duration {
	return time.Duration(cfg.IdleTimeoutSeconds) * time.Second
}
