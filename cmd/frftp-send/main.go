// Command frftp-send transfers a single file to a waiting frftp-recv peer
// over UDP. It wires source/session.Sender to a real UDP socket
// (source/transport), a file-backed iosrc.Source, Prometheus metrics
// (pkg/metrics) and a terminal progress bar (schollz/progressbar/v3),
// mirroring the teacher's core/main.go shape: banner, flag-driven config,
// signal-driven graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"

	"github.com/Shivanirao2000/frftp/pkg/config"
	"github.com/Shivanirao2000/frftp/pkg/logger"
	"github.com/Shivanirao2000/frftp/pkg/metrics"
	"github.com/Shivanirao2000/frftp/source/iosrc"
	"github.com/Shivanirao2000/frftp/source/session"
	"github.com/Shivanirao2000/frftp/source/transport"
)

const version = "1.0.0"

// Exit codes per spec.md §6: 0 success, 1 transfer failure
// (RetriesExhausted/HandshakeFailed/SizeMismatch), 2 usage/config error.
const (
	exitOK          = 0
	exitTransferErr = 1
	exitUsageErr    = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("frftp-send", flag.ContinueOnError)
	flags := config.Flags{}
	config.RegisterCommon(fs, &flags)
	peer := fs.String("peer", "", "receiver address, host:port (required)")
	filePath := fs.String("file", "", "file to send (required)")
	metricsAddr := fs.String("metrics-addr", "", "optional address to serve Prometheus metrics on, e.g. :9090")
	showProgress := fs.Bool("progress", false, "print a terminal progress bar")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return exitUsageErr
	}
	if *peer == "" || *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: frftp-send -peer host:port -file path [flags]")
		return exitUsageErr
	}

	logger.SetLevel(flags.LogLevel)
	logger.Banner("FRFTP Sender", version)
	sessionID := logger.NewSessionID()
	log := logger.WithSession(sessionID)

	peerAddr, err := net.ResolveUDPAddr("udp", *peer)
	if err != nil {
		log.Errorf("resolve peer address %q: %v", *peer, err)
		return exitUsageErr
	}

	file, err := config.LoadFile(flags.ConfigPath)
	if err != nil {
		log.Errorf("load config: %v", err)
		return exitUsageErr
	}
	cfg := config.Merge(file, flags)
	cfg.PeerAddr = peerAddr
	if err := cfg.Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		return exitUsageErr
	}

	src, err := iosrc.FileSource(*filePath)
	if err != nil {
		log.Errorf("open %s: %v", *filePath, err)
		return exitUsageErr
	}
	defer src.Close()

	conn, err := transport.Dial(cfg.RecvBufBytes, cfg.ZeroCopy)
	if err != nil {
		log.Errorf("open socket: %v", err)
		return exitUsageErr
	}
	defer conn.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewSession(reg)
	if *metricsAddr != "" {
		go func() {
			if err := metrics.ServeHTTP(*metricsAddr, reg); err != nil {
				log.Warnf("metrics server stopped: %v", err)
			}
		}()
	}

	payloadMax := session.PayloadMax(cfg.MTU)
	totalSegs := cfg.TotalSegs(uint64(src.Size()))

	hooks := m.SenderHooks(func(uint32) int { return payloadMax })
	if *showProgress {
		bar := progressbar.DefaultBytes(src.Size(), fmt.Sprintf("sending %s", *filePath))
		defer bar.Close()
		baseOnSegmentSent := hooks.OnSegmentSent
		hooks.OnSegmentSent = func(seq uint32, retransmit bool) {
			baseOnSegmentSent(seq, retransmit)
			if !retransmit {
				bar.Add(payloadMax)
			}
		}
	}
	baseOnMalformed := hooks.OnMalformed
	hooks.OnMalformed = func(err error) {
		baseOnMalformed(err)
		log.Debugf("malformed frame from peer: %v", err)
	}
	baseOnSocketError := hooks.OnSocketError
	hooks.OnSocketError = func(err error) {
		baseOnSocketError(err)
		log.Warnf("socket error: %v", err)
	}

	log.Infof("sending %s to %s: %d bytes, %d segments, mtu=%d window=%d",
		*filePath, peerAddr, src.Size(), totalSegs, cfg.MTU, cfg.Win)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warnf("received signal %v, aborting transfer", sig)
		cancel()
	}()

	sender := session.NewSender(cfg, conn, src, hooks)
	if err := sender.Run(ctx); err != nil {
		log.Errorf("transfer failed: %v", err)
		return exitTransferErr
	}

	logger.Success("transfer complete")
	return exitOK
}
