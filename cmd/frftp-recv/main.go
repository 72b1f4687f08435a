// Command frftp-recv listens for a single incoming frftp-send transfer and
// writes it to a local file. See cmd/frftp-send for the wiring rationale;
// the two binaries share pkg/config, pkg/logger, pkg/metrics and
// source/transport.
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

const (
	exitOK          = 0
	exitTransferErr = 1
	exitUsageErr    = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("frftp-recv", flag.ContinueOnError)
	flags := config.Flags{}
	config.RegisterCommon(fs, &flags)
	bind := fs.String("bind", ":9977", "address to listen on, host:port")
	outPath := fs.String("out", "", "destination file to write (required)")
	metricsAddr := fs.String("metrics-addr", "", "optional address to serve Prometheus metrics on, e.g. :9091")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return exitUsageErr
	}
	if *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: frftp-recv -bind host:port -out path [flags]")
		return exitUsageErr
	}

	logger.SetLevel(flags.LogLevel)
	logger.Banner("FRFTP Receiver", version)
	sessionID := logger.NewSessionID()
	log := logger.WithSession(sessionID)

	bindAddr, err := net.ResolveUDPAddr("udp", *bind)
	if err != nil {
		log.Errorf("resolve bind address %q: %v", *bind, err)
		return exitUsageErr
	}

	file, err := config.LoadFile(flags.ConfigPath)
	if err != nil {
		log.Errorf("load config: %v", err)
		return exitUsageErr
	}
	cfg := config.Merge(file, flags)
	cfg.BindAddr = bindAddr
	if err := cfg.Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		return exitUsageErr
	}

	sink, err := iosrc.FileSink(*outPath)
	if err != nil {
		log.Errorf("open %s: %v", *outPath, err)
		return exitUsageErr
	}
	defer sink.Close()

	conn, err := transport.Listen(bindAddr, cfg.RecvBufBytes, cfg.ZeroCopy)
	if err != nil {
		log.Errorf("listen on %s: %v", bindAddr, err)
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
	var bar *progressbar.ProgressBar
	hooks := m.ReceiverHooks(func(uint32) int { return payloadMax })
	baseOnDataWritten := hooks.OnDataWritten
	hooks.OnDataWritten = func(seq uint32, duplicate bool) {
		baseOnDataWritten(seq, duplicate)
		if bar != nil && !duplicate {
			bar.Add(payloadMax)
		}
	}
	hooks.OnStart = func(peer *net.UDPAddr, fileSize uint64, totalSegs uint32) {
		log.Infof("incoming transfer from %s: %d bytes, %d segments", peer, fileSize, totalSegs)
		bar = progressbar.DefaultBytes(int64(fileSize), fmt.Sprintf("receiving %s", *outPath))
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

	log.Infof("listening on %s, writing to %s", bindAddr, *outPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warnf("received signal %v, aborting transfer", sig)
		cancel()
	}()

	receiver := session.NewReceiver(cfg, conn, sink, hooks)
	if err := receiver.Run(ctx); err != nil {
		log.Errorf("transfer failed: %v", err)
		return exitTransferErr
	}
	if bar != nil {
		bar.Close()
	}

	logger.Success("transfer complete")
	return exitOK
}
