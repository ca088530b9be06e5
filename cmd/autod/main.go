// Command autod is the embedded control-plane daemon: it serves the
// HTTP control/inspection front end, runs the execution runner and LAN
// scanner, and plays either the master or slave side of the slot
// assignment protocol depending on configuration.
//
// Configuration:
//   - AUTOD_CONFIG: path to the INI config file (default: /etc/autod.conf)
//   - AUTOD_LISTEN: listen address, overrides [server].bind/[server].port
//     when set
//
// Example usage:
//
//	AUTOD_CONFIG=/etc/autod.conf ./autod
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/snokvist/autod-sub000/internal/config"
	"github.com/snokvist/autod-sub000/internal/httpapi"
	"github.com/snokvist/autod-sub000/internal/master"
	"github.com/snokvist/autod-sub000/internal/scanner"
	"github.com/snokvist/autod-sub000/internal/slave"
)

// logFatal is a variable so tests can intercept a fatal exit path.
var logFatal = logrus.StandardLogger().Fatalf

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	confPath := getenv("AUTOD_CONFIG", "/etc/autod.conf")
	base, err := config.LoadINI(confPath)
	if err != nil {
		logFatal("load config %s: %v", confPath, err)
		return
	}
	if base.SelfID == "" {
		base.SelfID = uuid.NewString()
		log.WithField("id", base.SelfID).Warn("no [sync] id configured, generated a random one")
	}

	cfg := config.NewStore(base)

	scn := scanner.New(log, base.Port)
	scn.ExtraCIDRs = base.ExtraCIDRs
	if base.EnableScan {
		scn.Start()
	}

	var m *master.Registry
	var sl *slave.Loop

	switch cfg.Snapshot().EffectiveRole() {
	case "master":
		m = master.New(log, base.Slots, base.SlotRetentionS, base.RegisterIntervalS, scn.Registry)
		log.Info("running as sync master")
	case "slave":
		sl = slave.New(log, cfg, scn.Registry, scn, base.Port)
		log.Info("running as sync slave")
	}

	srv := httpapi.New(log, cfg, scn, m, sl)

	listen := getenv("AUTOD_LISTEN", listenAddrFrom(base))
	errCh := srv.Start(listen)
	log.WithField("addr", listen).Info("autod listening")

	slaveCtx, cancelSlave := context.WithCancel(context.Background())
	if sl != nil {
		go sl.Run(slaveCtx)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("http server exited")
		}
	}

	cancelSlave()
	if sl != nil {
		sl.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("http shutdown error")
	}
	log.Info("autod stopped")
}

func listenAddrFrom(base config.Base) string {
	port := base.Port
	if port == 0 {
		port = 8080
	}
	return net.JoinHostPort(base.Bind, strconv.Itoa(port))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
