// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"os"
	"os/signal"
	"syscall"

	xglog "github.com/ManuGH/hlscap/internal/log"
	"github.com/ManuGH/hlscap/internal/stopper"
)

// watchSignals stops the capture on the first SIGINT/SIGTERM and calls exit(1)
// on the second. The returned func unregisters the handler.
func watchSignals(stop *stopper.Stopper, exit func(int)) func() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go handleSignals(sigs, done, stop, exit)
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func handleSignals(sigs <-chan os.Signal, done <-chan struct{}, stop *stopper.Stopper, exit func(int)) {
	logger := xglog.WithComponent("cli")
	count := 0
	for {
		select {
		case <-done:
			return
		case sig := <-sigs:
			count++
			if count == 1 {
				logger.Warn().Str("signal", sig.String()).Msg("stopping capture; finishing in-flight segments (press Ctrl+C again to abort)")
				stop.Stop()
				continue
			}
			logger.Error().Str("signal", sig.String()).Msg("aborting")
			exit(1)
			return
		}
	}
}
