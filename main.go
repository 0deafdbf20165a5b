package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

var (
	appName        = "smppgw"      // application name
	version        = "1.0.0"       // version
	date           = ""            // build date
	build          = ""            // git build number
	detailedLog    = false         // log PDU traffic
	configFileName = "config.yaml" // configuration file name
)

func main() {
	fmt.Fprintf(os.Stderr, "### %s %s", appName, version)
	if build != "" {
		fmt.Fprintf(os.Stderr, " [#%s]", build)
	}
	if date != "" {
		fmt.Fprintf(os.Stderr, " (%s)", date)
	}
	fmt.Fprintln(os.Stderr)

	flag.StringVar(&configFileName, "config", configFileName, "configuration `fileName`")
	flag.BoolVar(&detailedLog, "debug", detailedLog, "log PDU traffic")
	flag.Parse()

	for { // load, run and stop the services until a stop signal
		logrus.Infof("Loading %q...", configFileName)
		config, err := LoadConfig(configFileName)
		if err != nil {
			logrus.WithError(err).Fatal("Error loading config")
		}
		if err := setupLogging(config.Log, detailedLog); err != nil {
			logrus.WithError(err).Fatal("Error in log config")
		}
		if err := config.Start(); err != nil {
			logrus.WithError(err).Fatal("Error starting services")
		}
		sig := monitorSignals(os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
		config.Stop()
		if sig != syscall.SIGUSR1 {
			logrus.Info("[THE END]")
			return
		}
		logrus.Info("Reload signal...")
	}
}

// monitorSignals blocks until one of signals is received and returns it.
func monitorSignals(signals ...os.Signal) os.Signal {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, signals...)
	defer signal.Stop(signalChan)
	return <-signalChan
}
