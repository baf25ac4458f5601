package utils

import (
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/sirupsen/logrus"
)

const (
	TransportHTTP    = "http"
	TransportBrowser = "browser"
)

// GetOptimalWorkerCount determines the number of concurrent page tasks based on config and system resources.
func GetOptimalWorkerCount(log logrus.FieldLogger, configValue string, transport string) int {
	// 1. Check for manual override
	if manualWorkers, err := strconv.Atoi(configValue); err == nil && manualWorkers > 0 {
		log.WithField("workers", manualWorkers).Info("Using manually configured number of workers")
		return manualWorkers
	}

	// 2. If set to "auto" or invalid, calculate automatically
	if configValue != "auto" && configValue != "" {
		log.WithField("workers", configValue).Warn("Invalid workers value. Defaulting to 'auto' mode.")
	}

	cpuCores, err := cpu.Counts(true)
	if err != nil || cpuCores < 1 {
		log.WithError(err).Warn("Could not detect CPU cores. Falling back to 2 workers.")
		return 2
	}

	optimalCount := workersForCores(cpuCores, transport)
	log.WithFields(logrus.Fields{
		"cores":     cpuCores,
		"transport": transport,
		"workers":   optimalCount,
	}).Info("Automatically sized worker pool")
	return optimalCount
}

// workersForCores keeps plain HTTP fetches at a small multiple of the cores, and browser pages
// at half of them since every page is a renderer process.
func workersForCores(cpuCores int, transport string) int {
	count, maxCount := cpuCores*2, 32
	if transport == TransportBrowser {
		count, maxCount = cpuCores/2, 16
	}

	if count < 1 {
		count = 1
	}
	if count > maxCount {
		count = maxCount
	}
	return count
}
