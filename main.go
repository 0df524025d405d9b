// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Vikingsim - Viking Bio 20 Burner Simulator
//
// A CLI tool that emits simulated Viking Bio 20 serial telemetry and decodes
// it on the receiving side.

package main

import (
	"os"

	"github.com/Thermoquad/vikingsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
