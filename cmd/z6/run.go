// Copyright 2026 The Z6 Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"z6/internal/eventlog"
	"z6/internal/kernel"
	"z6/internal/metricsexport"
	"z6/internal/reducer"
	"z6/internal/scenario"
	"z6/internal/transport"
	"z6/internal/vuengine"
	"z6/internal/z6log"
)

func newRunCmd() *cobra.Command {
	var (
		outPath     string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario against a live target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args[0], outPath, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write the run's event log to this path")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, expose Prometheus /metrics on this address")
	return cmd
}

func runRun(scenarioPath, outPath, metricsAddr string) error {
	log := z6log.New(z6log.WithWriter(os.Stderr))

	s, err := scenario.Load(scenarioPath)
	if err != nil {
		return configError("load scenario: %v", err)
	}

	seed, err := resolveSeed(s)
	if err != nil {
		return runtimeError("resolve prng seed: %v", err)
	}
	log.With("seed", seed).Info("scenario loaded")

	var exporter *metricsexport.Collector
	if metricsAddr != "" {
		exporter = metricsexport.New()
		srv := metricsexport.NewServer(metricsAddr, exporter)
		errCh := srv.Start()
		log.With("addr", metricsAddr).Info("metrics server listening")
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Error("metrics server shutdown", err)
			}
			if err := <-errCh; err != nil {
				log.Error("metrics server", err)
			}
		}()
	}

	eventLog := kernel.NewEventLog(defaultEventLogCapacity(s))
	prng := kernel.NewPRNG(seed)
	sched := kernel.NewScheduler(int(s.Runtime.VUs), prng, eventLog)

	proto, err := vuengine.BuildProtocolEngine(s.Target.HTTPVersion, transport.TCPDialer{}, eventLog)
	if err != nil {
		return configError("build protocol engine: %v", err)
	}

	engine := vuengine.New(s, sched, proto)
	log.Info("run started")
	if exporter != nil {
		exporter.Update(reducer.Reduce(eventLog))
	}
	if err := engine.Run(); err != nil {
		return runtimeError("run scenario: %v", err)
	}
	log.With("ticks", uint64(sched.Tick())).Info("run finished")

	m := reducer.Reduce(eventLog)
	if exporter != nil {
		exporter.Update(m)
	}

	if outPath != "" {
		hash, err := s.Hash()
		if err != nil {
			return runtimeError("hash scenario: %v", err)
		}
		header := eventlog.Header{Version: 1, PRNGSeed: seed, ScenarioHash: hash}
		if err := eventlog.WriteFile(outPath, header, eventLog); err != nil {
			return runtimeError("write event log: %v", err)
		}
		log.With("path", outPath).Info("event log written")
	}

	if err := printMetrics(os.Stdout, m); err != nil {
		return err
	}

	results := reducer.EvaluateAssertions(m, s)
	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(os.Stdout, "assertion %-20s %s (actual=%.4f limit=%.4f)\n", r.Name, status, r.Actual, r.Limit)
	}
	if !reducer.AllPassed(results) {
		return assertionFailure("one or more assertions failed")
	}
	return nil
}

// resolveSeed returns the scenario's configured PRNG seed, or a
// randomly generated one if the scenario left it unset. Unlike the
// deterministic core itself, the CLI is free to draw entropy here: the
// chosen seed is logged and written to the event log header so the run
// remains reproducible via `z6 replay`.
func resolveSeed(s *scenario.Scenario) (uint64, error) {
	if s.Runtime.PRNGSeed != nil {
		return *s.Runtime.PRNGSeed, nil
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// defaultEventLogCapacity sizes the in-memory event log generously
// enough for a full run: every VU issues at most one request per
// think-time window, each producing a bounded number of events.
func defaultEventLogCapacity(s *scenario.Scenario) int {
	durationTicks := s.Runtime.DurationSeconds * uint64(kernel.TicksPerSecond)
	estimate := uint64(s.Runtime.VUs) * (durationTicks/10 + 1) * 4
	if estimate < 4096 {
		estimate = 4096
	}
	if estimate > 10_000_000 {
		estimate = 10_000_000
	}
	return int(estimate)
}
