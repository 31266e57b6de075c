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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"z6/internal/eventlog"
	"z6/internal/kernel"
	"z6/internal/reducer"
	"z6/internal/scenario"
	"z6/internal/transport"
	"z6/internal/vuengine"
)

// newReplayCmd loads a recorded event log and prints its metrics. When
// --scenario is given, it additionally re-executes that scenario with
// the log's recorded PRNG seed and checks the resulting run against
// the recorded one, surfacing any divergence as a runtime error — the
// determinism property spec.md §8 requires of the core.
func newReplayCmd() *cobra.Command {
	var scenarioPath string
	cmd := &cobra.Command{
		Use:   "replay <log>",
		Short: "Reduce a recorded event log, optionally re-executing its scenario to check determinism",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args[0], scenarioPath)
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "re-execute this scenario with the log's recorded seed and compare")
	return cmd
}

func runReplay(logPath, scenarioPath string) error {
	header, recorded, err := eventlog.ReadFile(logPath)
	if err != nil {
		return runtimeError("read event log: %v", err)
	}

	if scenarioPath == "" {
		return printMetrics(os.Stdout, reducer.Reduce(recorded))
	}

	s, err := scenario.Load(scenarioPath)
	if err != nil {
		return configError("load scenario: %v", err)
	}
	hash, err := s.Hash()
	if err != nil {
		return runtimeError("hash scenario: %v", err)
	}
	if hash != header.ScenarioHash {
		return runtimeError("scenario %s does not match the log's recorded scenario_hash", scenarioPath)
	}

	replayLog := kernel.NewEventLog(recorded.Len())
	prng := kernel.NewPRNG(header.PRNGSeed)
	sched := kernel.NewScheduler(int(s.Runtime.VUs), prng, replayLog)
	proto, err := vuengine.BuildProtocolEngine(s.Target.HTTPVersion, transport.TCPDialer{}, replayLog)
	if err != nil {
		return configError("build protocol engine: %v", err)
	}
	engine := vuengine.New(s, sched, proto)
	if err := engine.Run(); err != nil {
		return runtimeError("re-execute scenario: %v", err)
	}

	if replayLog.Len() != recorded.Len() {
		return runtimeError("replay diverged: recorded %d events, replay produced %d", recorded.Len(), replayLog.Len())
	}
	for i := 0; i < recorded.Len(); i++ {
		if recorded.At(i) != replayLog.At(i) {
			return runtimeError("replay diverged at event %d", i)
		}
	}
	fmt.Fprintln(os.Stdout, "replay matches recorded event log exactly")
	return printMetrics(os.Stdout, reducer.Reduce(replayLog))
}
