// Copyright 2026 Pulse ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides first-order gradient optimizers with cyclical
// learning rate schedules.
//
// # Overview
//
// This package contains:
//   - SGD, RMSProp, Adagrad, Adadelta, Adam, Adamax, Nadam update rules
//   - CLR: cyclical learning rate schedules (triangular, triangular2,
//     exp_range)
//   - Gradient clipping by joint global norm and by element value
//   - Constraint projection applied after the raw update
//   - Snapshot, restore and config round-trip of optimizer state
//   - Native: passthrough to an external update engine
//
// # Basic Usage
//
//	import (
//	    "github.com/pulse-ml/pulse/optim"
//	    "github.com/pulse-ml/pulse/tensor"
//	)
//
//	func main() {
//	    w, _ := tensor.FromSlice([]float64{2.0}, tensor.Shape{1})
//	    weight := optim.NewParameter("w", w)
//	    params := []*optim.Parameter{weight}
//
//	    opt, _ := optim.NewSGD(optim.FiniteDiff{}, optim.SGDConfig{LR: 0.1})
//	    loss := func() float64 {
//	        v := weight.Value().Data()[0]
//	        return v * v
//	    }
//
//	    for step := 0; step < 100; step++ {
//	        if err := opt.Step(params, nil, loss); err != nil {
//	            log.Fatal(err)
//	        }
//	    }
//	}
//
// # Cyclical Learning Rates
//
// Every optimizer accepts a CLR schedule through its Options. The rate
// cycles between the optimizer's base rate and MaxLR with a period of
// 2*StepSize steps:
//
//	opt, err := optim.NewAdam(
//	    diff,
//	    optim.AdamConfig{
//	        LR: 0.001,
//	        Options: optim.Options{
//	            CLR: &optim.CLR{
//	                Mode:     optim.Triangular2,
//	                StepSize: 2000,
//	                MaxLR:    0.006,
//	            },
//	        },
//	    },
//	)
//
// # Snapshot and Restore
//
// Optimizer state round-trips through Weights/SetWeights (state tensors)
// and Config/FromConfig (hyperparameters and counters):
//
//	snap, err := opt.Weights()
//	...
//	if err := opt.SetWeights(snap); err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg, err := opt.Config()
//	...
//	restored, err := optim.FromConfig(diff, "adam", cfg)
package optim
