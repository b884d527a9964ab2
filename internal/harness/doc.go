// Package harness runs scripted game scenarios and checks their outcome.
//
// A scenario is a YAML file that names a catalog, a list of setup actions,
// a flow of actions to trace, and assertions over the trace and the final
// state:
//
//	name: opening
//	description: welcome beat grants a flashlight that produces photons
//	flow:
//	  - action: resetState
//	    expect:
//	      fired: [welcome]
//	  - tick: 1000
//	    repeat: 10
//	assertions:
//	  - type: final_state
//	    path: items.photon.count
//	    expect: 10
//
// Scenarios drive a real engine.Game, so a passing scenario exercises the
// reducer, solver, simulator and narrative engine together. Traces can be
// compared against golden files with RunWithGolden.
package harness
