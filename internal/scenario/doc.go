// Package scenario runs Everest CLI end-to-end scenarios described in YAML.
//
// A scenario has three phases. "before" steps check preconditions, "steps" hold the actions
// under test and "cleanup" always runs, even after a failure or timeout:
//
//	name: uninstall-everest
//	vars:
//	  namespaces: [everest-system, everest-monitoring]
//	steps:
//	  - name: run everest uninstall command
//	    everest: uninstall --assume-yes
//	  - name: namespaces removed
//	    run: kubectl get ns {{ join " " .namespaces }}
//	    expect:
//	      success: false
//	      stderr_contains: ['namespaces "everest-system" not found']
//	    wait: {timeout: 10m, interval: 2s}
//
// A step runs a command line ("run"), installer arguments ("everest") or a group of nested
// steps ("steps"). Commands and expectations are Go templates with the sprig functions.
// Steps with "wait" are re-run until their expectation holds. Every scenario gets its own
// harness fixtures and a fresh run ID; scenarios can run in parallel.
//
// Built-in scenarios are embedded in the binary and used when no path is given.
package scenario
