// Package test provides an end-to-end environment for the search job API.
//
// A TestEnvironment wires the real gateway, status resolver, reaper,
// handlers and HTTP client around an in-memory domain store, a temporary
// job root and a scripted runner that writes tool artifacts instead of
// spawning BLAST or Foldseek.
//
// Example usage:
//
//	func TestExample(t *testing.T) {
//	    env := test.NewTestEnvironment(t, test.WithServer())
//	    defer env.Cleanup()
//
//	    env.Runner.SetOutcome(types.JobKindSequence, test.Outcome{Artifact: xml})
//	    id, err := env.APIClient.SubmitSequence(env.Context(), req)
//	}
package test
