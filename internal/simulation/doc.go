// Package simulation runs multi-year review cycles over a population and
// records how salary inequality evolves.
//
// The simulator owns a deep copy of the population it is given, so the
// generator's output is never mutated. Each cycle evolves performance ratings,
// applies one annual review and appends an InequalitySnapshot to the
// progression. Cycle 0 describes the population before any review.
//
// A single seeded RNG drives rating evolution and fresh rating draws, so a
// seed plus a population reproduce the same progression.
//
// Usage:
//
//	sim, err := simulation.NewSimulator(pop, simulation.Config{RandomSeed: 42})
//	if err != nil {
//	    return err
//	}
//	result, err := sim.Run(5, 0.7)
//	if err != nil {
//	    return err
//	}
//	analysis := simulation.FinalAnalysis(result.Progression)
package simulation
