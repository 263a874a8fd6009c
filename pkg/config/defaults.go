package config

// Default returns the default run spec. Load overlays the YAML document on
// top of this, so every field here is the value a spec gets when it leaves
// the corresponding key out.
func Default() *RunSpec {
	return &RunSpec{
		Run: RunSection{
			Name:     "wop8",
			LogLevel: "info",
		},
		Corpus: CorpusSection{
			TrainRatio:    0.1,
			PartitionSeed: 42,
		},
		GA: GASection{
			PopulationSize: 30,
			Generations:    24,
			MutationRate:   0.05,
			CrossoverRate:  0.9,
			ElitismCount:   2,
			TournamentSize: 3,
			Seed:           1,
			Parallelism:    1,
		},
		Oracle: OracleSection{
			ExtraArgs: []string{"--distance=0", "--effort=7"},
		},
		Archive: ArchiveSection{
			Path: "wop8_archive.db",
		},
		Output: OutputSection{
			Dir: "results",
		},
	}
}
