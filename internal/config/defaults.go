package config

const (
	defaultConfigPath       = "~/.config/energysplit/config.toml"
	defaultTempDir          = "/tmp"
	defaultSegmentsXML      = "/usr/local/share/segmentation-fold/segments.xml"
	defaultLedgerPath       = "~/.local/share/energysplit/ledger.db"
	defaultOracleBinary     = "segmentation-fold"
	defaultOracleThreads    = 1
	defaultOracleMinVersion = "1.0.0"
	defaultEngineThreads    = 1
	defaultPrecision        = 0.005
	defaultPerBaseBound     = 3.5 / 2
	defaultMetric           = "pairs"
	defaultMaxParallelDepth = 4
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:     defaultTempDir,
			SegmentsXML: defaultSegmentsXML,
			LedgerPath:  defaultLedgerPath,
		},
		Oracle: Oracle{
			Binary:     defaultOracleBinary,
			Threads:    defaultOracleThreads,
			MinVersion: defaultOracleMinVersion,
		},
		Engine: Engine{
			Threads:          defaultEngineThreads,
			Precision:        defaultPrecision,
			PerBaseBound:     defaultPerBaseBound,
			Metric:           defaultMetric,
			MaxParallelDepth: defaultMaxParallelDepth,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
