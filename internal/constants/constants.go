// Package constants provides named constants used throughout the paramstudy codebase.
// This centralizes defaults shared by the generators, the store, and the CLI.
package constants

// Parameter set naming
const (
	// SetNumberPlaceholder is substituted with the zero-based set ordinal.
	SetNumberPlaceholder = "{number}"

	// DefaultSetNameTemplate names sets parameter_set0, parameter_set1, ...
	DefaultSetNameTemplate = "parameter_set" + SetNumberPlaceholder

	// SetNameKey is the column name of the set name index in table formats.
	SetNameKey = "set_name"

	// SetHashKey is the column name of the content hash in table formats.
	SetHashKey = "set_hash"
)

// Output defaults
const (
	// DefaultOutputFileType is the serialization used when none is requested.
	DefaultOutputFileType = "yaml"

	// MetaFileName lists the per-set files written by a templated study.
	MetaFileName = "parameter_study_meta.txt"

	// TimestampFormat is appended to file stems on name collisions.
	// Matches the %Y%m%d-%H%M%S layout build scripts already parse.
	TimestampFormat = "20060102-150405"

	// StateDirName holds tool-local state such as decision traces.
	StateDirName = ".paramstudy"
)

// Schema keys
const (
	// NumSimulationsKey is the sample count key of statistical schemas.
	NumSimulationsKey = "num_simulations"

	// DistributionKey names the distribution of a statistical parameter.
	DistributionKey = "distribution"

	// ParameterNamesKey lists the columns of a custom study.
	ParameterNamesKey = "parameter_names"

	// ParameterSamplesKey holds the rows of a custom study.
	ParameterSamplesKey = "parameter_samples"
)
