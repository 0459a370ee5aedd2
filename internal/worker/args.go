package worker

import (
	"sortmedia/internal/config"
)

// Worker command-line flags.
const (
	FlagSourceDir           = "--source_dir"
	FlagExportDir           = "--export_dir"
	FlagVideoExportDir      = "--video_export_dir"
	FlagUseModTimeAsCreated = "--use_mod_time_as_created"
	FlagSyncStdInOut        = "--sync_std_in_out"
)

// BuildArgs returns the worker argument vector for run. The sync flag is
// always present so the worker paces its output on our acknowledgements.
func BuildArgs(run config.RunConfiguration) []string {
	args := []string{
		FlagSourceDir + "=" + run.SourceDir,
		FlagExportDir + "=" + run.ImageDir,
		FlagVideoExportDir + "=" + run.VideoDir,
	}
	if run.UseModTimeAsCreated {
		args = append(args, FlagUseModTimeAsCreated)
	}
	return append(args, FlagSyncStdInOut)
}
