package config

import (
	"sortmedia/internal/errors"
)

// RunConfiguration holds the values a sort run is launched with. They are
// persisted between sessions under GroupKey.
type RunConfiguration struct {
	SourceDir           string `yaml:"source_dir"`
	ImageDir            string `yaml:"image_dir"`
	VideoDir            string `yaml:"video_dir"`
	UseModTimeAsCreated bool   `yaml:"use_mod_time_as_created"`
}

// Validate reports every directory that is still unset.
func (r RunConfiguration) Validate() error {
	var missing []string
	if r.SourceDir == "" {
		missing = append(missing, "source_dir")
	}
	if r.ImageDir == "" {
		missing = append(missing, "image_dir")
	}
	if r.VideoDir == "" {
		missing = append(missing, "video_dir")
	}
	if len(missing) > 0 {
		return errors.NewValidationError("select directories", missing...)
	}
	return nil
}
