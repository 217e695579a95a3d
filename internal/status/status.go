// Package status reports which artifacts of the group and consensus stages
// exist for each sample under an output prefix.
package status

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/treeterminus/internal/errors"
	"github.com/dusk-indust/treeterminus/internal/export"
	"github.com/dusk-indust/treeterminus/internal/salmon"
)

// Stage is a pipeline stage that leaves artifacts behind.
type Stage int

const (
	StageGroup Stage = iota
	StageConsensus
)

// String returns the stage name used on the command line.
func (s Stage) String() string {
	switch s {
	case StageGroup:
		return "group"
	case StageConsensus:
		return "consensus"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ArtifactInfo describes one expected artifact.
type ArtifactInfo struct {
	Name     string
	Stage    Stage
	Required bool
	Complete bool
	Path     string // set when complete
}

// SampleStatus holds the artifacts of one sample output directory.
type SampleStatus struct {
	Name      string
	Dir       string
	Artifacts []ArtifactInfo
}

var sampleArtifacts = []struct {
	name     string
	stage    Stage
	required bool
}{
	{export.ForestFile, StageGroup, true},
	{export.GroupsFile, StageGroup, true},
	{export.ParamsFile, StageGroup, true},
	{export.CollapseLog, StageGroup, false},
	{export.DeltaLog, StageGroup, false},
	{export.GoldenLog, StageGroup, false},
	{export.AlleleLog, StageGroup, false},
	{export.GroupNewick, StageGroup, false},
	{export.SplitsFile, StageConsensus, true},
	{export.MergedNewick, StageConsensus, true},
}

// ScanSample checks which artifacts exist in dir.
func ScanSample(dir string) SampleStatus {
	st := SampleStatus{Name: filepath.Base(dir), Dir: dir}
	for _, a := range sampleArtifacts {
		info := ArtifactInfo{Name: a.name, Stage: a.stage, Required: a.required}
		path := filepath.Join(dir, a.name)
		if _, err := os.Stat(path); err == nil {
			info.Complete = true
			info.Path = path
		}
		st.Artifacts = append(st.Artifacts, info)
	}
	return st
}

// Complete reports whether every required artifact of stage exists.
func (s SampleStatus) Complete(stage Stage) bool {
	for _, a := range s.Artifacts {
		if a.Stage == stage && a.Required && !a.Complete {
			return false
		}
	}
	return true
}

// Missing lists the required artifacts of stage that do not exist.
func (s SampleStatus) Missing(stage Stage) []string {
	var out []string
	for _, a := range s.Artifacts {
		if a.Stage == stage && a.Required && !a.Complete {
			out = append(out, a.Name)
		}
	}
	return out
}

// ScanOutputs scans <out>/<sample> for every sample directory under
// samplesDir, in name order.
func ScanOutputs(samplesDir, out string) ([]SampleStatus, error) {
	dirs, err := salmon.SampleDirs(samplesDir)
	if err != nil {
		return nil, err
	}
	statuses := make([]SampleStatus, 0, len(dirs))
	for _, d := range dirs {
		s := ScanSample(filepath.Join(out, filepath.Base(d)))
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// RequireGrouped returns a configuration error naming the first sample that
// lacks a group-stage artifact.
func RequireGrouped(statuses []SampleStatus) error {
	for _, s := range statuses {
		if missing := s.Missing(StageGroup); len(missing) > 0 {
			return errors.NewConfigError(
				fmt.Sprintf("sample %s has not been grouped: %s missing", s.Name, missing[0]),
				errors.ErrMissingInput).WithPath(filepath.Join(s.Dir, missing[0]))
		}
	}
	return nil
}
