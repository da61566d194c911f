package fetcher

import (
	"fmt"
	"path/filepath"

	"github.com/withObsrvr/econ-index-fetcher/internal/util"
)

// CollectionID names the dataset repository on the hub.
const CollectionID = "Anthropic/EconomicIndex"

// DefaultManifest lists the files of the 2025-03-27 release, in fetch order.
// Destination names are the base names, so they must stay pairwise distinct.
var DefaultManifest = []string{
	"release_2025_03_27/automation_vs_augmentation_by_task.csv",
	"release_2025_03_27/SOC_Structure.csv",
	"release_2025_03_27/onet_task_statements.csv",
	"release_2025_03_27/task_thinking_fractions.csv",
	"release_2025_03_27/cluster_level_data/cluster_level_dataset.tsv",
	"release_2025_03_27/v2_report_replication.ipynb",
}

// Layout is the local output tree.
type Layout struct {
	Base      string
	Raw       string
	Processed string
}

// NewLayout derives the raw and processed directories from base.
func NewLayout(base string) Layout {
	return Layout{
		Base:      base,
		Raw:       filepath.Join(base, "raw"),
		Processed: filepath.Join(base, "processed"),
	}
}

// EnsureOutputLayout creates the base, raw and processed directories and any
// missing ancestors. Existing directories are left as they are.
func (l Layout) EnsureOutputLayout() error {
	for _, dir := range []string{l.Base, l.Raw, l.Processed} {
		if err := util.EnsureDir(dir); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
