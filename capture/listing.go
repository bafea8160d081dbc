package capture

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// ListDir writes a long listing of dir to w
func ListDir(w io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	fmt.Fprintf(w, "%s: %d entries\n", dir, len(entries))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			info.Mode(),
			humanize.Bytes(uint64(info.Size())),
			humanize.Time(info.ModTime()),
			entry.Name(),
		)
	}
	return tw.Flush()
}
