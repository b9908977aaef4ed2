package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/openinsight-kr/market-pulse/internal/cli"
)

// GetDisplay renders the run summary for terminal output.
func (s *Summary) GetDisplay() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pairs processed:  %d\n", s.Pairs)
	fmt.Fprintf(&b, "Rows deleted:     %d\n", s.Deleted)
	fmt.Fprintf(&b, "Rows inserted:    %d\n", s.Inserted)
	fmt.Fprintf(&b, "Simulated values: %d\n", s.Simulated)
	b.WriteString(cli.SubtleStyle.Render(
		fmt.Sprintf("Duration:         %s", s.Duration.Round(10*time.Millisecond))))

	title := fmt.Sprintf("Market Snapshot %s", s.Started.Format("2006-01-02"))
	return cli.RenderBox(title, b.String())
}
