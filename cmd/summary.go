package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"firestige.xyz/hpsdrdump/internal/pipeline"
	"firestige.xyz/hpsdrdump/plugins/parser/openhpsdr"
)

// writeSummary prints the end-of-run counters.
func writeSummary(w io.Writer, st pipeline.Stats, sum openhpsdr.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Summary:")
	fmt.Fprintf(tw, "  frames\t%d\n", st.Received)
	fmt.Fprintf(tw, "  udp datagrams\t%d\n", st.Decoded)
	fmt.Fprintf(tw, "  not decoded\t%d\n", st.DecodeErrors)
	fmt.Fprintf(tw, "  openhpsdr\t%d\n", st.Parsed)
	fmt.Fprintf(tw, "  declined\t%d\n", st.Declined)
	fmt.Fprintf(tw, "  filtered\t%d\n", st.Dropped)
	fmt.Fprintf(tw, "  truncated\t%d\n", sum.Truncated)
	if st.CaptureDrops > 0 {
		fmt.Fprintf(tw, "  kernel drops\t%d\n", st.CaptureDrops)
	}
	if st.ReportErrors > 0 {
		fmt.Fprintf(tw, "  report errors\t%d\n", st.ReportErrors)
	}

	writeCounts(tw, "Datagrams", sum.Datagrams)
	writeCounts(tw, "Annotations", sum.Annotations)

	if sum.Board != "" {
		fmt.Fprintf(tw, "Board:\t%s\n", sum.Board)
	}
	if len(sum.Ports) > 0 {
		fmt.Fprintln(tw, "Learned ports:")
		for _, k := range sortedKeys(sum.Ports) {
			fmt.Fprintf(tw, "  %s\t%d\n", k, sum.Ports[k])
		}
	}
	return tw.Flush()
}

func writeCounts(w io.Writer, title string, m map[string]uint64) {
	if len(m) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(w, "  %s\t%d\n", k, m[k])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
