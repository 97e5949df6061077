package netfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// FormatResult renders "probability,sums,multiplies"
func FormatResult(r inference.Result) string {
	p := strconv.FormatFloat(network.Round(r.Probability), 'f', -1, 64)
	return fmt.Sprintf("%s,%d,%d", p, r.Ops.Sums, r.Ops.Multiplies)
}

// WriteResults writes one line per result, in order
func WriteResults(w io.Writer, results []inference.Result) error {
	bw := bufio.NewWriter(w)
	for _, r := range results {
		if _, err := fmt.Fprintln(bw, FormatResult(r)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteResultsFile writes results to path, replacing any existing file
func WriteResultsFile(path string, results []inference.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteResults(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
