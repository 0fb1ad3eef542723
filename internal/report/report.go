package report

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/tito-trading/account-probe/internal/domain"
)

// Write prints the status, headers and body of snap to w.
func Write(w io.Writer, snap domain.Snapshot) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Status: %d\n", snap.StatusCode)
	fmt.Fprintf(bw, "Headers:\n%s\n", FormatHeaders(snap.Header))
	fmt.Fprintf(bw, "Body:\n%s\n", snap.Body)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// FormatHeaders renders headers as an indented map literal, one line per value.
// Names are lower-cased and sorted; repeated names keep their received order.
func FormatHeaders(h http.Header) string {
	if len(h) == 0 {
		return "{}"
	}

	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("{\n")
	for _, name := range names {
		key := strconv.Quote(strings.ToLower(name))
		for _, v := range h[name] {
			fmt.Fprintf(&b, "    %s: %s,\n", key, strconv.Quote(v))
		}
	}
	b.WriteString("}")
	return b.String()
}
