package parser

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/grafana/regexp"

	"iptv-catalog/work/catalog"
)

// Defaults substituted when an entry carries no group or name metadata.
const (
	DefaultGroup = "Uncategorized"
	DefaultName  = "Unknown Channel"
)

// maxLineSize caps a single playlist line at 1 MiB; anything longer is a
// broken file, not a playlist.
const maxLineSize = 1 << 20

// extinfPrefix marks a metadata line. The line that follows it must be an
// absolute http(s) URL or the entry is dropped.
const extinfPrefix = "#EXTINF:"

var (
	logoRe  = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	groupRe = regexp.MustCompile(`group-title="([^"]*)"`)
	nameRe  = regexp.MustCompile(`,(.*)$`)
)

// Result is the flat parse output: records grouped by their raw group-title
// label in first-seen order, plus the accepted record count.
type Result struct {
	Groups        []catalog.RawGroup
	TotalChannels int
}

// Parse scans playlist text sequentially. Each accepted entry is an EXTINF
// metadata line immediately followed by a line starting with "http"; entries
// whose URL line is missing, blank or relative are skipped silently, as are
// comments and anything else between entries. Malformed input never fails the
// parse; only a read error does.
func Parse(r io.Reader) (*Result, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)

	byName := map[string]int{}
	res := &Result{}
	var pending string

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if strings.HasPrefix(line, extinfPrefix) {
			// a pending entry without a URL line is dropped here
			pending = line
			continue
		}
		if pending == "" {
			continue
		}
		meta := pending
		pending = ""
		if !strings.HasPrefix(line, "http") {
			continue
		}
		record, group := extractRecord(meta, line, res.TotalChannels)
		idx, ok := byName[group]
		if !ok {
			idx = len(res.Groups)
			byName[group] = idx
			res.Groups = append(res.Groups, catalog.RawGroup{Name: group})
		}
		res.Groups[idx].Channels = append(res.Groups[idx].Channels, record)
		res.TotalChannels++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// extractRecord pulls the logo, group and display name out of one EXTINF line
// and builds the record with its deterministic ID.
func extractRecord(meta, url string, ordinal int) (catalog.ChannelRecord, string) {
	logo := ""
	if m := logoRe.FindStringSubmatch(meta); m != nil {
		logo = m[1]
	}

	group := DefaultGroup
	if m := groupRe.FindStringSubmatch(meta); m != nil && m[1] != "" {
		group = m[1]
	}

	name := DefaultName
	if m := nameRe.FindStringSubmatch(meta); m != nil {
		if trimmed := strings.TrimSpace(m[1]); trimmed != "" {
			name = trimmed
		}
	}

	record := catalog.ChannelRecord{
		ID:     catalog.Slugify(group) + "_" + strconv.Itoa(ordinal),
		Name:   name,
		Logo:   logo,
		URL:    url,
		Active: true,
	}
	return record, group
}
