package hls

import (
	"bufio"
	"bytes"
	"errors"
	"net/url"
	"regexp"
	"strings"
)

const header = "#EXTM3U"

// ErrNotPlaylist is returned for bodies that do not start with #EXTM3U.
var ErrNotPlaylist = errors.New("not an m3u8 playlist")

// Playlist is the outline of a manifest: a master playlist lists variants,
// a media playlist lists segments.
type Playlist struct {
	Master   bool
	Variants []string
	Segments []string
}

// IsPlaylist reports whether body starts like an m3u8 document.
func IsPlaylist(body []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(body, "\ufeff \t\r\n"), []byte(header))
}

// Parse outlines a playlist. URIs are returned as written.
func Parse(body []byte) (*Playlist, error) {
	if !IsPlaylist(body) {
		return nil, ErrNotPlaylist
	}

	pl := &Playlist{}
	streamInf := false

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF"):
			pl.Master = true
			streamInf = true
		case strings.HasPrefix(line, "#"):
		case streamInf:
			pl.Variants = append(pl.Variants, line)
			streamInf = false
		default:
			pl.Segments = append(pl.Segments, line)
		}
	}

	return pl, scanner.Err()
}

var uriAttr = regexp.MustCompile(`URI="([^"]*)"`)

// Rewrite resolves every URI of a playlist against base and maps it through
// local. Both bare URI lines and URI="..." tag attributes are rewritten.
func Rewrite(body []byte, base *url.URL, local func(abs string) string) []byte {
	resolve := func(ref string) string {
		u, err := base.Parse(ref)
		if err != nil {
			return ref
		}
		return local(u.String())
	}

	var out bytes.Buffer
	out.Grow(len(body) + len(body)/2)

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			out.WriteString(line)
		case strings.HasPrefix(trimmed, "#"):
			out.WriteString(uriAttr.ReplaceAllStringFunc(line, func(attr string) string {
				ref := uriAttr.FindStringSubmatch(attr)[1]
				return `URI="` + resolve(ref) + `"`
			}))
		default:
			out.WriteString(resolve(trimmed))
		}
		out.WriteByte('\n')
	}

	return out.Bytes()
}
