// Package segment splits long generated text into chat-sized messages.
package segment

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Algorithm selects how text is cut.
type Algorithm string

const (
	// Smart packs whole paragraphs and falls back to sentences for long ones.
	Smart Algorithm = "smart"
	// Sentence packs sentences, keeping paragraph breaks between them.
	Sentence Algorithm = "sentence"
	// Length cuts at fixed rune counts.
	Length Algorithm = "length"
)

// paragraphJoin separates paragraphs and merged tail segments.
const paragraphJoin = "\n\n"

// DefaultSeparators end a sentence.
var DefaultSeparators = []string{"。", "！", "？", ".", "!", "?"}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Options configure Split. Lengths are measured in runes.
type Options struct {
	Algorithm     Algorithm
	SegmentLength int
	MinSegments   int
	MaxSegments   int
	Separators    []string
	// KeepParagraphIntegrity makes Length pack short paragraphs instead of
	// cutting through them.
	KeepParagraphIntegrity bool
	// MinParagraphLength keeps shorter pieces attached to the next one.
	MinParagraphLength int
}

// ParseAlgorithm validates a configured algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case Smart, Sentence, Length:
		return a, nil
	case "":
		return Smart, nil
	default:
		return Smart, fmt.Errorf("unknown segmentation algorithm %q", s)
	}
}

// Split cuts content into at most MaxSegments pieces of roughly SegmentLength
// runes. Content that fits in one segment, or that would produce fewer than
// MinSegments pieces, is returned whole.
func Split(content string, opts Options) []string {
	if opts.SegmentLength <= 0 || utf8.RuneCountInString(content) <= opts.SegmentLength {
		return []string{content}
	}
	seps := opts.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}

	var segments []string
	switch opts.Algorithm {
	case Sentence:
		segments = sentenceSplit(content, opts, seps)
	case Length:
		segments = lengthSplit(content, opts)
	default:
		segments = smartSplit(content, opts, seps)
	}

	if len(segments) == 0 || len(segments) < opts.MinSegments {
		return []string{content}
	}
	if opts.MaxSegments > 0 && len(segments) > opts.MaxSegments {
		tail := strings.Join(segments[opts.MaxSegments-1:], paragraphJoin)
		segments = append(segments[:opts.MaxSegments-1:opts.MaxSegments-1], tail)
	}
	return segments
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func paragraphs(content string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(content, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// packer accumulates pieces into segments no longer than limit, except when a
// single piece is already longer or the pending segment is below minimum.
type packer struct {
	limit    int
	minimum  int
	segments []string
	current  strings.Builder
	curLen   int
}

func (p *packer) add(piece, sep string) {
	if p.curLen == 0 {
		p.current.WriteString(piece)
		p.curLen = runeLen(piece)
		return
	}
	n := runeLen(piece) + runeLen(sep)
	if p.curLen+n > p.limit && p.curLen >= p.minimum {
		p.flush()
		p.add(piece, sep)
		return
	}
	p.current.WriteString(sep)
	p.current.WriteString(piece)
	p.curLen += n
}

func (p *packer) flush() {
	if p.curLen > 0 {
		p.segments = append(p.segments, p.current.String())
	}
	p.current.Reset()
	p.curLen = 0
}

func (p *packer) result() []string {
	p.flush()
	return p.segments
}

func smartSplit(content string, opts Options, seps []string) []string {
	pk := &packer{limit: opts.SegmentLength, minimum: opts.MinParagraphLength}
	for _, para := range paragraphs(content) {
		if runeLen(para) <= opts.SegmentLength {
			pk.add(para, paragraphJoin)
			continue
		}
		// a long paragraph starts its own segment and is packed by sentence
		if pk.curLen >= pk.minimum {
			pk.flush()
		}
		first := true
		for _, s := range sentences(para, seps) {
			sep := ""
			if first && pk.curLen > 0 {
				sep = paragraphJoin
			}
			pk.add(s, sep)
			first = false
		}
	}
	return pk.result()
}

func sentenceSplit(content string, opts Options, seps []string) []string {
	pk := &packer{limit: opts.SegmentLength, minimum: opts.MinParagraphLength}
	for _, para := range paragraphs(content) {
		for i, s := range sentences(para, seps) {
			sep := ""
			if i == 0 {
				sep = paragraphJoin
			}
			pk.add(s, sep)
		}
	}
	return pk.result()
}

func lengthSplit(content string, opts Options) []string {
	if !opts.KeepParagraphIntegrity {
		return chunk(content, opts.SegmentLength)
	}
	pk := &packer{limit: opts.SegmentLength, minimum: opts.MinParagraphLength}
	for _, para := range paragraphs(content) {
		if runeLen(para) <= opts.SegmentLength {
			pk.add(para, paragraphJoin)
			continue
		}
		pk.flush()
		pk.segments = append(pk.segments, chunk(para, opts.SegmentLength)...)
	}
	return pk.result()
}

// chunk cuts s every size runes.
func chunk(s string, size int) []string {
	runes := []rune(s)
	out := make([]string, 0, len(runes)/size+1)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// sentences splits text after every separator, keeping the separator with
// its sentence. Whitespace-only pieces are dropped.
func sentences(text string, seps []string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		matched := 0
		for _, sep := range seps {
			if sep != "" && strings.HasPrefix(text[i:], sep) {
				matched = len(sep)
				break
			}
		}
		if matched == 0 {
			_, size := utf8.DecodeRuneInString(text[i:])
			i += size
			continue
		}
		i += matched
		if piece := text[start:i]; strings.TrimSpace(piece) != "" {
			out = append(out, piece)
		}
		start = i
	}
	if piece := text[start:]; strings.TrimSpace(piece) != "" {
		out = append(out, piece)
	}
	return out
}
