// Package signs implements spec §4.7: merging a way's bare refs with a
// relation's directional refs, and parsing a node's free-text exit_to tag
// into branch/toward exit signs when the way itself carries no structured
// exit information.
package signs

import "strings"

// MergeRefs merges a way's semicolon-separated ref list with a relation's
// semicolon-separated "REF|DIR" pairs. For each way ref, if a matching
// relation pair exists its direction is appended ("REF DIR"); otherwise the
// bare ref is emitted. Output order follows the way's ref order; input and
// output both use ';' as separator.
func MergeRefs(wayRef, relationRef string) string {
	if wayRef == "" {
		return ""
	}
	dirByRef := make(map[string]string)
	if relationRef != "" {
		for _, pair := range strings.Split(relationRef, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			parts := strings.SplitN(pair, "|", 2)
			if len(parts) != 2 {
				continue
			}
			ref := strings.TrimSpace(parts[0])
			dir := strings.TrimSpace(parts[1])
			if ref != "" && dir != "" {
				dirByRef[ref] = dir
			}
		}
	}

	refs := strings.Split(wayRef, ";")
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if dir, ok := dirByRef[r]; ok {
			out = append(out, r+" "+dir)
		} else {
			out = append(out, r)
		}
	}
	return strings.Join(out, ";")
}

// ExitSigns is the set of exit-sign strings derivable from a node's exit_to
// text when the way provides no structured branch/toward data.
type ExitSigns struct {
	Branches []string
	Towards  []string
}

// ParseExitTo applies §4.6's exit_to parsing rules to each ';'-separated
// segment of the tag independently:
//  1. A leading "to " or "toward " (case-insensitive) means the whole
//     (stripped) segment is a toward sign.
//  2. Otherwise, if exactly one of " to " / " toward " appears as an infix,
//     split there: text before is a branch sign, text after a toward sign.
//  3. Otherwise the whole segment is a toward sign.
func ParseExitTo(exitTo string) ExitSigns {
	var out ExitSigns
	for _, segment := range strings.Split(exitTo, ";") {
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" {
			continue
		}
		parseSegment(trimmed, &out)
	}
	return out
}

func parseSegment(trimmed string, out *ExitSigns) {
	lower := strings.ToLower(trimmed)

	if strings.HasPrefix(lower, "toward ") {
		out.Towards = append(out.Towards, strings.TrimSpace(trimmed[len("toward "):]))
		return
	}
	if strings.HasPrefix(lower, "to ") {
		out.Towards = append(out.Towards, strings.TrimSpace(trimmed[len("to "):]))
		return
	}

	toIdx := strings.Index(lower, " to ")
	towardIdx := strings.Index(lower, " toward ")
	switch {
	case toIdx >= 0 && towardIdx < 0:
		out.Branches = append(out.Branches, strings.TrimSpace(trimmed[:toIdx]))
		out.Towards = append(out.Towards, strings.TrimSpace(trimmed[toIdx+len(" to "):]))
	case towardIdx >= 0 && toIdx < 0:
		out.Branches = append(out.Branches, strings.TrimSpace(trimmed[:towardIdx]))
		out.Towards = append(out.Towards, strings.TrimSpace(trimmed[towardIdx+len(" toward "):]))
	default:
		out.Towards = append(out.Towards, trimmed)
	}
}
