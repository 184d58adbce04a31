package main

import (
	"fmt"
	"strings"

	runewidth "github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/sheetvox/internal/tts"
)

var voicesCmd = &cobra.Command{
	Use:     "voices [QUERY]",
	Short:   "List the available synthesis voices",
	Long:    paragraph(fmt.Sprintf("\nList the voices the synthesis endpoint understands, optionally narrowed by a fuzzy QUERY. The %s voice is used when none is configured.", keyword(tts.DefaultVoice))),
	Example: paragraph("sheetvox voices\nsheetvox voices female"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var query string
		if len(args) > 0 {
			query = args[0]
		}

		voices := filterVoices(query)
		if len(voices) == 0 {
			return fmt.Errorf("no voice matches %q", query)
		}

		for _, v := range voices {
			id := v.ID
			if id == tts.DefaultVoice {
				id = keyword(id)
			}
			// Pad on the plain ID; the styled one carries zero-width
			// escape codes.
			pad := strings.Repeat(" ", max(1, 10-runewidth.StringWidth(v.ID)))
			fmt.Printf("%s%s%s (%s)\n", id, pad, v.Description, v.Gender)
		}
		return nil
	},
}

// filterVoices narrows the voice table by a fuzzy query. An empty query
// returns the whole table.
func filterVoices(query string) []tts.Voice {
	voices := tts.Voices()
	if query == "" {
		return voices
	}

	haystack := make([]string, len(voices))
	for i, v := range voices {
		haystack[i] = v.ID + " " + v.Gender + " " + v.Description
	}

	matches := fuzzy.Find(query, haystack)
	found := make([]tts.Voice, 0, len(matches))
	for _, m := range matches {
		found = append(found, voices[m.Index])
	}
	return found
}
