package logging

import "strings"

// FormatSubject builds the hearing/stage subject string used in console output.
func FormatSubject(hearingID, stage string) string {
	hearingID = strings.TrimSpace(hearingID)
	stage = strings.TrimSpace(stage)
	switch {
	case hearingID != "" && stage != "":
		return "Hearing #" + hearingID + " (" + stage + ")"
	case hearingID != "":
		return "Hearing #" + hearingID
	default:
		return stage
	}
}
